package sumfile

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrUnknownAlgo = errors.New("unknown sum algorithm")
	ErrNotRecorded = errors.New("no sum recorded")
	ErrMismatch    = errors.New("sum mismatch")
)

type hashedEntity struct {
	hash   []byte
	entity string
	algo   string
}

type Sumfile struct {
	entities []hashedEntity
}

// LoadFile reads a sum file from disk.
func LoadFile(path string) (*Sumfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	var s Sumfile

	if err := s.Load(f); err != nil {
		return nil, errors.Wrapf(err, "parsing sum file %s", path)
	}

	return &s, nil
}

func (s *Sumfile) Load(r io.Reader) error {
	br := bufio.NewReader(r)

	for {
		// The last line may arrive without a newline, together with
		// io.EOF.
		line, rerr := br.ReadBytes('\n')
		if rerr != nil && rerr != io.EOF {
			return rerr
		}

		colon := bytes.IndexByte(line, ':')
		space := bytes.IndexByte(line, ' ')

		if colon != -1 && space > colon {
			algo := string(line[:colon])

			hash := string(line[colon+1 : space])

			entity := string(bytes.TrimSpace(line[space+1:]))

			b, err := base58.Decode(hash)
			if err != nil {
				return err
			}

			s.entities = append(s.entities, hashedEntity{
				entity: entity,
				algo:   algo,
				hash:   b,
			})
		}

		if rerr == io.EOF {
			break
		}
	}

	// Lookup binary-searches, and hand-edited files come in any order.
	sort.Slice(s.entities, func(i, j int) bool {
		return s.entities[i].entity < s.entities[j].entity
	})

	return nil
}

// Add records the sum for entity, replacing any previous entry.
func (s *Sumfile) Add(entity, algo string, h []byte) (string, error) {
	he := hashedEntity{
		algo:   algo,
		hash:   h,
		entity: entity,
	}

	idx := sort.Search(len(s.entities), func(i int) bool {
		return s.entities[i].entity >= entity
	})

	if idx < len(s.entities) && s.entities[idx].entity == entity {
		s.entities[idx] = he
		return algo + ":" + base58.Encode(h), nil
	}

	s.entities = append(s.entities, he)

	sort.Slice(s.entities, func(i, j int) bool {
		return s.entities[i].entity < s.entities[j].entity
	})

	return algo + ":" + base58.Encode(h), nil
}

func (s *Sumfile) Save(w io.Writer) error {
	for _, he := range s.entities {
		sh := base58.Encode(he.hash)
		fmt.Fprintf(w, "%s:%s %s\n", he.algo, sh, he.entity)
	}

	return nil
}

func (s *Sumfile) Lookup(entity string) (string, []byte, bool) {
	idx := sort.Search(len(s.entities), func(i int) bool {
		return s.entities[i].entity >= entity
	})

	if idx == len(s.entities) {
		return "", nil, false
	}

	if s.entities[idx].entity == entity {
		return s.entities[idx].algo, s.entities[idx].hash, true
	}

	return "", nil, false
}

// Hasher returns a hash for the named algorithm, "b2" (BLAKE2b-256)
// or "sha256".
func Hasher(algo string) (hash.Hash, error) {
	switch algo {
	case "b2":
		return blake2b.New256(nil)
	case "sha256":
		return sha256.New(), nil
	default:
		return nil, errors.WithMessage(ErrUnknownAlgo, algo)
	}
}

// HashFile digests the file at path with the named algorithm.
func HashFile(algo, path string) ([]byte, error) {
	h, err := Hasher(algo)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

// Verify checks the file at path against the sum recorded for entity.
// It returns the rendered sum on success.
func (s *Sumfile) Verify(entity, path string) (string, error) {
	algo, want, ok := s.Lookup(entity)
	if !ok {
		return "", errors.WithMessage(ErrNotRecorded, entity)
	}

	got, err := HashFile(algo, path)
	if err != nil {
		return "", err
	}

	if !bytes.Equal(want, got) {
		return "", errors.WithMessagef(ErrMismatch,
			"%s: recorded %s:%s, computed %s:%s",
			entity, algo, base58.Encode(want), algo, base58.Encode(got))
	}

	return algo + ":" + base58.Encode(got), nil
}
