package ops

import (
	"bytes"
	"context"
	"hash"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/AdaCore/lmod-manager/pkg/cleanhttp"
	"github.com/AdaCore/lmod-manager/pkg/progress"
	"github.com/AdaCore/lmod-manager/pkg/sumfile"
)

type ArchiveFetch struct {
	common
}

// Resolve makes an archive available locally. Remote archives are
// downloaded into dir; local paths are used in place. When sums is
// given the archive has to match the sum recorded under its base
// name, and the rendered sum is returned alongside the local path.
func (a *ArchiveFetch) Resolve(ctx context.Context, src, dir string, sums *sumfile.Sumfile) (string, string, error) {
	if u, err := url.Parse(src); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return a.download(ctx, src, path.Base(u.Path), dir, sums)
	}

	if err := requireFile(src); err != nil {
		return "", "", err
	}

	if sums == nil {
		return src, "", nil
	}

	name := filepath.Base(src)

	sum, err := sums.Verify(name, src)
	if err != nil {
		return "", "", track(err)
	}

	a.L().Debug("verified archive", "entity", name, "sum", sum)

	GetUI(ctx).VerifiedSum(name, sum)

	return src, sum, nil
}

func (a *ArchiveFetch) download(ctx context.Context, src, name, dir string, sums *sumfile.Sumfile) (string, string, error) {
	ui := GetUI(ctx)
	ui.Download(src)

	var (
		algo string
		want []byte
	)

	if sums != nil {
		var ok bool

		algo, want, ok = sums.Lookup(name)
		if !ok {
			return "", "", track(errors.WithMessage(sumfile.ErrNotRecorded, name))
		}
	}

	resp, err := cleanhttp.Get(ctx, src)
	if err != nil {
		return "", "", track(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", "", errors.Errorf("fetching %s: %s", src, resp.Status)
	}

	tgt := filepath.Join(dir, name)

	f, err := os.Create(tgt)
	if err != nil {
		return "", "", track(err)
	}

	defer f.Close()

	pb := progress.Bytes(ctx, resp.ContentLength, "Downloading "+name)
	defer pb.Close()

	var (
		w io.Writer = io.MultiWriter(f, pb.Writer())
		h hash.Hash
	)

	if algo != "" {
		h, err = sumfile.Hasher(algo)
		if err != nil {
			return "", "", track(err)
		}

		w = io.MultiWriter(f, h, pb.Writer())
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", "", track(err)
	}

	a.L().Debug("downloaded archive", "url", src, "path", tgt)

	var sum string

	if h != nil {
		got := h.Sum(nil)

		if !bytes.Equal(want, got) {
			return "", "", track(errors.WithMessagef(sumfile.ErrMismatch,
				"%s: recorded %s:%s, computed %s:%s",
				name, algo, base58.Encode(want), algo, base58.Encode(got)))
		}

		sum = algo + ":" + base58.Encode(got)

		ui.VerifiedSum(name, sum)
	}

	return tgt, sum, nil
}
