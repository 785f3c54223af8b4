package tool

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// InstallStyle selects how a product's doinstall script receives the
// installation prefix and its confirmations.
type InstallStyle int

const (
	// StyleAnswers feeds the full interactive dialog on stdin: accept the
	// default base directory, then the prefix, then two confirmations.
	StyleAnswers InstallStyle = iota

	// StylePrefixStdin feeds only the prefix on stdin.
	StylePrefixStdin

	// StylePrefixArg passes the prefix as the first command line argument.
	StylePrefixArg
)

func (s InstallStyle) String() string {
	switch s {
	case StyleAnswers:
		return "answers on stdin"
	case StylePrefixStdin:
		return "prefix on stdin"
	case StylePrefixArg:
		return "prefix as argument"
	default:
		return "unknown"
	}
}

// Product describes one distribution the tool knows how to install.
type Product struct {
	// Name is the product identifier and the stem of its module name.
	Name string

	// ArchivePrefix is the leading component of the product's archive
	// file names, which may differ from Name.
	ArchivePrefix string

	// Marker is a file, relative to the installation prefix, that every
	// valid installation of the product contains.
	Marker string

	// Style is how the product's installer is driven.
	Style InstallStyle
}

// Products lists the supported distributions. Matching is in order and
// the first match wins.
var Products = []Product{
	{Name: "gnatpro", ArchivePrefix: "gnatpro", Marker: "bin/gnat", Style: StyleAnswers},
	{Name: "sparkpro", ArchivePrefix: "spark-pro", Marker: "bin/gnatprove", Style: StylePrefixStdin},
	{Name: "codepeer", ArchivePrefix: "codepeer", Marker: "bin/codepeer", Style: StylePrefixArg},
	{Name: "gnatstudio", ArchivePrefix: "gnatstudio", Marker: "bin/gnatstudio", Style: StylePrefixArg},
}

var (
	ErrUnknownArchive = errors.New("unexpected archive type")
	ErrArchiveName    = errors.New("unexpected archive name format")
	ErrUnknownModule  = errors.New("unexpected module type")
	ErrModuleName     = errors.New("unexpected module name format")
)

// version allows release trains like "23.2", "23.0w-20220202" and
// "24.1rc-20231020".
const version = `[\d.wrc]+(?:-\d+)?`

var (
	archivePats = make(map[string]*regexp.Regexp)
	modulePats  = make(map[string]*regexp.Regexp)
)

func init() {
	for _, p := range Products {
		archivePats[p.Name] = regexp.MustCompile(
			`^` + regexp.QuoteMeta(p.ArchivePrefix) +
				`-(` + version + `)-([\w-]+)-(linux(?:64)?)-bin\.tar\.gz$`)
		modulePats[p.Name] = regexp.MustCompile(
			`^` + regexp.QuoteMeta(p.Name) + `((?:-[^/]*)?)/(` + version + `)$`)
	}
}

// Descriptor is the parsed identity of one distribution: the product,
// its version and the target its compilers generate code for.
type Descriptor struct {
	Product Product

	Version string

	// Target is the cross target, or "x86_64" for native archives. It is
	// empty when parsed from a native module name.
	Target string

	// Linux is the host flavor from the archive name, "linux" or
	// "linux64". Empty when parsed from a module name.
	Linux string

	// Archive is the path or URL the descriptor was parsed from, when it
	// came from an archive.
	Archive string
}

// FromArchive parses the base name of an archive path or URL.
func FromArchive(archive string) (*Descriptor, error) {
	name := filepath.Base(archive)

	for _, p := range Products {
		if !strings.HasPrefix(name, p.ArchivePrefix) {
			continue
		}

		m := archivePats[p.Name].FindStringSubmatch(name)
		if m == nil {
			return nil, errors.WithMessage(ErrArchiveName, name)
		}

		return &Descriptor{
			Product: p,
			Version: m[1],
			Target:  m[2],
			Linux:   m[3],
			Archive: archive,
		}, nil
	}

	return nil, errors.WithMessage(ErrUnknownArchive, name)
}

// FromModule parses a module argument of the form "name/version", as
// listed by module avail.
func FromModule(module string) (*Descriptor, error) {
	for _, p := range Products {
		if !strings.HasPrefix(module, p.Name) {
			continue
		}

		m := modulePats[p.Name].FindStringSubmatch(module)
		if m == nil {
			return nil, errors.WithMessage(ErrModuleName, module)
		}

		return &Descriptor{
			Product: p,
			Version: m[2],
			Target:  strings.TrimPrefix(m[1], "-"),
		}, nil
	}

	return nil, errors.WithMessage(ErrUnknownModule, module)
}

// ModuleName is the name the distribution is registered under. Cross
// distributions carry their target as a suffix; native ones do not.
func (d *Descriptor) ModuleName() string {
	if d.Target == "" || d.Target == "x86_64" {
		return d.Product.Name
	}

	return d.Product.Name + "-" + d.Target
}

// ExtractedDir is the name of the top level directory inside the
// product's archive.
func (d *Descriptor) ExtractedDir() string {
	return fmt.Sprintf("%s-%s-%s-%s-bin",
		d.Product.ArchivePrefix, d.Version, d.Target, d.Linux)
}

// String renders the descriptor as a module argument, "name/version".
func (d *Descriptor) String() string {
	return d.ModuleName() + "/" + d.Version
}
