package ops

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AdaCore/lmod-manager/pkg/tool"
)

// fakeInstaller builds a doinstall script that behaves like the vendor
// one for the given style: it consumes the prefix the same way and
// lays down the product marker beneath it.
func fakeInstaller(style tool.InstallStyle, marker string) string {
	head := "#!/bin/sh\nset -e\n"

	switch style {
	case tool.StyleAnswers:
		head += `read -r blank
[ -z "$blank" ] || exit 10
read -r prefix
read -r a1
read -r a2
[ "$a1" = "Y" ] || exit 11
[ "$a2" = "Y" ] || exit 12
`
	case tool.StylePrefixStdin:
		head += "read -r prefix\n"
	case tool.StylePrefixArg:
		head += "prefix=\"$1\"\n[ -n \"$prefix\" ] || exit 13\n"
	}

	return head +
		"mkdir -p \"$prefix/bin\"\n" +
		"printf 'fake tool\\n' > \"$prefix/" + marker + "\"\n" +
		"chmod +x \"$prefix/" + marker + "\"\n" +
		"echo installed\n"
}

// makeArchive writes a vendor-style tar.gz whose top directory matches
// the archive name and carries the given doinstall script.
func makeArchive(t *testing.T, dir, name, installer string) string {
	t.Helper()

	r := require.New(t)

	d, err := tool.FromArchive(name)
	r.NoError(err)

	return makeArchiveTop(t, dir, name, d.ExtractedDir(), installer)
}

// makeArchiveTop is makeArchive with the top directory under the
// caller's control, for archives that do not follow the convention.
func makeArchiveTop(t *testing.T, dir, name, top, installer string) string {
	t.Helper()

	r := require.New(t)

	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	r.NoError(err)

	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	writeFile := func(name string, mode int64, body string) {
		r.NoError(tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     mode,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))

		_, err := tw.Write([]byte(body))
		r.NoError(err)
	}

	if top != "" {
		r.NoError(tw.WriteHeader(&tar.Header{
			Name:     top + "/",
			Mode:     0755,
			Typeflag: tar.TypeDir,
		}))

		top += "/"
	}

	if installer != "" {
		writeFile(top+"doinstall", 0755, installer)
	}

	writeFile(top+"lib/payload", 0644, "binary bits\n")

	r.NoError(tw.Close())
	r.NoError(gw.Close())

	return path
}

// newEnv lays out install, modules and scratch roots under a temp dir.
func newEnv(t *testing.T) *InstallEnv {
	t.Helper()

	r := require.New(t)

	base := t.TempDir()

	ienv := &InstallEnv{
		InstallDir:  filepath.Join(base, "opt"),
		ModulesDir:  filepath.Join(base, "modules"),
		ScratchBase: filepath.Join(base, "scratch"),
	}

	r.NoError(os.Mkdir(ienv.InstallDir, 0o755))
	r.NoError(os.Mkdir(ienv.ModulesDir, 0o755))
	r.NoError(os.Mkdir(ienv.ScratchBase, 0o755))

	return ienv
}

// seedInstall plants an installed-looking prefix without running any
// installer.
func seedInstall(t *testing.T, ienv *InstallEnv, d *tool.Descriptor) string {
	t.Helper()

	r := require.New(t)

	prefix := ienv.Prefix(d)

	r.NoError(os.MkdirAll(filepath.Join(prefix, "bin"), 0o755))

	marker := filepath.Join(prefix, d.Product.Marker)
	r.NoError(os.MkdirAll(filepath.Dir(marker), 0o755))
	r.NoError(os.WriteFile(marker, []byte("fake tool\n"), 0o755))

	return prefix
}
