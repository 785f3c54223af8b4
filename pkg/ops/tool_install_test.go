package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AdaCore/lmod-manager/pkg/lmod"
	"github.com/AdaCore/lmod-manager/pkg/sumfile"
	"github.com/AdaCore/lmod-manager/pkg/tool"
)

func TestToolInstall(t *testing.T) {
	ctx := context.Background()

	t.Run("installs a prefix-as-argument product", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		archive := makeArchive(t, t.TempDir(),
			"codepeer-22.1-x86_64-linux-bin.tar.gz",
			fakeInstaller(tool.StylePrefixArg, "bin/codepeer"))

		d, err := tool.FromArchive(archive)
		r.NoError(err)

		var op ToolInstall

		r.NoError(op.Install(ctx, ienv, d, archive, nil))

		prefix := filepath.Join(ienv.InstallDir, "codepeer", "22.1")

		fi, err := os.Stat(filepath.Join(prefix, "bin", "codepeer"))
		r.NoError(err)
		r.False(fi.IsDir())

		mf, err := os.ReadFile(filepath.Join(ienv.ModulesDir, "codepeer", "22.1.lua"))
		r.NoError(err)

		want, err := lmod.Render(ienv.InstallDir)
		r.NoError(err)
		r.Equal(string(want), string(mf))

		rec, err := readReceipt(prefix)
		r.NoError(err)
		r.Equal("codepeer", rec.Module)
		r.Equal("22.1", rec.Version)
		r.Equal(archive, rec.Archive)
		r.False(rec.InstalledAt.IsZero())

		ents, err := os.ReadDir(ienv.ScratchBase)
		r.NoError(err)
		r.Empty(ents)

		_, err = os.Stat(ienv.LockPath())
		r.True(os.IsNotExist(err))
	})

	t.Run("feeds the gnatpro installer its answers", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		archive := makeArchive(t, t.TempDir(),
			"gnatpro-23.0w-20220202-arm-elf-linux64-bin.tar.gz",
			fakeInstaller(tool.StyleAnswers, "bin/gnat"))

		d, err := tool.FromArchive(archive)
		r.NoError(err)

		var op ToolInstall

		r.NoError(op.Install(ctx, ienv, d, archive, nil))

		prefix := filepath.Join(ienv.InstallDir, "gnatpro-arm-elf", "23.0w-20220202")

		_, err = os.Stat(filepath.Join(prefix, "bin", "gnat"))
		r.NoError(err)

		_, err = os.Stat(filepath.Join(ienv.ModulesDir, "gnatpro-arm-elf", "23.0w-20220202.lua"))
		r.NoError(err)
	})

	t.Run("feeds spark-pro the prefix on stdin", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		archive := makeArchive(t, t.TempDir(),
			"spark-pro-22.1-x86_64-linux-bin.tar.gz",
			fakeInstaller(tool.StylePrefixStdin, "bin/gnatprove"))

		d, err := tool.FromArchive(archive)
		r.NoError(err)

		var op ToolInstall

		r.NoError(op.Install(ctx, ienv, d, archive, nil))

		_, err = os.Stat(filepath.Join(ienv.InstallDir, "sparkpro", "22.1", "bin", "gnatprove"))
		r.NoError(err)
	})

	t.Run("creates the product directory for the installer", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		// Plain mkdir: the real installers rely on every parent of the
		// version directory existing already.
		installer := "#!/bin/sh\nset -e\n" +
			"prefix=\"$1\"\n" +
			"mkdir \"$prefix\"\n" +
			"mkdir \"$prefix/bin\"\n" +
			"printf 'fake tool\\n' > \"$prefix/bin/codepeer\"\n" +
			"chmod +x \"$prefix/bin/codepeer\"\n"

		archive := makeArchive(t, t.TempDir(),
			"codepeer-22.1-x86_64-linux-bin.tar.gz", installer)

		d, err := tool.FromArchive(archive)
		r.NoError(err)

		var op ToolInstall

		r.NoError(op.Install(ctx, ienv, d, archive, nil))

		fi, err := os.Stat(filepath.Join(ienv.InstallDir, "codepeer", "22.1", "bin", "codepeer"))
		r.NoError(err)
		r.NotZero(fi.Mode() & 0111)
	})

	t.Run("requires the roots to exist", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		archive := makeArchive(t, t.TempDir(),
			"codepeer-22.1-x86_64-linux-bin.tar.gz",
			fakeInstaller(tool.StylePrefixArg, "bin/codepeer"))

		d, err := tool.FromArchive(archive)
		r.NoError(err)

		var op ToolInstall

		r.NoError(os.RemoveAll(ienv.InstallDir))

		err = op.Install(ctx, ienv, d, archive, nil)
		r.Error(err)
		r.Contains(err.Error(), `directory "`+ienv.InstallDir+`" not found`)

		r.NoError(os.Mkdir(ienv.InstallDir, 0o755))
		r.NoError(os.RemoveAll(ienv.ModulesDir))

		err = op.Install(ctx, ienv, d, archive, nil)
		r.Error(err)
		r.Contains(err.Error(), `directory "`+ienv.ModulesDir+`" not found`)
	})

	t.Run("requires the archive to exist", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		missing := filepath.Join(t.TempDir(), "codepeer-22.1-x86_64-linux-bin.tar.gz")

		d, err := tool.FromArchive(missing)
		r.NoError(err)

		var op ToolInstall

		err = op.Install(ctx, ienv, d, missing, nil)
		r.Error(err)
		r.Contains(err.Error(), `file "`+missing+`" not found`)
	})

	t.Run("a corrupt archive fails during extraction", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		archive := filepath.Join(t.TempDir(), "codepeer-22.1-x86_64-linux-bin.tar.gz")
		r.NoError(os.WriteFile(archive, []byte("these are not the bytes of a tarball"), 0o644))

		d, err := tool.FromArchive(archive)
		r.NoError(err)

		var op ToolInstall

		err = op.Install(ctx, ienv, d, archive, nil)
		r.Error(err)
		r.Contains(err.Error(), "gzip")

		ents, err := os.ReadDir(ienv.InstallDir)
		r.NoError(err)
		r.Empty(ents)

		ents, err = os.ReadDir(ienv.ModulesDir)
		r.NoError(err)
		r.Empty(ents)
	})

	t.Run("an installer failure stops before registration", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		archive := makeArchive(t, t.TempDir(),
			"codepeer-22.1-x86_64-linux-bin.tar.gz",
			"#!/bin/sh\nexit 3\n")

		d, err := tool.FromArchive(archive)
		r.NoError(err)

		var op ToolInstall

		err = op.Install(ctx, ienv, d, archive, nil)
		r.Error(err)

		_, err = os.Stat(filepath.Join(ienv.ModulesDir, "codepeer", "22.1.lua"))
		r.True(os.IsNotExist(err))

		_, err = os.Stat(ienv.LockPath())
		r.True(os.IsNotExist(err))
	})

	t.Run("keep-scratch retains the extraction dir", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)
		ienv.KeepScratch = true

		archive := makeArchive(t, t.TempDir(),
			"codepeer-22.1-x86_64-linux-bin.tar.gz",
			fakeInstaller(tool.StylePrefixArg, "bin/codepeer"))

		d, err := tool.FromArchive(archive)
		r.NoError(err)

		var op ToolInstall

		r.NoError(op.Install(ctx, ienv, d, archive, nil))

		ents, err := os.ReadDir(ienv.ScratchBase)
		r.NoError(err)
		r.Len(ents, 1)
	})

	t.Run("explain mode touches nothing", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)
		ienv.Explain = true

		archive := makeArchive(t, t.TempDir(),
			"codepeer-22.1-x86_64-linux-bin.tar.gz",
			fakeInstaller(tool.StylePrefixArg, "bin/codepeer"))

		d, err := tool.FromArchive(archive)
		r.NoError(err)

		var op ToolInstall

		r.NoError(op.Install(ctx, ienv, d, archive, nil))

		ents, err := os.ReadDir(ienv.InstallDir)
		r.NoError(err)
		r.Empty(ents)

		ents, err = os.ReadDir(ienv.ModulesDir)
		r.NoError(err)
		r.Empty(ents)
	})

	t.Run("verifies archives against a sum file", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		archive := makeArchive(t, t.TempDir(),
			"codepeer-22.1-x86_64-linux-bin.tar.gz",
			fakeInstaller(tool.StylePrefixArg, "bin/codepeer"))

		d, err := tool.FromArchive(archive)
		r.NoError(err)

		h, err := sumfile.HashFile("b2", archive)
		r.NoError(err)

		var sums sumfile.Sumfile

		_, err = sums.Add(filepath.Base(archive), "b2", h)
		r.NoError(err)

		var op ToolInstall

		r.NoError(op.Install(ctx, ienv, d, archive, &sums))

		rec, err := readReceipt(filepath.Join(ienv.InstallDir, "codepeer", "22.1"))
		r.NoError(err)
		r.NotEmpty(rec.Sum)
	})

	t.Run("a sum mismatch stops the install", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		archive := makeArchive(t, t.TempDir(),
			"codepeer-22.1-x86_64-linux-bin.tar.gz",
			fakeInstaller(tool.StylePrefixArg, "bin/codepeer"))

		d, err := tool.FromArchive(archive)
		r.NoError(err)

		var sums sumfile.Sumfile

		_, err = sums.Add(filepath.Base(archive), "b2", []byte{0xde, 0xad, 0xbe, 0xef})
		r.NoError(err)

		var op ToolInstall

		err = op.Install(ctx, ienv, d, archive, &sums)
		r.ErrorIs(err, sumfile.ErrMismatch)

		ents, err := os.ReadDir(ienv.InstallDir)
		r.NoError(err)
		r.Empty(ents)
	})

	t.Run("reinstalling refreshes the module file", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		archive := makeArchive(t, t.TempDir(),
			"codepeer-22.1-x86_64-linux-bin.tar.gz",
			fakeInstaller(tool.StylePrefixArg, "bin/codepeer"))

		d, err := tool.FromArchive(archive)
		r.NoError(err)

		stale := filepath.Join(ienv.ModulesDir, "codepeer", "22.1.lua")
		r.NoError(os.MkdirAll(filepath.Dir(stale), 0o755))
		r.NoError(os.WriteFile(stale, []byte("-- stale\n"), 0o644))

		var op ToolInstall

		r.NoError(op.Install(ctx, ienv, d, archive, nil))

		mf, err := os.ReadFile(stale)
		r.NoError(err)

		want, err := lmod.Render(ienv.InstallDir)
		r.NoError(err)
		r.Equal(string(want), string(mf))
	})
}
