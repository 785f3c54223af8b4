package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AdaCore/lmod-manager/pkg/tool"
)

func writeModulefile(t *testing.T, ienv *InstallEnv, module string) *tool.Descriptor {
	t.Helper()

	r := require.New(t)

	d, err := tool.FromModule(module)
	r.NoError(err)

	var mw ModulefileWrite

	_, err = mw.Write(ienv, d)
	r.NoError(err)

	return d
}

func TestModuleScan(t *testing.T) {
	ctx := context.Background()

	t.Run("reconciles both trees", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		// Registered and installed.
		d := writeModulefile(t, ienv, "gnatpro/22.1")
		seedInstall(t, ienv, d)

		// Registered, nothing behind it.
		writeModulefile(t, ienv, "sparkpro/23.2")

		// Installed, never registered.
		d3, err := tool.FromModule("codepeer/22.1")
		r.NoError(err)
		seedInstall(t, ienv, d3)

		// Someone else's module file.
		foreign := filepath.Join(ienv.ModulesDir, "gcc", "12.2.lua")
		r.NoError(os.MkdirAll(filepath.Dir(foreign), 0o755))
		r.NoError(os.WriteFile(foreign, []byte("-- foreign\n"), 0o644))

		// A stray dir in the install tree, no marker.
		r.NoError(os.MkdirAll(filepath.Join(ienv.InstallDir, "gnatstudio", "25.1"), 0o755))

		var op ModuleScan

		mods, err := op.Scan(ctx, ienv, false)
		r.NoError(err)

		r.Len(mods, 3)

		r.Equal("codepeer/22.1", mods[0].Spec())
		r.Equal(StatusUnregistered, mods[0].Status)
		r.Empty(mods[0].Modulefile)

		r.Equal("gnatpro/22.1", mods[1].Spec())
		r.Equal(StatusOK, mods[1].Status)
		r.NotEmpty(mods[1].Modulefile)
		r.Equal(filepath.Join(ienv.InstallDir, "gnatpro", "22.1"), mods[1].Prefix)

		r.Equal("sparkpro/23.2", mods[2].Spec())
		r.Equal(StatusNoInstall, mods[2].Status)
	})

	t.Run("measures installations when asked", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		d := writeModulefile(t, ienv, "gnatpro/22.1")
		seedInstall(t, ienv, d)

		var op ModuleScan

		mods, err := op.Scan(ctx, ienv, true)
		r.NoError(err)

		r.Len(mods, 1)
		r.Greater(mods[0].Size.Entries, int64(0))
		r.Greater(mods[0].Size.Bytes, int64(0))
	})

	t.Run("reads receipts for provenance", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		d := writeModulefile(t, ienv, "gnatpro-arm-elf/22.1")
		prefix := seedInstall(t, ienv, d)

		var ti ToolInstall

		r.NoError(ti.writeReceipt(d, prefix, "b2:abc"))

		var op ModuleScan

		mods, err := op.Scan(ctx, ienv, false)
		r.NoError(err)

		r.Len(mods, 1)
		r.NotNil(mods[0].Receipt)
		r.Equal("gnatpro-arm-elf", mods[0].Receipt.Module)
		r.Equal("b2:abc", mods[0].Receipt.Sum)
	})

	t.Run("requires both roots", func(t *testing.T) {
		r := require.New(t)

		ienv := newEnv(t)

		r.NoError(os.RemoveAll(ienv.ModulesDir))

		var op ModuleScan

		_, err := op.Scan(ctx, ienv, false)
		r.Error(err)
		r.Contains(err.Error(), "not found")
	})
}
