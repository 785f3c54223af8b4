package ops

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/AdaCore/lmod-manager/pkg/data"
	"github.com/AdaCore/lmod-manager/pkg/fileutils"
	"github.com/AdaCore/lmod-manager/pkg/lmod"
	"github.com/AdaCore/lmod-manager/pkg/lockfile"
	"github.com/AdaCore/lmod-manager/pkg/progress"
	"github.com/AdaCore/lmod-manager/pkg/tool"
)

type ToolUninstall struct {
	common
}

// Uninstall removes an installed distribution and its module file.
// All validation happens up front, before anything is touched.
func (t *ToolUninstall) Uninstall(ctx context.Context, ienv *InstallEnv, d *tool.Descriptor) error {
	toolPath := ienv.Prefix(d)

	if fi, err := os.Stat(toolPath); err != nil || !fi.IsDir() {
		return errors.Errorf("installation directory '%s' not found", toolPath)
	}

	if fi, err := os.Stat(filepath.Join(toolPath, d.Product.Marker)); err != nil || fi.IsDir() {
		return errors.Errorf("directory '%s' seems not to contain a valid installation", toolPath)
	}

	configFile := lmod.Path(ienv.ModulesDir, d.ModuleName(), d.Version)

	if fi, err := os.Stat(configFile); err != nil || fi.IsDir() {
		return errors.Errorf("config file '%s' not found", configFile)
	}

	ui := GetUI(ctx)

	ui.RemovePrologue(d, toolPath)

	if rec, err := readReceipt(toolPath); err == nil {
		t.L().Debug("removing installation",
			"archive", rec.Archive, "installed_at", rec.InstalledAt)
	}

	unlock, err := lockfile.Take(ctx, ienv.LockPath(), func() {
		ui.WaitingForLock(ienv.LockPath(), lockfile.Holder(ienv.LockPath()))
	})
	if err != nil {
		return track(err)
	}

	defer unlock()

	size, err := fileutils.TreeSize(toolPath)
	if err != nil {
		return track(err)
	}

	pb := progress.Count(ctx, size.Entries, "Removing "+d.ModuleName())
	defer pb.Close()

	rm, err := fileutils.RemoveTree(ctx, toolPath, pb.Tick)
	if err != nil {
		return track(err)
	}

	if err := os.Remove(configFile); err != nil {
		return track(err)
	}

	t.L().Debug("removed module file", "path", configFile)

	ui.Removed(d, rm)

	return nil
}

func readReceipt(prefix string) (*data.InstallReceipt, error) {
	f, err := os.Open(filepath.Join(prefix, data.ReceiptName))
	if err != nil {
		return nil, err
	}

	defer f.Close()

	var rec data.InstallReceipt

	if err := json.NewDecoder(f).Decode(&rec); err != nil {
		return nil, err
	}

	return &rec, nil
}
