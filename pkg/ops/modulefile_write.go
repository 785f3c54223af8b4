package ops

import (
	"os"
	"path/filepath"

	"github.com/AdaCore/lmod-manager/pkg/lmod"
	"github.com/AdaCore/lmod-manager/pkg/tool"
)

type ModulefileWrite struct {
	common
}

// Write renders the module file for d and puts it in place, creating
// the module's directory as needed. An existing file for the same
// version is replaced, so reinstalling a distribution refreshes it.
func (m *ModulefileWrite) Write(ienv *InstallEnv, d *tool.Descriptor) (string, error) {
	data, err := lmod.Render(ienv.InstallDir)
	if err != nil {
		return "", track(err)
	}

	path := lmod.Path(ienv.ModulesDir, d.ModuleName(), d.Version)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", track(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", track(err)
	}

	m.L().Debug("wrote module file", "path", path)

	return path, nil
}
