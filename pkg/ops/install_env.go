package ops

import (
	"path/filepath"

	"github.com/AdaCore/lmod-manager/pkg/config"
	"github.com/AdaCore/lmod-manager/pkg/tool"
)

// lockName sits at the top of the install dir while an install or
// uninstall is mutating it.
const lockName = ".lmod-manager-lock"

type InstallEnv struct {
	// Directory installations are placed under, one prefix per
	// module name and version
	InstallDir string

	// Directory module files are written beneath
	ModulesDir string

	// Directory scratch extraction space is allocated in
	ScratchBase string

	// Indicates that the scratch dir should be kept around after the
	// install, for poking at a misbehaving vendor installer
	KeepScratch bool

	// Describe what would be done without doing it
	Explain bool
}

// NewInstallEnv seeds an environment from loaded configuration. The
// callers then layer command line flags on top.
func NewInstallEnv(cfg *config.Config) *InstallEnv {
	return &InstallEnv{
		InstallDir:  cfg.InstallDir,
		ModulesDir:  cfg.ModulesDir,
		ScratchBase: cfg.ScratchBase(),
	}
}

// Prefix is where a distribution lands on disk.
func (e *InstallEnv) Prefix(d *tool.Descriptor) string {
	return filepath.Join(e.InstallDir, d.ModuleName(), d.Version)
}

// LockPath is the advisory lock guarding the install dir.
func (e *InstallEnv) LockPath() string {
	return filepath.Join(e.InstallDir, lockName)
}
