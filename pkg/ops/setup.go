package ops

import (
	"context"
	"fmt"
	"os"

	"github.com/AdaCore/lmod-manager/pkg/config"
)

type Setup struct {
	common
}

// Show prints the effective configuration and points out anything that
// would make install fail later. Missing directories are reported, not
// treated as errors, since setup is how you find out what to create.
func (s *Setup) Show(ctx context.Context, cfg *config.Config) error {
	ui := GetUI(ctx)

	state := "present"
	if _, err := os.Stat(cfg.Path()); err != nil {
		state = "not present, defaults in effect"
	}

	fmt.Printf("Config file: %s (%s)\n", cfg.Path(), state)
	fmt.Printf("Install dir: %s\n", cfg.InstallDir)
	fmt.Printf("Modules dir: %s\n", cfg.ModulesDir)
	fmt.Printf("Scratch dir: %s\n", cfg.ScratchBase())

	osName, osVersion, arch := config.Platform()
	fmt.Printf("Platform:    %s %s (%s)\n", osName, osVersion, arch)

	ok := true

	for _, dir := range []struct {
		label, path, env string
	}{
		{"install dir", cfg.InstallDir, "LMOD_MANAGER_INSTALL_DIR"},
		{"modules dir", cfg.ModulesDir, "LMOD_MANAGER_MODULES_DIR"},
	} {
		fi, err := os.Stat(dir.path)
		switch {
		case err != nil:
			ok = false
			fmt.Printf("%s %s %s does not exist. Create it or point %s somewhere else.\n",
				ui.Bad("!"), dir.label, dir.path, dir.env)
		case !fi.IsDir():
			ok = false
			fmt.Printf("%s %s %s is not a directory\n", ui.Bad("!"), dir.label, dir.path)
		}
	}

	if ok {
		fmt.Printf("%s ready to install\n", ui.Good("✓"))
	}

	return nil
}
