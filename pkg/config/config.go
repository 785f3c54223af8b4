package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/shirou/gopsutil/v3/host"
)

type Config struct {
	path string

	// Actual Config
	ModulesDir string `json:"modules-dir"`
	InstallDir string `json:"install-dir"`
	ScratchDir string `json:"scratch-dir"`
}

const (
	DefaultConfigPath = "~/.config/lmod-manager/config.json"
	DefaultModulesDir = "/etc/lmod/modules"
	DefaultInstallDir = "/opt"
)

func LoadConfig() (*Config, error) {
	if loc := os.Getenv("LMOD_MANAGER_CONFIG"); loc != "" {
		return loadFile(loc)
	}

	path, err := homedir.Expand(DefaultConfigPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		return loadFile(path)
	}

	cfg := &Config{
		path: path,

		ModulesDir: DefaultModulesDir,
		InstallDir: DefaultInstallDir,
	}

	return updateFromEnv(cfg)
}

func loadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	var cfg Config

	err = json.NewDecoder(f).Decode(&cfg)
	if err != nil {
		return nil, err
	}

	cfg.path = path

	if cfg.ModulesDir == "" {
		cfg.ModulesDir = DefaultModulesDir
	}

	if cfg.InstallDir == "" {
		cfg.InstallDir = DefaultInstallDir
	}

	return updateFromEnv(&cfg)
}

func updateFromEnv(cfg *Config) (*Config, error) {
	if path := os.Getenv("LMOD_MANAGER_MODULES_DIR"); path != "" {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if !fi.IsDir() {
			return nil, fmt.Errorf("path is not a directory: %s", path)
		}

		cfg.ModulesDir = path
	}

	if path := os.Getenv("LMOD_MANAGER_INSTALL_DIR"); path != "" {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if !fi.IsDir() {
			return nil, fmt.Errorf("path is not a directory: %s", path)
		}

		cfg.InstallDir = path
	}

	if path := os.Getenv("LMOD_MANAGER_SCRATCH_DIR"); path != "" {
		cfg.ScratchDir = path
	}

	return cfg, nil
}

// Path is where the config was read from, or would be written to.
func (c *Config) Path() string {
	if c.path != "" {
		return c.path
	}

	path, err := homedir.Expand(DefaultConfigPath)
	if err != nil {
		return DefaultConfigPath
	}

	return path
}

// ScratchBase is the directory extraction scratch space is allocated
// under. Defaults to the system temp directory.
func (c *Config) ScratchBase() string {
	if c.ScratchDir != "" {
		return c.ScratchDir
	}

	return os.TempDir()
}

func Platform() (string, string, string) {
	osName, _, osVersion, err := host.PlatformInformation()
	if err != nil {
		panic(err)
	}

	arch, err := host.KernelArch()
	if err != nil {
		panic(err)
	}

	return osName, osVersion, arch
}

// HostMatches reports whether an archive built for the given
// architecture can run on this machine. Vendor archives name the
// architecture the way uname does ("x86_64", "aarch64").
func HostMatches(arch string) bool {
	hostArch, err := host.KernelArch()
	if err != nil {
		return true
	}

	if strings.Contains(arch, "-") {
		// Cross toolchains run on the host regardless of their target.
		return true
	}

	return hostArch == arch
}
