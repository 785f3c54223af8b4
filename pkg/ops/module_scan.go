package ops

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AdaCore/lmod-manager/pkg/data"
	"github.com/AdaCore/lmod-manager/pkg/fileutils"
	"github.com/AdaCore/lmod-manager/pkg/progress"
	"github.com/AdaCore/lmod-manager/pkg/tool"
)

// ModuleStatus classifies what a scan found for one module/version.
type ModuleStatus int

const (
	// StatusOK means the module file has a valid installation behind it.
	StatusOK ModuleStatus = iota

	// StatusNoInstall means the module file points at nothing usable.
	StatusNoInstall

	// StatusUnregistered means an installation exists with no module
	// file registering it.
	StatusUnregistered
)

func (s ModuleStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoInstall:
		return "no-install"
	case StatusUnregistered:
		return "unregistered"
	default:
		return "unknown"
	}
}

// ScannedModule is one module/version turned up by a scan, seen from
// either side: the modules tree or the install tree.
type ScannedModule struct {
	Name    string
	Version string

	Modulefile string
	Prefix     string

	Status ModuleStatus

	Receipt *data.InstallReceipt

	// Size is filled when the scan measures prefixes.
	Size fileutils.Removed
}

func (s *ScannedModule) Spec() string {
	return s.Name + "/" + s.Version
}

type ModuleScan struct {
	common
}

// Scan reconciles the modules tree against the install tree and
// reports every managed module it can see. Module files for software
// this tool does not manage are left alone.
func (m *ModuleScan) Scan(ctx context.Context, ienv *InstallEnv, withSize bool) ([]*ScannedModule, error) {
	if err := requireDir(ienv.ModulesDir); err != nil {
		return nil, err
	}

	if err := requireDir(ienv.InstallDir); err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}

	var out []*ScannedModule

	mods, err := m.scanModulefiles(ienv, seen)
	if err != nil {
		return nil, err
	}

	out = append(out, mods...)

	installs, err := m.scanInstalls(ienv, seen)
	if err != nil {
		return nil, err
	}

	out = append(out, installs...)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}

		return out[i].Version < out[j].Version
	})

	if withSize {
		pb := progress.Count(ctx, int64(len(out)), "Measuring installations")
		defer pb.Close()

		for _, sm := range out {
			if sm.Status != StatusUnregistered && sm.Status != StatusOK {
				pb.Tick()
				continue
			}

			pb.On(sm.Spec())

			sz, err := fileutils.TreeSize(sm.Prefix)
			if err != nil {
				return nil, track(err)
			}

			sm.Size = sz

			pb.Tick()
		}
	}

	return out, nil
}

func (m *ModuleScan) scanModulefiles(ienv *InstallEnv, seen map[string]struct{}) ([]*ScannedModule, error) {
	names, err := os.ReadDir(ienv.ModulesDir)
	if err != nil {
		return nil, track(err)
	}

	var out []*ScannedModule

	for _, nd := range names {
		if !nd.IsDir() || nd.Name()[0] == '.' {
			continue
		}

		versions, err := os.ReadDir(filepath.Join(ienv.ModulesDir, nd.Name()))
		if err != nil {
			return nil, track(err)
		}

		for _, vd := range versions {
			if vd.IsDir() || !strings.HasSuffix(vd.Name(), ".lua") {
				continue
			}

			version := strings.TrimSuffix(vd.Name(), ".lua")

			d, err := tool.FromModule(nd.Name() + "/" + version)
			if err != nil {
				m.L().Trace("skipping foreign module file",
					"name", nd.Name(), "version", version)
				continue
			}

			sm := &ScannedModule{
				Name:       d.ModuleName(),
				Version:    d.Version,
				Modulefile: filepath.Join(ienv.ModulesDir, nd.Name(), vd.Name()),
				Prefix:     ienv.Prefix(d),
				Status:     StatusNoInstall,
			}

			if fi, err := os.Stat(filepath.Join(sm.Prefix, d.Product.Marker)); err == nil && !fi.IsDir() {
				sm.Status = StatusOK
			}

			if rec, err := readReceipt(sm.Prefix); err == nil {
				sm.Receipt = rec
			}

			seen[sm.Spec()] = struct{}{}

			out = append(out, sm)
		}
	}

	return out, nil
}

func (m *ModuleScan) scanInstalls(ienv *InstallEnv, seen map[string]struct{}) ([]*ScannedModule, error) {
	names, err := os.ReadDir(ienv.InstallDir)
	if err != nil {
		return nil, track(err)
	}

	var out []*ScannedModule

	for _, nd := range names {
		if !nd.IsDir() || nd.Name()[0] == '.' {
			continue
		}

		versions, err := os.ReadDir(filepath.Join(ienv.InstallDir, nd.Name()))
		if err != nil {
			return nil, track(err)
		}

		for _, vd := range versions {
			if !vd.IsDir() {
				continue
			}

			d, err := tool.FromModule(nd.Name() + "/" + vd.Name())
			if err != nil {
				continue
			}

			if _, ok := seen[d.String()]; ok {
				continue
			}

			prefix := ienv.Prefix(d)

			// A version dir without the product's marker is not an
			// installation we own.
			if fi, err := os.Stat(filepath.Join(prefix, d.Product.Marker)); err != nil || fi.IsDir() {
				m.L().Trace("skipping unmarked directory", "path", prefix)
				continue
			}

			sm := &ScannedModule{
				Name:    d.ModuleName(),
				Version: d.Version,
				Prefix:  prefix,
				Status:  StatusUnregistered,
			}

			if rec, err := readReceipt(prefix); err == nil {
				sm.Receipt = rec
			}

			out = append(out, sm)
		}
	}

	return out, nil
}
