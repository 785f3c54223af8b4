package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/AdaCore/lmod-manager/pkg/lmod"
	"github.com/AdaCore/lmod-manager/pkg/tool"
)

type ModuleCheck struct {
	common
}

// CheckReport is the verdict on one module file: what it does to the
// environment, and whether that matches the installation on disk.
type CheckReport struct {
	Name    string
	Version string

	Modulefile string
	Prefix     string

	// BinDir is the directory the module file puts on PATH.
	BinDir string

	Env *lmod.Env

	Problems []string
}

func (r *CheckReport) OK() bool {
	return len(r.Problems) == 0
}

func (r *CheckReport) Spec() string {
	return r.Name + "/" + r.Version
}

// ExportLines renders the module file's effect as shell export
// statements, the way an eval'able `module load` would.
func (r *CheckReport) ExportLines() []string {
	var out []string

	for _, op := range r.Env.Prepend {
		out = append(out, fmt.Sprintf("export %s=%s:$%s", op.Var, op.Value, op.Var))
	}

	for _, op := range r.Env.Append {
		out = append(out, fmt.Sprintf("export %s=$%s:%s", op.Var, op.Var, op.Value))
	}

	keys := make([]string, 0, len(r.Env.Setenv))
	for k := range r.Env.Setenv {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		out = append(out, fmt.Sprintf("export %s=%s", k, r.Env.Setenv[k]))
	}

	return out
}

// Check evaluates the module file for d and verifies that loading it
// would put a real installation's bin directory on PATH.
func (c *ModuleCheck) Check(ctx context.Context, ienv *InstallEnv, d *tool.Descriptor) (*CheckReport, error) {
	mf := lmod.Path(ienv.ModulesDir, d.ModuleName(), d.Version)

	if fi, err := os.Stat(mf); err != nil || fi.IsDir() {
		return nil, errors.Errorf("config file '%s' not found", mf)
	}

	env, err := lmod.Eval(mf)
	if err != nil {
		return nil, track(err)
	}

	rep := &CheckReport{
		Name:       d.ModuleName(),
		Version:    d.Version,
		Modulefile: mf,
		Prefix:     ienv.Prefix(d),
		Env:        env,
	}

	c.L().Debug("evaluated module file", "path", mf,
		"prepends", len(env.Prepend), "appends", len(env.Append))

	expect := filepath.Join(rep.Prefix, "bin")

	paths := env.PathValues("PATH")

	switch {
	case len(paths) == 0:
		rep.Problems = append(rep.Problems, "module file never touches PATH")
	default:
		rep.BinDir = paths[0]

		if len(paths) > 1 {
			rep.Problems = append(rep.Problems,
				fmt.Sprintf("module file touches PATH %d times", len(paths)))
		}

		if paths[0] != expect {
			rep.Problems = append(rep.Problems,
				fmt.Sprintf("PATH gets %s, expected %s", paths[0], expect))
		}
	}

	if fi, err := os.Stat(rep.Prefix); err != nil || !fi.IsDir() {
		rep.Problems = append(rep.Problems,
			fmt.Sprintf("installation directory %s not found", rep.Prefix))

		return rep, nil
	}

	if fi, err := os.Stat(filepath.Join(rep.Prefix, d.Product.Marker)); err != nil || fi.IsDir() {
		rep.Problems = append(rep.Problems,
			fmt.Sprintf("installation is missing %s", d.Product.Marker))
	}

	if rep.BinDir != "" {
		if fi, err := os.Stat(rep.BinDir); err != nil || !fi.IsDir() {
			rep.Problems = append(rep.Problems,
				fmt.Sprintf("PATH entry %s is not a directory", rep.BinDir))
		}
	}

	return rep, nil
}
