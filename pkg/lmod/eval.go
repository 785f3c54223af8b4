package lmod

import (
	"path/filepath"
	"strings"

	lua "github.com/Shopify/go-lua"
	"github.com/pkg/errors"
)

// PathOp is one prepend_path or append_path performed by a module file.
type PathOp struct {
	Var   string
	Value string
}

// Env collects the environment mutations a module file performs when
// loaded, in the order Lmod would apply them.
type Env struct {
	Prepend []PathOp
	Append  []PathOp
	Setenv  map[string]string
}

// Eval interprets the module file at path with the same builtins Lmod
// provides, deriving the module name and version from the file's
// location, and records what it does to the environment.
func Eval(path string) (*Env, error) {
	env := &Env{Setenv: map[string]string{}}

	version := strings.TrimSuffix(filepath.Base(path), ".lua")
	name := filepath.Base(filepath.Dir(path))

	l := lua.NewState()
	lua.OpenLibraries(l)

	l.Register("myModuleName", func(l *lua.State) int {
		l.PushString(name)
		return 1
	})

	l.Register("myModuleVersion", func(l *lua.State) int {
		l.PushString(version)
		return 1
	})

	l.Register("myFileName", func(l *lua.State) int {
		l.PushString(path)
		return 1
	})

	l.Register("pathJoin", func(l *lua.State) int {
		top := l.Top()

		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, lua.CheckString(l, i))
		}

		l.PushString(strings.Join(parts, "/"))
		return 1
	})

	l.Register("prepend_path", func(l *lua.State) int {
		env.Prepend = append(env.Prepend, PathOp{
			Var:   lua.CheckString(l, 1),
			Value: lua.CheckString(l, 2),
		})
		return 0
	})

	l.Register("append_path", func(l *lua.State) int {
		env.Append = append(env.Append, PathOp{
			Var:   lua.CheckString(l, 1),
			Value: lua.CheckString(l, 2),
		})
		return 0
	})

	l.Register("setenv", func(l *lua.State) int {
		env.Setenv[lua.CheckString(l, 1)] = lua.CheckString(l, 2)
		return 0
	})

	if err := lua.LoadFile(l, path, ""); err != nil {
		return nil, errors.Wrapf(err, "loading module file %s", path)
	}

	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return nil, errors.Wrapf(err, "evaluating module file %s", path)
	}

	return env, nil
}

// PathValues returns the values a module file contributes to an
// environment variable, prepends first.
func (e *Env) PathValues(name string) []string {
	var vals []string

	for _, op := range e.Prepend {
		if op.Var == name {
			vals = append(vals, op.Value)
		}
	}

	for _, op := range e.Append {
		if op.Var == name {
			vals = append(vals, op.Value)
		}
	}

	return vals
}
