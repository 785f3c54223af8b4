package lmod

import (
	"bytes"
	_ "embed"
	"path/filepath"
	"text/template"
)

//go:embed module.tmpl
var moduleTmpl string

var tmpl = template.Must(template.New("module").Parse(moduleTmpl))

// Path is the location of the module file for name/version under the
// modules root. Lmod derives the module's identity from this layout.
func Path(root, name, version string) string {
	return filepath.Join(root, name, version+".lua")
}

// Render produces a module file body for distributions installed under
// root. The file itself stays generic; Lmod fills in the name and
// version from where the file lives.
func Render(root string) ([]byte, error) {
	var buf bytes.Buffer

	err := tmpl.Execute(&buf, struct{ Root string }{Root: root})
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
