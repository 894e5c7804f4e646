package decl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"
)

const bindingTemplate = `// Bindings for module {{.Plan.Module}}{{with .Plan.Source}}, generated from {{.}}{{end}} by tether decl.
// Function bodies are stubs to fill in.

package {{.Package}}

import "github.com/feather-lang/tether"
{{range .Plan.Structs}}
type {{.Name}} struct {
{{- range .Fields}}
	{{.GoName}} {{.GoType}} ` + "`" + `tether:"{{.Name}}{{if .Readonly}},readonly{{end}}"` + "`" + `
{{- end}}
}
{{end}}
{{- range .Plan.Globals}}
// {{.GoName}} backs the global {{.Name}}.
var {{.GoName}} = tether.NewGlobal("{{.Name}}", func() {{.GoType}} {
	var v {{.GoType}}
	return v
})
{{end}}
{{- range .Plan.Globals}}
func {{accessor .}}() (*{{.GoType}}, error) {
	return {{.GoName}}.Get()
}
{{end}}
{{- range .Plan.Funcs}}
func {{.GoName}}({{params .Params}}) {{.Result}} {
	panic("{{.Name}}: not implemented")
}
{{end}}
// Module builds the "{{.Plan.Module}}" module.
func Module() *tether.Module {
	return tether.NewModule("{{.Plan.Module}}")
{{- range .Plan.Globals}}.
		Global({{.GoName}}).
		Def("{{.Accessor}}", {{accessor .}})
{{- end}}
{{- range .Plan.Funcs}}.
		Def("{{.Name}}", {{.GoName}}{{if eq .Return "alias"}}, tether.ReturnAlias(){{end}})
{{- end}}
}
`

var bindingTmpl = template.Must(template.New("binding").Funcs(template.FuncMap{
	"params": func(ps []ParamPlan) string {
		parts := make([]string, len(ps))
		for i, p := range ps {
			parts[i] = p.Name + " " + p.GoType
		}
		return strings.Join(parts, ", ")
	},
	"accessor": func(g GlobalPlan) string { return exported(g.Accessor) },
}).Parse(bindingTemplate))

// Generate renders plan as formatted Go source for package pkg.
func Generate(plan *Plan, pkg string) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Plan    *Plan
		Package string
	}{plan, pkg}
	if err := bindingTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	out, err := imports.Process(plan.Module+".go", buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("format generated code: %w\n%s", err, buf.Bytes())
	}
	return out, nil
}
