package decl

import (
	"fmt"
	"go/token"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Plan is the binding plan for one header: what each declaration becomes
// on the Go side.
type Plan struct {
	Module  string       `yaml:"module"`
	Source  string       `yaml:"source,omitempty"`
	Structs []StructPlan `yaml:"structs,omitempty"`
	Globals []GlobalPlan `yaml:"globals,omitempty"`
	Funcs   []FuncPlan   `yaml:"functions,omitempty"`
}

// StructPlan is an exposed aggregate.
type StructPlan struct {
	Name   string      `yaml:"name"`
	Fields []FieldPlan `yaml:"fields"`
}

// FieldPlan is one aggregate field.
type FieldPlan struct {
	Name     string `yaml:"name"`
	GoName   string `yaml:"go_name"`
	GoType   string `yaml:"go_type"`
	Readonly bool   `yaml:"readonly,omitempty"`
}

// GlobalPlan is a process-wide variable exposed through an accessor.
type GlobalPlan struct {
	Name     string `yaml:"name"`
	GoName   string `yaml:"go_name"`
	GoType   string `yaml:"go_type"`
	Accessor string `yaml:"accessor"`
}

// FuncPlan is a bridged function.
type FuncPlan struct {
	Name   string      `yaml:"name"`
	GoName string      `yaml:"go_name"`
	Params []ParamPlan `yaml:"params,omitempty"`
	Result string      `yaml:"result,omitempty"`
	// Return is "alias" for pointer and reference results, "copy" for
	// values and empty for void.
	Return string `yaml:"return,omitempty"`
}

// ParamPlan is one function parameter.
type ParamPlan struct {
	Name   string `yaml:"name"`
	GoType string `yaml:"go_type"`
}

// Build maps a parsed header to a binding plan. The module is named after
// the header file.
func Build(f *File) (*Plan, error) {
	base := filepath.Base(f.Name)
	p := &Plan{
		Module: strings.TrimSuffix(base, filepath.Ext(base)),
		Source: f.Name,
	}
	b := &builder{file: f}

	for _, st := range f.Structs {
		sp := StructPlan{Name: exported(st.Name)}
		for _, field := range st.Fields {
			gt, err := b.goType(field.Type, false)
			if err != nil {
				return nil, err
			}
			sp.Fields = append(sp.Fields, FieldPlan{
				Name:     field.Name,
				GoName:   exported(field.Name),
				GoType:   gt,
				Readonly: field.Type.Const && !field.Type.Pointer && !field.Type.Reference,
			})
		}
		p.Structs = append(p.Structs, sp)
	}

	for _, v := range f.Vars {
		gt, err := b.goType(v.Type, false)
		if err != nil {
			return nil, err
		}
		p.Globals = append(p.Globals, GlobalPlan{
			Name:     v.Name,
			GoName:   exported(v.Name),
			GoType:   strings.TrimPrefix(gt, "*"),
			Accessor: "get_" + v.Name,
		})
	}

	for _, fn := range f.Funcs {
		fp := FuncPlan{Name: fn.Name, GoName: exported(fn.Name)}
		for i, param := range fn.Params {
			gt, err := b.goType(param.Type, true)
			if err != nil {
				return nil, err
			}
			fp.Params = append(fp.Params, ParamPlan{Name: paramName(param.Name, i), GoType: gt})
		}
		if fn.Return.Name != "void" || fn.Return.Pointer {
			gt, err := b.goType(fn.Return, false)
			if err != nil {
				return nil, err
			}
			fp.Result = gt
			fp.Return = "copy"
			if strings.HasPrefix(gt, "*") {
				fp.Return = "alias"
			}
		}
		p.Funcs = append(p.Funcs, fp)
	}
	return p, nil
}

// YAML renders the plan.
func (p *Plan) YAML() ([]byte, error) {
	return yaml.Marshal(p)
}

// ParsePlan reads a plan rendered by YAML, possibly edited by hand.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if p.Module == "" {
		return nil, fmt.Errorf("parse plan: module is required")
	}
	return &p, nil
}

type builder struct {
	file *File
}

var basicTypes = map[string][2]string{
	// signed, unsigned
	"int":    {"int32", "uint32"},
	"long":   {"int64", "uint64"},
	"short":  {"int16", "uint16"},
	"char":   {"int8", "uint8"},
	"double": {"float64", ""},
	"float":  {"float32", ""},
	"bool":   {"bool", ""},
}

// goType maps a declared type. Pointers and references to aggregates and
// containers become Go pointers; for parameters a reference to a scalar is
// passed by value since scripts hold no scalar locations.
func (b *builder) goType(t *Type, param bool) (string, error) {
	if t.IsCString() {
		return "string", nil
	}
	elem, err := b.baseType(t)
	if err != nil {
		return "", err
	}
	if !t.Pointer && !t.Reference {
		return elem, nil
	}
	if param && t.Reference && t.Args == nil {
		if _, ok := b.file.Struct(t.Name); !ok {
			return elem, nil
		}
	}
	if t.Name == "void" {
		return "", &Error{Pos: t.Pos, Msg: "void pointers are not supported"}
	}
	return "*" + elem, nil
}

func (b *builder) baseType(t *Type) (string, error) {
	switch t.Name {
	case "string":
		return "string", nil
	case "void":
		return "", nil
	case "vector":
		elem, err := b.argType(t.Args[0])
		if err != nil {
			return "", err
		}
		return "[]" + elem, nil
	case "map":
		key, err := b.argType(t.Args[0])
		if err != nil {
			return "", err
		}
		if _, ok := b.file.Struct(t.Args[0].Name); ok {
			return "", &Error{Pos: t.Args[0].Pos, Msg: fmt.Sprintf("map key %s is not an ordered type", t.Args[0].Name)}
		}
		val, err := b.argType(t.Args[1])
		if err != nil {
			return "", err
		}
		return "map[" + key + "]" + val, nil
	}
	if names, ok := basicTypes[t.Name]; ok {
		if !t.Unsigned {
			return names[0], nil
		}
		if names[1] == "" {
			return "", &Error{Pos: t.Pos, Msg: fmt.Sprintf("unsigned %s is not a type", t.Name)}
		}
		return names[1], nil
	}
	if _, ok := b.file.Struct(t.Name); ok {
		return exported(t.Name), nil
	}
	return "", &Error{Pos: t.Pos, Msg: fmt.Sprintf("unknown type %s", t.Name)}
}

// argType maps a template argument. Elements are stored by value.
func (b *builder) argType(t *Type) (string, error) {
	if t.IsCString() {
		return "string", nil
	}
	if t.Pointer || t.Reference {
		return "", &Error{Pos: t.Pos, Msg: "containers of pointers or references are not supported"}
	}
	return b.baseType(t)
}

// exported turns a snake_case or camelCase name into an exported Go name.
func exported(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' {
			upper = true
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}

func paramName(name string, i int) string {
	if name == "" {
		return fmt.Sprintf("arg%d", i+1)
	}
	if token.IsKeyword(name) {
		return name + "_"
	}
	return name
}
