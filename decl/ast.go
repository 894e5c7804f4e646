// Package decl turns C++-style header declarations into tether bindings.
//
// A header is parsed into a [File], mapped to a [Plan] that decides Go types,
// readonly fields and return modes, and rendered by [Generate] as a Go
// source skeleton: tagged structs, function stubs and a Module constructor.
//
// The accepted subset is deliberately small:
//
//	#include <map>
//	using namespace std;
//
//	struct Rocket {
//	    double      max_speed;
//	    const long  price;
//	    std::string name;
//	};
//
//	inline std::map<std::string, Rocket> fleet;
//	std::vector<Rocket>& rockets();
//	void launch(Rocket* r, char const* where);
//
// Nested templates, pointers to pointers, r-value references, overloaded
// functions and nested structs are rejected.
package decl

import "text/scanner"

// Type is a declared type.
type Type struct {
	// Name is a builtin (int, long, short, char, double, float, bool, void),
	// "string", "vector", "map", or the name of a declared struct.
	Name string

	Unsigned  bool
	Const     bool
	Pointer   bool
	Reference bool

	// Args holds template arguments of vector and map.
	Args []*Type

	Pos scanner.Position
}

// IsTemplate reports whether t is a vector or a map.
func (t *Type) IsTemplate() bool { return t.Name == "vector" || t.Name == "map" }

// IsCString reports whether t is char const* (or const char*).
func (t *Type) IsCString() bool { return t.Name == "char" && t.Pointer && t.Const && !t.Unsigned }

// Var is a struct member, a parameter, or an inline variable.
type Var struct {
	Type *Type
	Name string
	Pos  scanner.Position
}

// Func is a function declaration or definition. Bodies are skipped.
type Func struct {
	Return  *Type
	Name    string
	Params  []*Var
	HasBody bool
	Pos     scanner.Position
}

// Struct is a struct definition.
type Struct struct {
	Name   string
	Fields []*Var
	Pos    scanner.Position
}

// Include is an #include directive.
type Include struct {
	Path   string
	System bool // <path> rather than "path"
}

// File is a parsed header.
type File struct {
	Name     string
	Includes []*Include
	UsingStd bool
	Structs  []*Struct
	Funcs    []*Func
	Vars     []*Var
}

// Struct returns the struct named name.
func (f *File) Struct(name string) (*Struct, bool) {
	for _, s := range f.Structs {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}
