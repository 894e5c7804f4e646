package decl

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/scanner"
)

// Error is a parse or planning error at a position in the header.
type Error struct {
	Pos scanner.Position
	Msg string
}

func (e *Error) Error() string {
	if !e.Pos.IsValid() {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ParseFile parses the header at path.
func ParseFile(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return Parse(path, string(src))
}

// Parse parses header source. name is used in positions.
func Parse(name, src string) (f *File, err error) {
	p := &parser{file: &File{Name: name}, funcs: make(map[string]bool)}
	p.s.Init(strings.NewReader(src))
	p.s.Filename = name
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
		scanner.ScanChars | scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	p.s.Whitespace = 1<<'\t' | 1<<'\r' | 1<<' '
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.errorf(s.Pos(), "%s", msg)
	}

	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			f, err = nil, perr
		}
	}()

	p.next()
	for p.tok != scanner.EOF {
		p.topLevel()
	}
	return p.file, nil
}

type parser struct {
	s     scanner.Scanner
	tok   rune
	text  string
	pos   scanner.Position
	file  *File
	funcs map[string]bool
}

// errorf aborts the parse; Parse recovers the *Error.
func (p *parser) errorf(pos scanner.Position, format string, args ...any) {
	panic(&Error{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// next advances to the next token, skipping line breaks.
func (p *parser) next() {
	for {
		p.tok = p.s.Scan()
		if p.tok != '\n' {
			break
		}
	}
	p.text = p.s.TokenText()
	p.pos = p.s.Position
}

func (p *parser) is(word string) bool {
	return p.tok == scanner.Ident && p.text == word
}

func (p *parser) expect(tok rune) {
	if p.tok != tok {
		p.errorf(p.pos, "expected %s, found %s", scanner.TokenString(tok), p.found())
	}
	p.next()
}

func (p *parser) ident() string {
	if p.tok != scanner.Ident {
		p.errorf(p.pos, "expected identifier, found %s", p.found())
	}
	name := p.text
	p.next()
	return name
}

func (p *parser) found() string {
	if p.tok == scanner.EOF {
		return "end of file"
	}
	return strconv.Quote(p.text)
}

func (p *parser) topLevel() {
	switch {
	case p.tok == '#':
		p.directive()
	case p.tok == ';':
		p.next()
	case p.is("using"):
		p.next()
		if !p.is("namespace") {
			p.errorf(p.pos, "only 'using namespace' is supported")
		}
		p.next()
		if p.ident() == "std" {
			p.file.UsingStd = true
		}
		p.expect(';')
	case p.is("struct"):
		p.structDef()
	case p.is("class"), p.is("union"), p.is("enum"):
		p.errorf(p.pos, "%s is not supported", p.text)
	case p.is("namespace"), p.is("template"), p.is("typedef"):
		p.errorf(p.pos, "%s declarations are not supported", p.text)
	default:
		p.declaration()
	}
}

// directive reads a preprocessor line. Only #include is recorded.
func (p *parser) directive() {
	pos := p.pos
	p.s.Scan()
	name := p.s.TokenText()
	var parts []string
	for tok := p.s.Scan(); tok != '\n' && tok != scanner.EOF; tok = p.s.Scan() {
		parts = append(parts, p.s.TokenText())
	}
	if name == "include" {
		p.file.Includes = append(p.file.Includes, p.include(pos, parts))
	}
	p.next()
}

func (p *parser) include(pos scanner.Position, parts []string) *Include {
	switch {
	case len(parts) == 1 && strings.HasPrefix(parts[0], `"`):
		path, err := strconv.Unquote(parts[0])
		if err != nil {
			p.errorf(pos, "malformed #include: %v", err)
		}
		return &Include{Path: path}
	case len(parts) > 2 && parts[0] == "<" && parts[len(parts)-1] == ">":
		return &Include{Path: strings.Join(parts[1:len(parts)-1], ""), System: true}
	}
	p.errorf(pos, "malformed #include")
	return nil
}

func (p *parser) structDef() {
	pos := p.pos
	p.next()
	st := &Struct{Name: p.ident(), Pos: pos}
	if p.tok == ';' {
		p.next()
		return
	}
	p.expect('{')
	for p.tok != '}' {
		switch {
		case p.tok == scanner.EOF:
			p.errorf(pos, "struct %s is not closed", st.Name)
		case p.is("struct"), p.is("class"), p.is("union"):
			p.errorf(p.pos, "nested structs are not supported")
		case p.is("public"), p.is("private"), p.is("protected"):
			p.next()
			p.expect(':')
			continue
		}
		fpos := p.pos
		t := p.typ(false)
		name := p.ident()
		if p.tok == '(' {
			p.errorf(fpos, "member function %s is not supported", name)
		}
		if t.Name == "void" {
			p.errorf(fpos, "field %s has type void", name)
		}
		p.skipInitializer()
		p.expect(';')
		st.Fields = append(st.Fields, &Var{Type: t, Name: name, Pos: fpos})
	}
	p.next()
	p.expect(';')
	if _, dup := p.file.Struct(st.Name); dup {
		p.errorf(pos, "struct %s redefined", st.Name)
	}
	p.file.Structs = append(p.file.Structs, st)
}

func (p *parser) declaration() {
	pos := p.pos
	for p.is("inline") || p.is("static") || p.is("extern") || p.is("constexpr") {
		p.next()
	}
	t := p.typ(false)
	name := p.ident()
	if p.tok != '(' {
		if t.Name == "void" {
			p.errorf(pos, "variable %s has type void", name)
		}
		p.skipInitializer()
		p.expect(';')
		p.file.Vars = append(p.file.Vars, &Var{Type: t, Name: name, Pos: pos})
		return
	}

	fn := &Func{Return: t, Name: name, Pos: pos}
	p.next()
	for p.tok != ')' {
		ppos := p.pos
		pt := p.typ(false)
		if pt.Name == "void" && !pt.Pointer && p.tok == ')' && len(fn.Params) == 0 {
			break
		}
		v := &Var{Type: pt, Pos: ppos}
		if p.tok == scanner.Ident {
			v.Name = p.ident()
		}
		fn.Params = append(fn.Params, v)
		if p.tok != ',' {
			break
		}
		p.next()
	}
	p.expect(')')
	if p.tok == '{' {
		p.skipBlock()
		fn.HasBody = true
	} else {
		p.expect(';')
	}
	if p.funcs[name] {
		p.errorf(pos, "function %s is overloaded", name)
	}
	p.funcs[name] = true
	p.file.Funcs = append(p.file.Funcs, fn)
}

// typ parses a type. Inside template arguments, templates are rejected.
func (p *parser) typ(inTemplate bool) *Type {
	t := &Type{Pos: p.pos}
	for {
		if p.is("const") {
			t.Const = true
		} else if p.is("unsigned") {
			t.Unsigned = true
		} else if !p.is("signed") {
			break
		}
		p.next()
	}

	std := false
	if p.is("std") {
		p.next()
		p.expect(':')
		p.expect(':')
		std = true
	}
	if p.tok != scanner.Ident {
		p.errorf(p.pos, "expected type, found %s", p.found())
	}

	switch p.text {
	case "int", "char", "double", "float", "bool", "void":
		t.Name = p.text
		p.next()
	case "long", "short":
		t.Name = p.text
		p.next()
		for p.is("long") || p.is("int") {
			p.next()
		}
	case "string", "vector", "map":
		if !std && !p.file.UsingStd {
			p.errorf(p.pos, "%s needs std:: or 'using namespace std'", p.text)
		}
		t.Name = p.text
		p.next()
	case "tuple", "pair", "set", "unordered_map", "list", "array", "shared_ptr", "unique_ptr":
		p.errorf(p.pos, "std::%s is not supported", p.text)
	default:
		if t.Unsigned {
			// bare unsigned; the identifier is the declared name
			t.Name = "int"
		} else {
			t.Name = p.text
			p.next()
		}
	}

	if t.IsTemplate() {
		if inTemplate {
			p.errorf(t.Pos, "nested templates are not supported")
		}
		p.expect('<')
		for {
			t.Args = append(t.Args, p.typ(true))
			if p.tok != ',' {
				break
			}
			p.next()
		}
		p.expect('>')
		want := 1
		if t.Name == "map" {
			want = 2
		}
		if len(t.Args) != want {
			p.errorf(t.Pos, "%s takes %d template arguments, got %d", t.Name, want, len(t.Args))
		}
	}

	for {
		switch {
		case p.is("const"):
			t.Const = true
		case p.tok == '*':
			if t.Pointer {
				p.errorf(p.pos, "pointers to pointers are not supported")
			}
			if t.Reference {
				p.errorf(p.pos, "pointers to references are not supported")
			}
			t.Pointer = true
		case p.tok == '&':
			if t.Reference {
				p.errorf(p.pos, "r-value references are not supported")
			}
			t.Reference = true
		default:
			return t
		}
		p.next()
	}
}

// skipInitializer skips "= expr" or a braced initializer up to ';'.
func (p *parser) skipInitializer() {
	switch p.tok {
	case '=':
		for p.tok != ';' && p.tok != scanner.EOF {
			if p.tok == '{' {
				p.skipBlock()
				continue
			}
			p.next()
		}
	case '{':
		p.skipBlock()
	}
}

// skipBlock skips a balanced {...} block.
func (p *parser) skipBlock() {
	pos := p.pos
	depth := 0
	for {
		switch p.tok {
		case '{':
			depth++
		case '}':
			depth--
		case scanner.EOF:
			p.errorf(pos, "unbalanced braces")
		}
		p.next()
		if depth == 0 {
			return
		}
	}
}
