// Package render is a minimal textual pretty-printer for an ir.Program.
// It is not the core (spec.md §6 marks the real back-end external); it
// exists to make cmd/unbox useful end to end.
package render

import (
	"fmt"

	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/unbox/decompiler/ir"
)

// Program renders p as readable pseudocode.
func Program(p *ir.Program) []byte {
	var b []byte

	if p.IsMulti() {
		for _, id := range p.SortedMethodIDs() {
			b = renderFunc(b, fmt.Sprintf("method_%d", id), p.Methods[id], 0)
			b = append(b, '\n')
		}

		return b
	}

	return renderFunc(b, "entry", p.Entry, 0)
}

func renderFunc(b []byte, name string, fn *ir.Function, d int) []byte {
	b = app(b, d, "func %s(", name)

	for i, a := range fn.Args {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "%s", a.ID)
	}

	b = append(b, ") {\n"...)

	for _, prim := range fn.Body {
		b = renderPrimitive(b, prim, d+1)
	}

	b = app(b, d+1, "return %s\n", joinRefs(fn.Result))

	if fn.DecompileError != nil {
		b = app(b, d+1, "// decompileError: %v\n", fn.DecompileError)
	}

	if fn.DisassembleError != nil {
		b = app(b, d+1, "// disassembleError: %v\n", fn.DisassembleError)
	}

	for _, raw := range fn.AsmTail {
		b = app(b, d+1, "// asm %s\n", raw.Mnemonic)
	}

	b = app(b, d, "}\n")

	return b
}

func renderPrimitive(b []byte, p *ir.Primitive, d int) []byte {
	b = app(b, d, "%s = %s(", joinDefs(p.Outputs), p.Mnemonic)

	for i, in := range p.Inputs {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = renderArg(b, in.Arg)
	}

	b = append(b, ")\n"...)

	return b
}

func renderArg(b []byte, a ir.Arg) []byte {
	switch v := a.(type) {
	case ir.RefArg:
		return hfmt.Appendf(b, "%s", v.Ref.ID)
	case ir.InlineArg:
		b = hfmt.Appendf(b, "%s(", v.Prim.Mnemonic)

		for i, in := range v.Prim.Inputs {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = renderArg(b, in.Arg)
		}

		return append(b, ')')
	default:
		return append(b, "?"...)
	}
}

func joinDefs(defs []ir.NamedDef) string {
	if len(defs) == 0 {
		return "_"
	}

	s := ""

	for i, d := range defs {
		if i != 0 {
			s += ", "
		}

		s += d.Def.ID
	}

	return s
}

func joinRefs(refs []ir.Ref) string {
	s := ""

	for i, r := range refs {
		if i != 0 {
			s += ", "
		}

		s += r.ID
	}

	return s
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"

	if d < len(tabs) {
		b = append(b, tabs[:d]...)
	}

	return hfmt.Appendf(b, f, args...)
}
