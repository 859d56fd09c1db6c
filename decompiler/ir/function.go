package ir

import "github.com/slowlang/unbox/decompiler/bits"

// RawInstr is one undecompilable instruction preserved for disassembly
// (spec.md §4.3 step 5, §7's AsmTail).
type RawInstr struct {
	Mnemonic string
	Operands []NamedOperand
}

// TailSliceInfo records the bit/ref residue left over after a decode error
// aborts the main loop (spec.md §4.1, §7).
type TailSliceInfo struct {
	Slice bits.Slice
}

// Function is the lifted body of one continuation or top-level code
// (spec.md §3). Errors never escape to the caller (spec.md §7): they are
// carried in-band in DecompileError/DisassembleError.
type Function struct {
	Name string // diagnostic only; not part of any invariant

	Args   []Def
	Body   []*Primitive
	Result []Ref

	AsmTail       []RawInstr
	TailSliceInfo *TailSliceInfo

	DecompileError   error
	DisassembleError error
}

// HasError reports whether this function (but not necessarily any nested
// continuation) carries a diagnostic.
func (f *Function) HasError() bool {
	return f.DecompileError != nil || f.DisassembleError != nil
}

// Defines reports whether id is defined by a formal parameter or a body
// primitive's output.
func (f *Function) Defines(id string) bool {
	for _, a := range f.Args {
		if a.ID == id {
			return true
		}
	}

	for _, p := range f.Body {
		for _, o := range p.Outputs {
			if o.Def.ID == id {
				return true
			}
		}
	}

	return false
}

// Uses counts how many times id is referenced as a RefArg input across the
// whole body (ignoring Result and ignoring ids already wrapped in an
// inline expression, since an inlined producer's own inputs are counted
// where they live, inside that inline expression). Used by
// passes.InlinePrevSingleUse's "used exactly once" test.
func (f *Function) Uses(id string) (n int) {
	var walk func(a Arg)

	walk = func(a Arg) {
		switch a := a.(type) {
		case RefArg:
			if a.Ref.ID == id {
				n++
			}
		case InlineArg:
			for _, in := range a.Prim.Inputs {
				walk(in.Arg)
			}
		}
	}

	for _, p := range f.Body {
		for _, in := range p.Inputs {
			walk(in.Arg)
		}
	}

	return n
}
