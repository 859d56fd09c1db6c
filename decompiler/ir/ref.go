package ir

import "tlog.app/go/tlog/tlwire"

// ContinuationMeta is attached to the abstract stack value (and later the
// IR Ref) pushed by a "push continuation" opcode: it carries the already-
// lifted function so that a later conditional or jump target reading the
// continuation off the stack can resolve it without re-lifting (spec.md
// §3, §4.3 step 3d).
type ContinuationMeta struct {
	Continuation *Function
}

// Def introduces a new IR value identifier (spec.md §3: "a definition
// introduces a new one").
type Def struct {
	ID   string
	Hint TypeHint
}

// Ref names an existing IR value identifier (spec.md §3: "a reference
// names an existing value"). It may additionally carry ContinuationMeta
// when it refers to a continuation-valued stack slot.
type Ref struct {
	ID   string
	Hint TypeHint
	Cont *ContinuationMeta
}

func (d Def) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder
	return e.AppendString(b, d.ID)
}

func (r Ref) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder
	return e.AppendString(b, r.ID)
}

// Arg is an IR primitive's input argument: either a reference to a value
// defined earlier, or an inline expression embedding a whole producer
// primitive (spec.md §3, glossary "Inline expression" — the shape the two
// built-in passes produce).
type Arg interface {
	irArg()
}

type (
	RefArg    struct{ Ref Ref }
	InlineArg struct{ Prim *Primitive }
)

func (RefArg) irArg()    {}
func (InlineArg) irArg() {}
