package ir

import (
	"fmt"
	"math/big"

	"github.com/slowlang/unbox/decompiler/bits"
)

// Value is the tagged-variant operand value of spec.md §3: "Tagged-variant
// operand values replace heterogeneous dynamically-typed maps" (§9). Each
// concrete type below is one arm; the interface is sealed by an unexported
// method, so no type outside this package can be a Value.
type Value interface {
	irValue()
}

type (
	Int     int64
	BigInt  struct{ V *big.Int }
	Bool    bool
	SliceV  struct{ S bits.Slice }
	CellV   struct{ C *bits.Cell }
	Cont    struct{ Fn *Function }
	ContMap struct{ Methods map[int32]*Function }
	Other   struct{ V any }
)

func (Int) irValue()     {}
func (BigInt) irValue()  {}
func (Bool) irValue()    {}
func (SliceV) irValue()  {}
func (CellV) irValue()   {}
func (Cont) irValue()    {}
func (ContMap) irValue() {}
func (Other) irValue()   {}

func (v Int) String() string    { return fmt.Sprintf("%d", int64(v)) }
func (v BigInt) String() string { return v.V.String() }
func (v Bool) String() string   { return fmt.Sprintf("%t", bool(v)) }
func (v SliceV) String() string { return fmt.Sprintf("slice(%d bits, %d refs)", v.S.BitsLen(), v.S.RefsLen()) }
func (v CellV) String() string  { return "cell" }
func (v Cont) String() string   { return fmt.Sprintf("cont(%s)", v.Fn.Name) }
func (v ContMap) String() string {
	return fmt.Sprintf("cont_map(%d methods)", len(v.Methods))
}
func (v Other) String() string { return fmt.Sprintf("other(%v)", v.V) }

// TypeHint is the optional static type hint carried by a Ref or Def
// (spec.md §3). It names the operand-value family the id is statically
// known to hold, when the lifter can tell without running the program —
// adapted from the teacher's tp.Type, narrowed to this domain's closed set
// of operand kinds instead of tp's open machine-type hierarchy.
type TypeHint int

const (
	HintUnknown TypeHint = iota
	HintInt
	HintBigInt
	HintBool
	HintSlice
	HintCell
	HintCont
	HintContMap
	HintOther
)

func (h TypeHint) String() string {
	switch h {
	case HintInt:
		return "int"
	case HintBigInt:
		return "bigint"
	case HintBool:
		return "bool"
	case HintSlice:
		return "slice"
	case HintCell:
		return "cell"
	case HintCont:
		return "cont"
	case HintContMap:
		return "cont_map"
	case HintOther:
		return "other"
	default:
		return "unknown"
	}
}
