// Package isa types the instruction-set catalog consumed by the decoder and
// lifter. The catalog itself is external data (spec.md §6): this package
// only gives it a shape and a loader.
package isa

type (
	// OperandKind is the loader kind of an operand declaration.
	OperandKind string

	// OperandDecl declares one operand of an instruction.
	OperandDecl struct {
		Name string      `yaml:"name"`
		Kind OperandKind `yaml:"type"`

		// Uint/Int
		Size int `yaml:"size,omitempty"`

		// Subslice
		BitsPadding       int    `yaml:"bits_padding,omitempty"`
		BitsLengthVarSize string `yaml:"bits_length_var_size,omitempty"`
		RefsAdd           int    `yaml:"refs_add,omitempty"`
		RefsLengthVarSize string `yaml:"refs_length_var_size,omitempty"`
		CompletionTag     bool   `yaml:"completion_tag,omitempty"`

		DisplayHints []string `yaml:"display_hints,omitempty"`
	}

	// RangeCheck disambiguates overlapping prefixes: after the prefix, the
	// next Length bits are read as an unsigned integer and must fall in
	// [From, To].
	RangeCheck struct {
		Length int `yaml:"length"`
		From   int `yaml:"from"`
		To     int `yaml:"to"`
	}

	// Bytecode is the wire-format half of a spec entry.
	Bytecode struct {
		Prefix           string        `yaml:"prefix"`
		OperandsRange    *RangeCheck   `yaml:"operands_range_check,omitempty"`
		Operands         []OperandDecl `yaml:"operands,omitempty"`
		TLB              string        `yaml:"tlb,omitempty"`
		DocOpcode        string        `yaml:"doc_opcode,omitempty"`
	}

	// Doc is free-form documentation metadata; Category is the only field
	// the decoder/lifter act on.
	Doc struct {
		Category string `yaml:"category"`
	}

	// StackEntry is one entry of a stack-input or stack-output shape.
	StackEntry struct {
		Shape string `yaml:"shape"` // "simple", "const", "array", "conditional"

		Name  string   `yaml:"name,omitempty"`
		Types []string `yaml:"types,omitempty"`

		// array
		LengthVar   string        `yaml:"length_var,omitempty"`
		ArrayEntry  []StackEntry  `yaml:"entry,omitempty"`

		// const
		ValueType string `yaml:"value_type,omitempty"`

		// conditional
		Match [][]StackEntry `yaml:"match,omitempty"`
		Else  []StackEntry   `yaml:"else,omitempty"`
	}

	// ValueFlow is the stack-input/stack-output declaration of an instruction.
	ValueFlow struct {
		Inputs  []StackEntry `yaml:"inputs,omitempty"`
		Outputs []StackEntry `yaml:"outputs,omitempty"`
	}

	// BranchSave describes what a branch target saves into a control
	// register when taken ("cc" = current continuation means this branch
	// returns; anything else means it jumps away for good).
	BranchSave struct {
		C0 string `yaml:"c0,omitempty"`
	}

	// Branch is one named control-flow target.
	Branch struct {
		Type     string      `yaml:"type"` // "variable"
		VarName  string      `yaml:"var_name"`
		FromOp   bool        `yaml:"from_operand,omitempty"`
		FromIn   bool        `yaml:"from_stack_input,omitempty"`
		Save     *BranchSave `yaml:"save,omitempty"`
	}

	// ControlFlow is the control-flow declaration of an instruction.
	ControlFlow struct {
		Branches []Branch `yaml:"branches,omitempty"`
		NoBranch bool     `yaml:"nobranch,omitempty"`
	}

	// ShuffleStep is one step of a stack_basic/stack_complex instruction's
	// decomposition into the four primitive stack operations (spec.md
	// §4.2). I/J are 0-based depths from the top of the stack; N is a
	// count. Which fields apply depends on Op.
	ShuffleStep struct {
		Op string `yaml:"op"` // "xchg", "blkpush", "blkpop", "reverse"
		I  int    `yaml:"i,omitempty"`
		J  int    `yaml:"j,omitempty"`
		N  int    `yaml:"n,omitempty"`
	}

	// Spec is one opcode's full catalog entry.
	Spec struct {
		Mnemonic  string        `yaml:"mnemonic"`
		Bytecode  Bytecode      `yaml:"bytecode"`
		Doc       Doc           `yaml:"doc"`
		ValueFlow ValueFlow     `yaml:"value_flow"`
		Control   ControlFlow   `yaml:"control_flow"`
		Shuffle   []ShuffleStep `yaml:"shuffle,omitempty"`
	}
)

const (
	KindUint     OperandKind = "uint"
	KindInt      OperandKind = "int"
	KindRef      OperandKind = "ref"
	KindLongInt  OperandKind = "long_int"
	KindSubslice OperandKind = "subslice"
)

const (
	CategoryStackBasic   = "stack_basic"
	CategoryStackComplex = "stack_complex"
	CategoryConstInt     = "const_int"
	CategoryConstData    = "const_data"
)

// IsStackShuffle reports whether cat is one of the two pure stack-shuffle
// categories (spec.md §4.3 step 3, glossary "Stack shuffle").
func IsStackShuffle(cat string) bool {
	return cat == CategoryStackBasic || cat == CategoryStackComplex
}

// IsConstProducer reports whether cat is one of the two pure constant
// categories that passes.InlineConstants targets.
func IsConstProducer(cat string) bool {
	return cat == CategoryConstInt || cat == CategoryConstData
}

// IsContinuation reports whether an operand declaration is display-hinted
// as a continuation (spec.md §4.3 step 2).
func (o OperandDecl) IsContinuation() bool {
	for _, h := range o.DisplayHints {
		if h == "continuation" {
			return true
		}
	}

	return false
}
