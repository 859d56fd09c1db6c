package ir

// NamedArg, NamedOperand, and NamedDef are the ordered (name, value) list
// elements spec.md §9 insists on over keyed maps: "Implementers should not
// hash these into unordered containers," since later operands and
// outputs reference earlier ones by position and name.
type (
	NamedArg struct {
		Name string
		Arg  Arg
	}

	NamedOperand struct {
		Name  string
		Value Value
	}

	NamedDef struct {
		Name string
		Def  Def
	}
)

// Primitive is one IR instruction: the result of lifting a single
// non-shuffle opcode (spec.md §3, §4.3 step 3d). Mnemonic and Category are
// copied from the catalog spec, so a Primitive can be inspected without the
// catalog.
type Primitive struct {
	Mnemonic string
	Category string

	Inputs   []NamedArg
	Operands []NamedOperand
	Outputs  []NamedDef
}

// OutputIDs returns the identifiers this primitive defines, in order.
func (p *Primitive) OutputIDs() []string {
	ids := make([]string, len(p.Outputs))
	for i, o := range p.Outputs {
		ids[i] = o.Def.ID
	}

	return ids
}

// SingleOutput returns the sole output definition, for producers the
// pipeline may inline (spec.md §4.4: "that has exactly one output").
func (p *Primitive) SingleOutput() (Def, bool) {
	if len(p.Outputs) != 1 {
		return Def{}, false
	}

	return p.Outputs[0].Def, true
}
