package ir

// Program is the top-level decompiler output (spec.md §3, §6): either a
// single function or a numbered method map, as produced by the entry
// heuristic (spec.md §4.5).
type Program struct {
	Entry   *Function        // set when this is a Single program
	Methods map[int32]*Function // set when this is a Multi program
}

// Single wraps fn as a single-function program.
func Single(fn *Function) *Program {
	return &Program{Entry: fn}
}

// Multi wraps methods as a method-dictionary program.
func Multi(methods map[int32]*Function) *Program {
	return &Program{Methods: methods}
}

// IsMulti reports whether this program is a method dictionary.
func (p *Program) IsMulti() bool {
	return p.Methods != nil
}

// SortedMethodIDs returns the method keys in ascending order (spec.md §8
// scenario D: "methods pretty-printable in ascending key order").
func (p *Program) SortedMethodIDs() []int32 {
	ids := make([]int32, 0, len(p.Methods))
	for id := range p.Methods {
		ids = append(ids, id)
	}

	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}

	return ids
}
