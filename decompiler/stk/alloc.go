// Package stk implements the symbolic stack machine of spec.md §4.2: the
// abstract operand stack the lifter drives, its four shuffle primitives,
// and the conditional-alignment guard.
package stk

import "fmt"

// IDAllocator mints fresh, globally-unique-within-one-run identifiers
// (spec.md §5: "must be *per decompilation run* (not process-global)").
// One allocator is shared by a top-level lift and every continuation it
// recursively lifts (spec.md §9's open question resolved in favor of "a
// single counter per top-level lift so that identifiers are globally
// unique").
type IDAllocator struct {
	vars int
	args int
}

// NewVar mints a fresh intermediate value identifier ("varN").
func (a *IDAllocator) NewVar() string {
	id := fmt.Sprintf("var%d", a.vars)
	a.vars++

	return id
}

// NewArg mints a fresh formal-parameter identifier ("argN").
func (a *IDAllocator) NewArg() string {
	id := fmt.Sprintf("arg%d", a.args)
	a.args++

	return id
}
