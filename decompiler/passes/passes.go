// Package passes implements the IR pass pipeline of spec.md §4.4: a fixed
// two-pass composition, recursing into continuation and method-dictionary
// operands before applying either pass locally.
package passes

import (
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/unbox/decompiler/ir"
	"github.com/slowlang/unbox/decompiler/isa"
)

// Pass transforms a well-formed IR function in place and returns it.
// Passes are infallible on well-formed input (spec.md §4.4: "any
// violation is a programmer error, not a user-visible failure").
type Pass func(fn *ir.Function) *ir.Function

// Pipeline is a linear composition of passes, run in order.
type Pipeline struct {
	Passes []Pass
}

// Default returns the two built-in passes in spec order: inline
// constants, then inline previous single-use.
func Default() Pipeline {
	return Pipeline{Passes: []Pass{InlineConstants, InlinePrevSingleUse}}
}

// Run recurses into every cont/cont_map operand first, then applies each
// pass in order (spec.md §4.4's "recursion" and "pipeline" rules).
func (p Pipeline) Run(fn *ir.Function) *ir.Function {
	if fn == nil {
		return fn
	}

	for _, prim := range fn.Body {
		for i, op := range prim.Operands {
			switch v := op.Value.(type) {
			case ir.Cont:
				nf := p.Run(v.Fn)
				if nf != v.Fn {
					prim.Operands[i].Value = ir.Cont{Fn: nf}
				}

			case ir.ContMap:
				changed := false
				next := make(map[int32]*ir.Function, len(v.Methods))

				for k, f := range v.Methods {
					nf := p.Run(f)
					if nf != f {
						changed = true
					}

					next[k] = nf
				}

				if changed {
					prim.Operands[i].Value = ir.ContMap{Methods: next}
				}
			}
		}
	}

	for _, pass := range p.Passes {
		fn = pass(fn)
	}

	return fn
}

// RunProgram applies the pipeline to every function in a program.
func (p Pipeline) RunProgram(prog *ir.Program) *ir.Program {
	if prog.IsMulti() {
		for k, fn := range prog.Methods {
			prog.Methods[k] = p.Run(fn)
		}

		return prog
	}

	prog.Entry = p.Run(prog.Entry)

	return prog
}

func inResult(fn *ir.Function, id string) bool {
	for _, r := range fn.Result {
		if r.ID == id {
			return true
		}
	}

	return false
}

// InlineConstants implements spec.md §4.4's first pass: every body
// statement whose category is const_int or const_data and has exactly
// one output is substituted into every use site; the producer is dropped
// from the body unless its output also appears in the function's result.
func InlineConstants(fn *ir.Function) *ir.Function {
	keep := make([]*ir.Primitive, 0, len(fn.Body))

	for _, prim := range fn.Body {
		if isa.IsConstProducer(prim.Category) {
			if def, ok := prim.SingleOutput(); ok {
				substitute(fn.Body, def.ID, prim)

				if !inResult(fn, def.ID) {
					continue
				}
			}
		}

		keep = append(keep, prim)
	}

	fn.Body = keep

	return fn
}

// substitute rewrites every RefArg naming id, anywhere in body (including
// inside already-inlined expressions), into an inline expression wrapping
// producer.
func substitute(body []*ir.Primitive, id string, producer *ir.Primitive) {
	var walk func(args []ir.NamedArg)

	walk = func(args []ir.NamedArg) {
		for i, a := range args {
			switch v := a.Arg.(type) {
			case ir.RefArg:
				if v.Ref.ID == id {
					args[i].Arg = ir.InlineArg{Prim: producer}
				}
			case ir.InlineArg:
				walk(v.Prim.Inputs)
			}
		}
	}

	for _, p := range body {
		if p == producer {
			continue
		}

		walk(p.Inputs)
	}
}

// InlinePrevSingleUse implements spec.md §4.4's second pass, iterated to
// fixpoint: for each adjacent pair (prev, curr) in the body, if prev has
// exactly one output that is not in result and is used exactly once in
// the whole body, and that sole use is a direct input of curr, prev is
// inlined into curr and deleted.
func InlinePrevSingleUse(fn *ir.Function) *ir.Function {
	for {
		if !inlineOnePass(fn) {
			break
		}
	}

	return fn
}

func inlineOnePass(fn *ir.Function) bool {
	for i := 0; i+1 < len(fn.Body); i++ {
		prev := fn.Body[i]
		curr := fn.Body[i+1]

		def, ok := prev.SingleOutput()
		if !ok {
			continue
		}

		if inResult(fn, def.ID) {
			continue
		}

		if fn.Uses(def.ID) != 1 {
			continue
		}

		idx := directInputIndex(curr, def.ID)
		if idx < 0 {
			continue
		}

		curr.Inputs[idx].Arg = ir.InlineArg{Prim: prev}
		fn.Body = append(fn.Body[:i], fn.Body[i+1:]...)

		tlog.V("inline").Printw("inlined single-use producer", "fn", fn.Name, "prev", prev.Mnemonic, "curr", curr.Mnemonic, "from", loc.Caller(1))

		return true
	}

	return false
}

func directInputIndex(prim *ir.Primitive, id string) int {
	for i, a := range prim.Inputs {
		if ra, ok := a.Arg.(ir.RefArg); ok && ra.Ref.ID == id {
			return i
		}
	}

	return -1
}
