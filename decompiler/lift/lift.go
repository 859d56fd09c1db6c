// Package lift implements the symbolic-interpreter lifter of spec.md
// §4.3: it drives decode.One and stk.Stack over a bit-slice and produces
// an ir.Function, resolving continuation operands by recursively lifting
// them.
package lift

import (
	"context"
	"fmt"

	"tlog.app/go/tlog"

	"github.com/slowlang/unbox/decompiler/bits"
	"github.com/slowlang/unbox/decompiler/decode"
	"github.com/slowlang/unbox/decompiler/ir"
	"github.com/slowlang/unbox/decompiler/isa"
	"github.com/slowlang/unbox/decompiler/stk"
)

const maxUnderflowRetries = 10

// lifter holds the state shared across one top-level lift and every
// continuation it recursively lifts: the catalog, the single per-run
// identifier allocator (spec.md §9: "a single counter per top-level
// lift"), and the scheduling strategy for continuation operands.
type lifter struct {
	cat   *isa.Catalog
	alloc *stk.IDAllocator
	tr    tlog.Span

	// schedule resolves a continuation operand's slice into a *ir.Function.
	// The default (Slice) resolves it eagerly via direct recursion;
	// SliceWorklist resolves it lazily through an explicit heap-ordered
	// worklist (spec.md §9: "implementers preferring iteration over
	// recursion should use an explicit worklist").
	schedule func(name string, s bits.Slice, depth int) *ir.Function
}

// Slice lifts root into a single IR function. The error return is always
// nil — spec.md §4.3's "deterministic, total: never panics" contract is
// upheld by storing every failure in the returned function's diagnostic
// fields instead. The signature still returns an error for idiomatic Go
// call sites and is exercised by tests that assert it is always nil.
func Slice(ctx context.Context, cat *isa.Catalog, root bits.Slice) (fn *ir.Function, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lift.Slice")
	defer tr.Finish("err", &err)

	l := &lifter{cat: cat, alloc: &stk.IDAllocator{}, tr: tr}
	l.schedule = func(name string, s bits.Slice, depth int) *ir.Function {
		child := &ir.Function{Name: name}
		l.process(child, s, depth)

		return child
	}

	fn = &ir.Function{Name: "entry"}
	l.process(fn, root, 0)

	return fn, nil
}

// process runs the main loop (spec.md §4.3) over fn's body starting at s.
// depth is this function's continuation-nesting depth, used only to order
// the SliceWorklist heap.
func (l *lifter) process(fn *ir.Function, s bits.Slice, depth int) {
	stack := stk.New(l.alloc)
	cur := s.Clone()

	for {
		if cur.BitsLen() == 0 {
			if cur.RefsLen() == 0 {
				break
			}

			nref, err := cur.NextRef()
			if err != nil {
				break
			}

			cur = nref

			continue
		}

		instrStart := cur.Clone()

		instr, err := decode.One(l.cat, &cur)
		if err != nil {
			fn.DisassembleError = err
			fn.TailSliceInfo = &ir.TailSliceInfo{Slice: instrStart}

			break
		}

		l.resolveContinuations(fn, instr, depth)

		if fn.DecompileError != nil {
			fn.AsmTail = append(fn.AsmTail, ir.RawInstr{Mnemonic: instr.Spec.Mnemonic, Operands: instr.Operands})
			continue
		}

		if err := l.execWithRetry(fn, stack, instr); err != nil {
			fn.DecompileError = err
			fn.AsmTail = append(fn.AsmTail, ir.RawInstr{Mnemonic: instr.Spec.Mnemonic, Operands: instr.Operands})
		}
	}

	fn.Result = stackResult(stack)

	if stack.HasGuard() {
		fn.DecompileError = &stk.ErrGuardUnresolved{}
	}
}

// resolveContinuations implements step 2 of spec.md §4.3: every operand
// display-hinted as a continuation is recursively lifted and its value
// replaced with ir.Cont.
func (l *lifter) resolveContinuations(fn *ir.Function, instr *decode.Instr, depth int) {
	for i, op := range instr.Operands {
		decl := operandDecl(instr.Spec, op.Name)
		if decl == nil || !decl.IsContinuation() {
			continue
		}

		sv, ok := op.Value.(ir.SliceV)
		if !ok {
			continue
		}

		childName := fmt.Sprintf("%s.%s", fn.Name, op.Name)
		child := l.schedule(childName, sv.S, depth+1)

		instr.Operands[i].Value = ir.Cont{Fn: child}
	}
}

func operandDecl(spec *isa.Spec, name string) *isa.OperandDecl {
	for i := range spec.Bytecode.Operands {
		if spec.Bytecode.Operands[i].Name == name {
			return &spec.Bytecode.Operands[i]
		}
	}

	return nil
}

// execWithRetry implements steps 3 and 4 of spec.md §4.3: attempt the
// instruction on a stack snapshot, and on StackUnderflow synthesize fresh
// arguments and retry, up to the cap.
func (l *lifter) execWithRetry(fn *ir.Function, stack *stk.Stack, instr *decode.Instr) error {
	for retry := 0; ; retry++ {
		snap := stack.Copy()

		prim, err := l.tryExec(snap, instr)
		if err == nil {
			stack.Assign(snap)

			if prim != nil {
				fn.Body = append(fn.Body, prim)
			}

			return nil
		}

		su, ok := err.(*stk.StackUnderflow)
		if !ok {
			return err
		}

		if retry >= maxUnderflowRetries {
			return &TooManyRetries{Mnemonic: instr.Spec.Mnemonic}
		}

		ids := stack.InsertArgsAtBottom(su.Depth)

		newArgs := make([]ir.Def, len(ids))
		for i, id := range ids {
			newArgs[i] = ir.Def{ID: id}
		}

		fn.Args = append(newArgs, fn.Args...)

		l.tr.V("underflow").Printw("stack underflow, synthesizing args", "mnemonic", instr.Spec.Mnemonic, "depth", su.Depth, "retry", retry)
	}
}

func stackResult(stack *stk.Stack) []ir.Ref {
	vs := stack.IDs()
	out := make([]ir.Ref, len(vs))

	for i, v := range vs {
		out[i] = ir.Ref{ID: v.ID, Cont: v.Cont}
	}

	return out
}
