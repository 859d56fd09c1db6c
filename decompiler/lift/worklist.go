package lift

import (
	"context"

	"tlog.app/go/tlog"

	"nikand.dev/go/heap"

	"github.com/slowlang/unbox/decompiler/bits"
	"github.com/slowlang/unbox/decompiler/ir"
	"github.com/slowlang/unbox/decompiler/isa"
	"github.com/slowlang/unbox/decompiler/stk"
)

// liftJob is one pending continuation to lift, ordered by nesting depth
// so that shallow continuations (closer to the entry point) drain before
// their own, deeper nested continuations. Jobs are not keyed on slice
// identity: a continuation slice reached from several operands is lifted
// once per operand.
type liftJob struct {
	fn    *ir.Function
	slice bits.Slice
	depth int
}

func lessJob(d []liftJob, i, j int) bool { return d[i].depth < d[j].depth }

// SliceWorklist is Slice's non-recursive twin: continuation operands
// are not lifted by direct Go recursion but scheduled onto a depth-ordered
// heap.Heap and drained after the current level completes. Same result as
// Slice; useful on hosts with a small default goroutine stack when
// continuation nesting runs deep (spec.md §5).
func SliceWorklist(ctx context.Context, cat *isa.Catalog, root bits.Slice) (fn *ir.Function, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lift.SliceWorklist")
	defer tr.Finish("err", &err)

	h := heap.New(lessJob)

	l := &lifter{cat: cat, alloc: &stk.IDAllocator{}, tr: tr}
	l.schedule = func(name string, s bits.Slice, depth int) *ir.Function {
		child := &ir.Function{Name: name}
		h.Push(liftJob{fn: child, slice: s, depth: depth})

		return child
	}

	fn = &ir.Function{Name: "entry"}
	l.process(fn, root, 0)

	for h.Len() > 0 {
		job := h.Pop()
		l.process(job.fn, job.slice, job.depth)
	}

	return fn, nil
}
