package lift

import (
	"fmt"

	"github.com/slowlang/unbox/decompiler/decode"
	"github.com/slowlang/unbox/decompiler/ir"
	"github.com/slowlang/unbox/decompiler/isa"
	"github.com/slowlang/unbox/decompiler/stk"
)

// tryExec implements step 3 of spec.md §4.3 over a stack snapshot the
// caller owns: on success the snapshot reflects the instruction's effect
// and the returned primitive (nil for shuffles) is ready to append; on
// error the snapshot must be discarded.
func (l *lifter) tryExec(stack *stk.Stack, instr *decode.Instr) (*ir.Primitive, error) {
	spec := instr.Spec

	if isa.IsStackShuffle(spec.Doc.Category) {
		if err := stack.ExecShuffle(convertShuffle(spec.Shuffle)); err != nil {
			return nil, err
		}

		return nil, nil
	}

	inputs, pendingInputs, err := l.consumeInputs(stack, instr)
	if err != nil {
		return nil, err
	}

	branchInputs, realArgs, maxRets, err := l.analyzeControlFlow(stack, instr, pendingInputs)
	if err != nil {
		return nil, err
	}

	inputs = append(inputs, branchInputs...)
	inputs = append(inputs, realArgs...)

	outputs, err := l.allocateOutputs(stack, instr, maxRets)
	if err != nil {
		return nil, err
	}

	prim := &ir.Primitive{
		Mnemonic: spec.Mnemonic,
		Category: spec.Doc.Category,
		Inputs:   inputs,
		Operands: append([]ir.NamedOperand{}, instr.Operands...),
		Outputs:  outputs,
	}

	return prim, nil
}

func convertShuffle(steps []isa.ShuffleStep) []stk.ShuffleOp {
	ops := make([]stk.ShuffleOp, len(steps))
	for i, s := range steps {
		ops[i] = stk.ShuffleOp{Op: s.Op, I: s.I, J: s.J, N: s.N}
	}

	return ops
}

// consumeInputs implements step 3a: pop stack-input entries in reverse
// spec order (top first), returning the named arguments in spec order
// (deepest first) plus a name->value map used by control-flow analysis to
// resolve a "from stack input" continuation source.
func (l *lifter) consumeInputs(stack *stk.Stack, instr *decode.Instr) ([]ir.NamedArg, map[string]stk.Value, error) {
	entries := instr.Spec.ValueFlow.Inputs
	pending := map[string]stk.Value{}

	rev := make([]ir.NamedArg, 0, len(entries))

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]

		switch e.Shape {
		case "", "simple":
			v, err := stack.Pop()
			if err != nil {
				return nil, nil, err
			}

			pending[e.Name] = v
			rev = append(rev, ir.NamedArg{Name: e.Name, Arg: ir.RefArg{Ref: ir.Ref{ID: v.ID, Cont: v.Cont}}})

		case "array":
			n, err := intOperand(instr, e.LengthVar)
			if err != nil {
				return nil, nil, err
			}

			for k := int(n) - 1; k >= 0; k-- {
				for j := len(e.ArrayEntry) - 1; j >= 0; j-- {
					ae := e.ArrayEntry[j]

					if ae.Shape != "" && ae.Shape != "simple" {
						return nil, nil, &UnsupportedOperand{Reason: "nested non-simple array entry in " + e.Name}
					}

					v, err := stack.Pop()
					if err != nil {
						return nil, nil, err
					}

					name := fmt.Sprintf("%s_%d_%s", e.Name, k, ae.Name)
					rev = append(rev, ir.NamedArg{Name: name, Arg: ir.RefArg{Ref: ir.Ref{ID: v.ID}}})
				}
			}

		default:
			return nil, nil, &UnsupportedOperand{Reason: "unsupported stack-input shape " + e.Shape}
		}
	}

	out := make([]ir.NamedArg, len(rev))
	for i, a := range rev {
		out[len(rev)-1-i] = a
	}

	return out, pending, nil
}

// analyzeControlFlow implements step 3b. It resolves each declared branch
// target to a lifted continuation, validates that every branch shares the
// same args/result length delta, and computes the real stack effect
// (maxArgs popped, maxRets pushed) that the instruction as a whole has
// regardless of which branch fires at runtime.
func (l *lifter) analyzeControlFlow(stack *stk.Stack, instr *decode.Instr, stackInputs map[string]stk.Value) ([]ir.NamedArg, []ir.NamedArg, int, error) {
	branches := instr.Spec.Control.Branches
	if len(branches) == 0 {
		return nil, nil, 0, nil
	}

	var branchInputs []ir.NamedArg

	maxArgs := 0
	delta := 0
	deltaSet := false
	anyJump := false

	for _, b := range branches {
		target, err := l.resolveBranchTarget(instr, b, stackInputs)
		if err != nil {
			return nil, nil, 0, err
		}

		isJump := b.Save == nil || b.Save.C0 != "cc"
		if isJump {
			anyJump = true
		}

		nArgs := len(target.Args)
		nRets := len(target.Result)

		d := nArgs - nRets
		if !deltaSet {
			delta = d
			deltaSet = true
		} else if d != delta {
			return nil, nil, 0, &UnsupportedOperand{Reason: "branch " + b.VarName + " has inconsistent arg/ret delta"}
		}

		if nArgs > maxArgs {
			maxArgs = nArgs
		}

		peek := stack.Copy()

		for k := 0; k < nArgs; k++ {
			v, err := peek.Pop()
			if err != nil {
				break
			}

			branchInputs = append(branchInputs, ir.NamedArg{
				Name: fmt.Sprintf("%s_%s", b.VarName, v.ID),
				Arg:  ir.RefArg{Ref: ir.Ref{ID: v.ID}},
			})
		}
	}

	maxRets := maxArgs - delta
	if anyJump {
		maxRets = 0
	}

	if instr.Spec.Control.NoBranch && !anyJump && maxArgs != maxRets {
		return nil, nil, 0, &UnsupportedOperand{Reason: "nobranch instruction requires maxArgs == maxRets"}
	}

	if maxRets < 0 {
		maxRets = 0
	}

	realArgs := make([]ir.NamedArg, 0, maxArgs)

	for k := 0; k < maxArgs; k++ {
		v, err := stack.Pop()
		if err != nil {
			return nil, nil, 0, err
		}

		realArgs = append(realArgs, ir.NamedArg{Name: fmt.Sprintf("arg%d", k), Arg: ir.RefArg{Ref: ir.Ref{ID: v.ID}}})
	}

	return branchInputs, realArgs, maxRets, nil
}

func (l *lifter) resolveBranchTarget(instr *decode.Instr, b isa.Branch, stackInputs map[string]stk.Value) (*ir.Function, error) {
	if b.FromOp {
		v, ok := instr.Operand(b.VarName)
		if !ok {
			return nil, &UnsupportedOperand{Reason: "branch operand " + b.VarName + " not found"}
		}

		c, ok := v.(ir.Cont)
		if !ok {
			return nil, &UnsupportedOperand{Reason: "branch operand " + b.VarName + " is not a continuation"}
		}

		return c.Fn, nil
	}

	if b.FromIn {
		v, ok := stackInputs[b.VarName]
		if !ok || v.Cont == nil {
			return nil, &UnsupportedOperand{Reason: "branch stack input " + b.VarName + " has no continuation"}
		}

		return v.Cont.Continuation, nil
	}

	return nil, &UnsupportedOperand{Reason: "branch " + b.VarName + " names no source"}
}

// allocateOutputs implements step 3c: declared stack outputs are pushed
// in spec order (deepest first), with const/array/conditional handled per
// spec.md §4.2/§4.3. maxRets fresh call-style outputs (out_0..) are
// pushed last, on top of everything the declared outputs produced.
func (l *lifter) allocateOutputs(stack *stk.Stack, instr *decode.Instr, maxRets int) ([]ir.NamedDef, error) {
	spec := instr.Spec

	var cont *ir.Function

	for _, op := range instr.Operands {
		if c, ok := op.Value.(ir.Cont); ok {
			cont = c.Fn
			break
		}
	}

	contUsed := false

	var outputs []ir.NamedDef

	constN := 0

	for _, e := range spec.ValueFlow.Outputs {
		switch e.Shape {
		case "", "simple":
			var v stk.Value

			if cont != nil && !contUsed {
				v = stack.PushContinuation(cont)
				contUsed = true
			} else {
				v = stack.Push()
			}

			outputs = append(outputs, ir.NamedDef{Name: e.Name, Def: ir.Def{ID: v.ID}})

		case "const":
			v := stack.Push()
			outputs = append(outputs, ir.NamedDef{Name: fmt.Sprintf("const%d", constN), Def: ir.Def{ID: v.ID}})
			constN++

		case "array":
			n, err := intOperand(instr, e.LengthVar)
			if err != nil {
				return nil, err
			}

			for k := 0; k < int(n); k++ {
				for _, ae := range e.ArrayEntry {
					if ae.Shape != "" && ae.Shape != "simple" {
						return nil, &UnsupportedOperand{Reason: "nested non-simple array output entry in " + e.Name}
					}

					v := stack.Push()
					outputs = append(outputs, ir.NamedDef{Name: fmt.Sprintf("%s_%d_%s", e.Name, k, ae.Name), Def: ir.Def{ID: v.ID}})
				}
			}

		case "conditional":
			merged, err := l.allocateConditional(stack, e)
			if err != nil {
				return nil, err
			}

			outputs = append(outputs, merged...)

		default:
			return nil, &UnsupportedOperand{Reason: "unsupported stack-output shape " + e.Shape}
		}
	}

	for k := 0; k < maxRets; k++ {
		v := stack.Push()
		outputs = append(outputs, ir.NamedDef{Name: fmt.Sprintf("out_%d", k), Def: ir.Def{ID: v.ID}})
	}

	return outputs, nil
}

// allocateConditional implements spec.md §4.2's guard entry point: the
// boundary sits at the current top (depth 0) the moment a conditional
// entry is consumed; every arm (plus else, if present) contributes one
// pending variable per entry, and the guard is retried for finalization
// immediately — it may instead remain pending across several consecutive
// conditional-output instructions, per spec.md §4.2's "most restrictive
// depth" note.
func (l *lifter) allocateConditional(stack *stk.Stack, e isa.StackEntry) ([]ir.NamedDef, error) {
	arms := e.Match
	if e.Else != nil {
		arms = append(append([][]isa.StackEntry{}, arms...), e.Else)
	}

	stack.EnsureGuard(0, len(arms))

	for idx, arm := range arms {
		ids := make([]string, len(arm))
		for i := range arm {
			ids[i] = stack.NewPendingVar()
		}

		if err := stack.AppendToGuardArm(idx, ids...); err != nil {
			return nil, err
		}
	}

	merged := stack.TryFinalizeGuard()

	outputs := make([]ir.NamedDef, len(merged))
	for i, id := range merged {
		outputs[i] = ir.NamedDef{Name: fmt.Sprintf("__cond%d", i), Def: ir.Def{ID: id}}
	}

	return outputs, nil
}

func intOperand(instr *decode.Instr, name string) (int64, error) {
	v, ok := instr.Operand(name)
	if !ok {
		return 0, &UnsupportedOperand{Reason: "length var " + name + " not found"}
	}

	n, ok := v.(ir.Int)
	if !ok {
		return 0, &UnsupportedOperand{Reason: "length var " + name + " is not an int operand"}
	}

	return int64(n), nil
}
