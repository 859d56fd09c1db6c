package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFunctionDefinesArgsAndOutputs(t *testing.T) {
	fn := &Function{
		Args: []Def{{ID: "arg0"}},
		Body: []*Primitive{
			{Outputs: []NamedDef{{Name: "x", Def: Def{ID: "var0"}}}},
		},
	}

	require.True(t, fn.Defines("arg0"))
	require.True(t, fn.Defines("var0"))
	require.False(t, fn.Defines("var1"))
}

func TestFunctionUsesCountsNestedInlineArgs(t *testing.T) {
	producer := &Primitive{Outputs: []NamedDef{{Name: "x", Def: Def{ID: "var0"}}}}

	consumer := &Primitive{
		Inputs: []NamedArg{{Name: "x", Arg: InlineArg{Prim: producer}}},
	}

	user := &Primitive{
		Inputs: []NamedArg{{Name: "y", Arg: RefArg{Ref: Ref{ID: "var1"}}}},
	}

	fn := &Function{Body: []*Primitive{consumer, user}}

	// var0 only appears inside consumer's inlined producer, not as a
	// direct RefArg anywhere in the body.
	require.Equal(t, 0, fn.Uses("var0"))
	require.Equal(t, 1, fn.Uses("var1"))
}

func TestHasErrorReflectsEitherField(t *testing.T) {
	fn := &Function{}
	require.False(t, fn.HasError())

	fn.DecompileError = errTest{}
	require.True(t, fn.HasError())

	fn2 := &Function{DisassembleError: errTest{}}
	require.True(t, fn2.HasError())
}

type errTest struct{}

func (errTest) Error() string { return "test" }

func TestProgramSingleAndMulti(t *testing.T) {
	fn := &Function{Name: "entry"}

	p := Single(fn)
	require.False(t, p.IsMulti())
	require.Same(t, fn, p.Entry)

	mp := Multi(map[int32]*Function{2: fn, -3: fn, 0: fn})
	require.True(t, mp.IsMulti())
	require.Equal(t, []int32{-3, 0, 2}, mp.SortedMethodIDs())
}
