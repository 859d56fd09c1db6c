package lift

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/unbox/decompiler/bits"
	"github.com/slowlang/unbox/decompiler/ir"
	"github.com/slowlang/unbox/decompiler/isa"
)

func mustCatalog(t *testing.T, yamlSrc string) *isa.Catalog {
	t.Helper()

	cat, err := isa.Load([]byte(yamlSrc))
	require.NoError(t, err)

	return cat
}

const basicCatalog = `
- mnemonic: PUSH_INT
  bytecode:
    prefix: "0111"
    operands:
      - {name: x, type: uint, size: 8}
  doc: {category: const_int}
  value_flow:
    outputs:
      - {shape: simple, name: x, types: [int]}
  control_flow: {nobranch: true}

- mnemonic: ADD
  bytecode: {prefix: "10100000"}
  doc: {category: arith}
  value_flow:
    inputs:
      - {shape: simple, name: y, types: [int]}
      - {shape: simple, name: x, types: [int]}
    outputs:
      - {shape: simple, name: z, types: [int]}
  control_flow: {nobranch: true}
`

func TestSlicePushPushAdd(t *testing.T) {
	cat := mustCatalog(t, basicCatalog)

	c := bits.NewCellBuilder().
		Bits("0111").Uint(3, 8).
		Bits("0111").Uint(4, 8).
		Bits("10100000").
		Build()

	fn, err := Slice(context.Background(), cat, bits.NewSlice(c))
	require.NoError(t, err)
	require.NoError(t, fn.DecompileError)
	require.NoError(t, fn.DisassembleError)
	require.Empty(t, fn.Args, "both ADD inputs are satisfied by the two pushes, no underflow")

	require.Len(t, fn.Body, 3)
	require.Equal(t, "PUSH_INT", fn.Body[0].Mnemonic)
	require.Equal(t, "PUSH_INT", fn.Body[1].Mnemonic)
	require.Equal(t, "ADD", fn.Body[2].Mnemonic)
	require.Len(t, fn.Body[2].Inputs, 2)

	firstOut := fn.Body[0].Outputs[0].Def.ID
	secondOut := fn.Body[1].Outputs[0].Def.ID

	// ADD pops in reverse declaration order (x, the last-declared input,
	// comes off the top first) but Inputs is restored to spec order: y, x.
	yIn := fn.Body[2].Inputs[0].Arg.(ir.RefArg).Ref.ID
	xIn := fn.Body[2].Inputs[1].Arg.(ir.RefArg).Ref.ID
	require.Equal(t, firstOut, yIn)
	require.Equal(t, secondOut, xIn)

	require.Len(t, fn.Result, 1)
	require.Equal(t, fn.Body[2].Outputs[0].Def.ID, fn.Result[0].ID)
}

func TestSliceUnderflowSynthesizesArg(t *testing.T) {
	cat := mustCatalog(t, basicCatalog)

	// bare ADD with nothing pushed first: both inputs underflow
	c := bits.NewCellBuilder().Bits("10100000").Build()

	fn, err := Slice(context.Background(), cat, bits.NewSlice(c))
	require.NoError(t, err)
	require.NoError(t, fn.DecompileError)

	require.Len(t, fn.Args, 2)
	require.Len(t, fn.Body, 1)
	require.Equal(t, "ADD", fn.Body[0].Mnemonic)

	yArg := fn.Body[0].Inputs[0].Arg.(ir.RefArg).Ref.ID
	xArg := fn.Body[0].Inputs[1].Arg.(ir.RefArg).Ref.ID

	// reverse-declaration-order popping hits x first, so x's arg is
	// synthesized first; the later y synthesis is prepended below it, so
	// fn.Args ends up [y, x] even though x underflowed first.
	require.Equal(t, fn.Args[0].ID, yArg)
	require.Equal(t, fn.Args[1].ID, xArg)
}

func TestDisassembleErrorCapturesTail(t *testing.T) {
	cat := mustCatalog(t, basicCatalog)

	// unknown prefix "1111..." isn't in the catalog
	c := bits.NewCellBuilder().Bits("11110000").Build()

	fn, err := Slice(context.Background(), cat, bits.NewSlice(c))
	require.NoError(t, err)
	require.Error(t, fn.DisassembleError)
	require.NotNil(t, fn.TailSliceInfo)
	require.Empty(t, fn.Body)
}

const continuationCatalog = `
- mnemonic: PUSHCONT
  bytecode:
    prefix: "1000"
    operands:
      - {name: body, type: ref, display_hints: [continuation]}
  doc: {category: const_data}
  value_flow:
    outputs:
      - {shape: simple, name: body, types: [cont]}
  control_flow: {nobranch: true}
`

func TestResolveContinuationLiftsChild(t *testing.T) {
	cat := mustCatalog(t, continuationCatalog)

	inner := bits.NewCellBuilder().Bits("1000").Ref(bits.NewCellBuilder().Build()).Build()
	root := bits.NewCellBuilder().Bits("1000").Ref(inner).Build()

	fn, err := Slice(context.Background(), cat, bits.NewSlice(root))
	require.NoError(t, err)
	require.Len(t, fn.Body, 1)

	require.Equal(t, "PUSHCONT", fn.Body[0].Mnemonic)
}
