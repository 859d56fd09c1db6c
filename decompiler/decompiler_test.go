package decompiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/unbox/decompiler/bits"
	"github.com/slowlang/unbox/decompiler/ir"
	"github.com/slowlang/unbox/decompiler/isa"
)

const endToEndCatalog = `
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

- mnemonic: NOT
  bytecode: {prefix: "1001"}
  doc: {category: arith}
  value_flow:
    inputs:
      - {shape: simple, name: x, types: [int]}
    outputs:
      - {shape: simple, name: y, types: [int]}
  control_flow: {nobranch: true}
`

func TestDecompileBytesInlinesConstIntoConsumer(t *testing.T) {
	cat, err := isa.Load([]byte(endToEndCatalog))
	require.NoError(t, err)

	c := bits.NewCellBuilder().
		Bits("0111").Uint(7, 8).
		Bits("1001").
		Build()

	prog, err := DecompileBytes(context.Background(), cat, bits.Serialize(c))
	require.NoError(t, err)
	require.False(t, prog.IsMulti())

	// InlineConstants drops the const_int producer once it's substituted
	// into NOT's sole input.
	require.Len(t, prog.Entry.Body, 1)
	require.Equal(t, "NOT", prog.Entry.Body[0].Mnemonic)

	inlined, ok := prog.Entry.Body[0].Inputs[0].Arg.(ir.InlineArg)
	require.True(t, ok)
	require.Equal(t, "PUSH_INT", inlined.Prim.Mnemonic)
}
