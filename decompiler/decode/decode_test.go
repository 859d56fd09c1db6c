package decode

import (
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

func TestOneLoadsUintOperand(t *testing.T) {
	cat := mustCatalog(t, `
- mnemonic: PUSH_INT
  bytecode:
    prefix: "0111"
    operands:
      - {name: x, type: uint, size: 8}
  doc: {category: const_int}
`)

	c := bits.NewCellBuilder().Bits("0111").Uint(42, 8).Build()
	s := bits.NewSlice(c)

	in, err := One(cat, &s)
	require.NoError(t, err)
	require.Equal(t, "PUSH_INT", in.Spec.Mnemonic)

	v, ok := in.Operand("x")
	require.True(t, ok)
	require.Equal(t, ir.Int(42), v)
	require.Equal(t, 0, s.BitsLen())
}

func TestOneDisambiguatesByRangeCheck(t *testing.T) {
	cat := mustCatalog(t, `
- mnemonic: RANGED_A
  bytecode:
    prefix: "1111"
    operands_range_check: {length: 4, from: 0, to: 7}
  doc: {category: opaque}
- mnemonic: RANGED_B
  bytecode:
    prefix: "1111"
    operands_range_check: {length: 4, from: 8, to: 15}
  doc: {category: opaque}
`)

	c := bits.NewCellBuilder().Bits("1111").Uint(10, 4).Build()
	s := bits.NewSlice(c)

	in, err := One(cat, &s)
	require.NoError(t, err)
	require.Equal(t, "RANGED_B", in.Spec.Mnemonic)
}

func TestOneShortestPrefixWins(t *testing.T) {
	cat := mustCatalog(t, `
- mnemonic: SHORT
  bytecode: {prefix: "011"}
  doc: {category: opaque}
- mnemonic: LONG
  bytecode: {prefix: "0111"}
  doc: {category: opaque}
`)

	c := bits.NewCellBuilder().Bits("0111").Build()
	s := bits.NewSlice(c)

	in, err := One(cat, &s)
	require.NoError(t, err)
	require.Equal(t, "SHORT", in.Spec.Mnemonic)
	require.Equal(t, 1, s.BitsLen())
}

func TestOnePrefixNotFound(t *testing.T) {
	cat := mustCatalog(t, `
- mnemonic: ADD
  bytecode: {prefix: "0000"}
  doc: {category: opaque}
`)

	c := bits.NewCellBuilder().Bits("1111").Build()
	s := bits.NewSlice(c)

	_, err := One(cat, &s)
	require.Error(t, err)

	var pnf *PrefixNotFound
	require.ErrorAs(t, err, &pnf)
}

func TestOneLongIntOperand(t *testing.T) {
	cat := mustCatalog(t, `
- mnemonic: PUSH_LONG
  bytecode:
    prefix: "0001"
    operands:
      - {name: v, type: long_int}
  doc: {category: const_int}
`)

	// long-int reads its own 5-bit length L off the bitstream; L=0 -> a
	// 19-bit signed payload immediately follows with no separate length
	// operand.
	c := bits.NewCellBuilder().Bits("0001").Uint(0, 5).Int(-1, 19).Build()
	s := bits.NewSlice(c)

	in, err := One(cat, &s)
	require.NoError(t, err)

	v, ok := in.Operand("v")
	require.True(t, ok)

	bi, ok := v.(ir.BigInt)
	require.True(t, ok)
	require.Equal(t, "-1", bi.V.String())
}

func TestOneSubsliceWithCompletionTag(t *testing.T) {
	cat := mustCatalog(t, `
- mnemonic: PUSH_SLICE
  bytecode:
    prefix: "0010"
    operands:
      - {name: d, type: subslice, bits_padding: 6, completion_tag: true}
  doc: {category: const_data}
`)

	// "101110": trailing marker bit + one padding zero strip down to "1011"
	c := bits.NewCellBuilder().Bits("0010").Bits("101110").Build()
	s := bits.NewSlice(c)

	in, err := One(cat, &s)
	require.NoError(t, err)

	v, ok := in.Operand("d")
	require.True(t, ok)

	sv, ok := v.(ir.SliceV)
	require.True(t, ok)
	require.Equal(t, 4, sv.S.BitsLen())

	peek, err := sv.S.PeekUint(4)
	require.NoError(t, err)
	require.EqualValues(t, 0b1011, peek)
}
