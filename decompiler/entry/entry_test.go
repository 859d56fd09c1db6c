package entry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/unbox/decompiler/bits"
	"github.com/slowlang/unbox/decompiler/isa"
)

const prologueCatalog = `
- mnemonic: SET_CODEPAGE
  bytecode: {prefix: "0001"}
  doc: {category: opaque}

- mnemonic: DICT_PUSH_CONST
  bytecode:
    prefix: "0010"
    operands:
      - {name: n, type: uint, size: 5}
      - {name: dict, type: ref}
  doc: {category: const_data}

- mnemonic: DICT_I_GET_JMP_Z
  bytecode: {prefix: "0011"}
  doc: {category: opaque}

- mnemonic: THROW_ARG
  bytecode: {prefix: "0100"}
  doc: {category: opaque}

- mnemonic: NOP
  bytecode: {prefix: "0101"}
  doc: {category: opaque}
  control_flow: {nobranch: true}
`

func mustCatalog(t *testing.T, src string) *isa.Catalog {
	t.Helper()

	cat, err := isa.Load([]byte(src))
	require.NoError(t, err)

	return cat
}

func TestDecompileMatchesPrologueAndSplitsMethods(t *testing.T) {
	cat := mustCatalog(t, prologueCatalog)

	method0 := bits.NewCellBuilder().Bits("0101").Build()
	methodNeg1 := bits.NewCellBuilder().Bits("0101").Build()

	dict := bits.NewCellBuilder().Ref(method0).Ref(methodNeg1).Build()

	root := bits.NewCellBuilder().
		Bits("0001").
		Bits("0010").Uint(1, 5).Ref(dict).
		Bits("0011").
		Bits("0100").
		Build()

	prog, err := Decompile(context.Background(), cat, bits.NewSlice(root))
	require.NoError(t, err)
	require.True(t, prog.IsMulti())
	require.Len(t, prog.Methods, 2)

	ids := prog.SortedMethodIDs()
	require.Equal(t, []int32{-1, 0}, ids)

	require.NotNil(t, prog.Methods[0])
	require.Len(t, prog.Methods[0].Body, 1)
	require.Equal(t, "NOP", prog.Methods[0].Body[0].Mnemonic)
}

func TestDecompileFallsBackWithoutPrologue(t *testing.T) {
	cat := mustCatalog(t, prologueCatalog)

	root := bits.NewCellBuilder().Bits("0101").Build()

	prog, err := Decompile(context.Background(), cat, bits.NewSlice(root))
	require.NoError(t, err)
	require.False(t, prog.IsMulti())
	require.NotNil(t, prog.Entry)
	require.Len(t, prog.Entry.Body, 1)
}
