// Package decompiler wires the bit-slice/catalog adapters to the core
// lifter, pass pipeline, and entry heuristic, producing a finished
// ir.Program from a root slice or a raw byte buffer.
package decompiler

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/unbox/decompiler/bits"
	"github.com/slowlang/unbox/decompiler/entry"
	"github.com/slowlang/unbox/decompiler/ir"
	"github.com/slowlang/unbox/decompiler/isa"
	"github.com/slowlang/unbox/decompiler/passes"
)

// Decompile runs the entry heuristic over root, then the default pass
// pipeline over whatever it produces.
func Decompile(ctx context.Context, cat *isa.Catalog, root bits.Slice) (prog *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "decompiler.Decompile")
	defer tr.Finish("err", &err)

	prog, err = entry.Decompile(ctx, cat, root)
	if err != nil {
		return nil, err
	}

	return passes.Default().RunProgram(prog), nil
}

// DecompileBytes is the CLI/test convenience entrypoint: it parses raw as
// a depth-first cell graph via bits.Deserialize and runs Decompile on the
// root cell.
func DecompileBytes(ctx context.Context, cat *isa.Catalog, raw []byte) (*ir.Program, error) {
	root, err := bits.Deserialize(raw)
	if err != nil {
		return nil, err
	}

	return Decompile(ctx, cat, root)
}
