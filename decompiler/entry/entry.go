// Package entry implements the method-dictionary entry heuristic of
// spec.md §4.5: it recognizes a fixed four-instruction dispatch prologue
// and, when matched, extracts the method table as methodId -> code slice.
package entry

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/unbox/decompiler/bits"
	"github.com/slowlang/unbox/decompiler/decode"
	"github.com/slowlang/unbox/decompiler/ir"
	"github.com/slowlang/unbox/decompiler/isa"
	"github.com/slowlang/unbox/decompiler/lift"
)

var prologueMnemonics = [4]string{"SET_CODEPAGE", "DICT_PUSH_CONST", "DICT_I_GET_JMP_Z", "THROW_ARG"}

// Decompile matches the four-instruction prologue on a clone of root; on
// an exact match with no leftover bits or refs, it decodes the pushed
// dictionary and lifts each entry independently into a Multi program.
// Any deviation falls back to lifting root directly into a Single
// program — spec.md §4.5: "the match is conservative."
func Decompile(ctx context.Context, cat *isa.Catalog, root bits.Slice) (prog *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "entry.Decompile")
	defer tr.Finish("err", &err)

	if n, dict, ok := matchPrologue(cat, root); ok {
		methods, derr := decodeDict(dict, n)
		if derr == nil {
			tr.Printw("matched method-dictionary prologue", "methods", len(methods))

			out := make(map[int32]*ir.Function, len(methods))

			for id, s := range methods {
				fn, _ := lift.Slice(ctx, cat, s)
				out[id] = fn
			}

			return ir.Multi(out), nil
		}

		tr.Printw("prologue matched but dictionary decode failed, falling back", "err", derr)
	}

	fn, _ := lift.Slice(ctx, cat, root)

	return ir.Single(fn), nil
}

// matchPrologue decodes four instructions from a clone of root and
// checks their mnemonics against prologueMnemonics, requiring the clone
// be fully consumed (no leftover bits or refs) afterward. It returns the
// dictionary's key width and root slice on success.
func matchPrologue(cat *isa.Catalog, root bits.Slice) (n int, dict bits.Slice, ok bool) {
	cur := root.Clone()

	var gotN int64
	var gotDict bits.Slice
	haveDict := false

	for _, want := range prologueMnemonics {
		if cur.BitsLen() == 0 && cur.RefsLen() == 0 {
			return 0, bits.Slice{}, false
		}

		instr, err := decode.One(cat, &cur)
		if err != nil || instr.Spec.Mnemonic != want {
			return 0, bits.Slice{}, false
		}

		if want == "DICT_PUSH_CONST" {
			for _, op := range instr.Operands {
				switch v := op.Value.(type) {
				case ir.Int:
					gotN = int64(v)
				case ir.SliceV:
					gotDict = v.S
					haveDict = true
				}
			}
		}
	}

	if !haveDict || cur.BitsLen() != 0 || cur.RefsLen() != 0 {
		return 0, bits.Slice{}, false
	}

	return int(gotN), gotDict, true
}

// decodeDict walks a binary trie of n levels (left ref = key bit 0, right
// ref = key bit 1; a leaf at n==0 is the value slice itself), producing a
// signed methodId -> slice map. This does not implement compressed-label
// serialization (see DESIGN.md) — it assumes one ref pair per level, which
// covers the small, hand-built dictionaries this heuristic is meant to
// recognize.
func decodeDict(root bits.Slice, n int) (map[int32]bits.Slice, error) {
	out := map[int32]bits.Slice{}

	if err := decodeDictNode(root, n, 0, out); err != nil {
		return nil, err
	}

	signed := make(map[int32]bits.Slice, len(out))

	for k, v := range out {
		if n > 0 && n < 32 && k&(1<<(n-1)) != 0 {
			k -= 1 << n
		}

		signed[k] = v
	}

	return signed, nil
}

func decodeDictNode(s bits.Slice, n int, prefix int32, out map[int32]bits.Slice) error {
	if n == 0 {
		out[prefix] = s
		return nil
	}

	left, err := s.NextRef()
	if err != nil {
		return err
	}

	right, err := s.NextRef()
	if err != nil {
		return err
	}

	if err := decodeDictNode(left, n-1, prefix<<1, out); err != nil {
		return err
	}

	return decodeDictNode(right, n-1, prefix<<1|1, out)
}
