// Package decode implements the opcode decoder of spec.md §4.1: shortest-
// first prefix matching against an isa.Catalog, range-check
// disambiguation, and the five operand loader kinds.
package decode

import (
	"tlog.app/go/errors"

	"github.com/slowlang/unbox/decompiler/bits"
	"github.com/slowlang/unbox/decompiler/ir"
	"github.com/slowlang/unbox/decompiler/isa"
)

// Instr is one decoded instruction: the catalog spec it matched plus its
// loaded operand values, in declaration order.
type Instr struct {
	Spec     *isa.Spec
	Operands []ir.NamedOperand
}

// Operand looks up a loaded operand by name.
func (in *Instr) Operand(name string) (ir.Value, bool) {
	for _, o := range in.Operands {
		if o.Name == name {
			return o.Value, true
		}
	}

	return nil, false
}

// One decodes a single instruction from s, advancing the cursor past the
// prefix and every operand it declares.
func One(cat *isa.Catalog, s *bits.Slice) (*Instr, error) {
	spec, err := matchPrefix(cat, s)
	if err != nil {
		return nil, err
	}

	in := &Instr{Spec: spec}

	for _, decl := range spec.Bytecode.Operands {
		v, err := loadOperand(s, decl, in)
		if err != nil {
			return nil, &OperandLoad{Mnemonic: spec.Mnemonic, Operand: decl.Name, Cause: err}
		}

		in.Operands = append(in.Operands, ir.NamedOperand{Name: decl.Name, Value: v})
	}

	return in, nil
}

// matchPrefix tries prefix lengths from 1 up to the catalog's longest,
// returning the first length that matches — a shorter prefix always wins
// over a longer one it happens to extend. Within one prefix length, a
// spec carrying a range check is tried against the bits immediately
// following the prefix; the first whose range accepts those bits (or who
// declares none at all) is returned.
func matchPrefix(cat *isa.Catalog, s *bits.Slice) (*isa.Spec, error) {
	for l := 1; l <= cat.MaxPrefixLen(); l++ {
		if s.BitsLen() < l {
			continue
		}

		val, err := s.PeekUint(l)
		if err != nil {
			continue
		}

		prefix := formatBits(val, l)

		cands := cat.Lookup(prefix)
		if len(cands) == 0 {
			continue
		}

		for _, spec := range cands {
			if spec.Bytecode.OperandsRange == nil {
				if err := s.Skip(l); err != nil {
					return nil, errors.Wrap(err, "skip matched prefix")
				}

				return spec, nil
			}

			rc := spec.Bytecode.OperandsRange

			peek, err := peekAfter(s, l, rc.Length)
			if err != nil {
				continue
			}

			if int(peek) >= rc.From && int(peek) <= rc.To {
				if err := s.Skip(l); err != nil {
					return nil, errors.Wrap(err, "skip matched prefix")
				}

				return spec, nil
			}
		}
	}

	peeked := ""

	if s.BitsLen() > 0 {
		n := cat.MaxPrefixLen()
		if n > s.BitsLen() {
			n = s.BitsLen()
		}

		if v, err := s.PeekUint(n); err == nil {
			peeked = formatBits(v, n)
		}
	}

	return nil, &PrefixNotFound{PeekedBits: peeked}
}

// peekAfter peeks w bits starting skip bits into s, without consuming
// anything.
func peekAfter(s *bits.Slice, skip, w int) (uint64, error) {
	tmp := s.Clone()

	if err := tmp.Skip(skip); err != nil {
		return 0, err
	}

	return tmp.PeekUint(w)
}

func formatBits(v uint64, l int) string {
	b := make([]byte, l)
	for i := 0; i < l; i++ {
		if v&(1<<(l-1-i)) != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}

	return string(b)
}

func loadOperand(s *bits.Slice, decl isa.OperandDecl, in *Instr) (ir.Value, error) {
	switch decl.Kind {
	case isa.KindUint:
		v, err := s.LoadUint(decl.Size)
		if err != nil {
			return nil, err
		}

		return ir.Int(int64(v)), nil

	case isa.KindInt:
		v, err := s.LoadInt(decl.Size)
		if err != nil {
			return nil, err
		}

		return ir.Int(v), nil

	case isa.KindLongInt:
		// long-int reads its own 5-bit unsigned length L, then an
		// 8*L+19-bit signed integer (spec.md §4.1 glossary: "long-int").
		l, err := s.LoadUint(5)
		if err != nil {
			return nil, err
		}

		w := 8*int(l) + 19

		big, err := s.LoadBigInt(w)
		if err != nil {
			return nil, err
		}

		return ir.BigInt{V: big}, nil

	case isa.KindRef:
		ref, err := s.NextRef()
		if err != nil {
			return nil, err
		}

		return ir.SliceV{S: ref}, nil

	case isa.KindSubslice:
		nBits := decl.BitsPadding
		if decl.BitsLengthVarSize != "" {
			l, err := intOperand(in, decl.BitsLengthVarSize)
			if err != nil {
				return nil, err
			}

			nBits += int(l)
		}

		nRefs := decl.RefsAdd
		if decl.RefsLengthVarSize != "" {
			l, err := intOperand(in, decl.RefsLengthVarSize)
			if err != nil {
				return nil, err
			}

			nRefs += int(l)
		}

		sub, err := s.TakeSubslice(nBits, nRefs)
		if err != nil {
			return nil, err
		}

		if decl.CompletionTag {
			sub, err = bits.StripCompletionTag(sub)
			if err != nil {
				return nil, &CompletionTagMissing{Mnemonic: in.Spec.Mnemonic, Operand: decl.Name}
			}
		}

		return ir.SliceV{S: sub}, nil

	default:
		return nil, errors.New("unknown operand kind %q", decl.Kind)
	}
}

// intOperand resolves a previously loaded operand value, by name, as an
// int64 — used by the length-var fields of the subslice loader, which
// always reference a uint/int operand earlier in the same instruction's
// declaration list.
func intOperand(in *Instr, name string) (int64, error) {
	v, ok := in.Operand(name)
	if !ok {
		return 0, errors.New("length var %q not yet loaded", name)
	}

	n, ok := v.(ir.Int)
	if !ok {
		return 0, errors.New("length var %q is not an int operand", name)
	}

	return int64(n), nil
}
