// Package bits models the bit-slice/cell container the decoder and lifter
// read from. The real container deserializer (spec.md §1: "out of scope")
// is an external collaborator; this package only defines the cursor
// contract it must satisfy and a minimal, non-hardened implementation good
// enough for tests, fixtures, and the CLI's single-file path (SPEC_FULL.md
// §3's "supplemented features").
package bits

import (
	"math/big"

	"tlog.app/go/errors"
)

type (
	// Cell is an immutable node in a DAG of bitstrings and child
	// references (glossary: "Cell"). Cells may be shared, so a Slice must
	// never mutate one in place.
	Cell struct {
		Data  []byte // bits, MSB-first, packed starting at bit 0 of Data[0]
		NBits int
		Refs  []*Cell
	}

	// Slice is a read cursor into a Cell (glossary: "Slice"). The zero
	// value is not usable; construct with NewSlice.
	Slice struct {
		cell    *Cell
		bitPos  int
		refPos  int
	}
)

// NewSlice returns a cursor positioned at the start of c.
func NewSlice(c *Cell) Slice {
	return Slice{cell: c}
}

// Clone returns an independent copy of the cursor. Required before trying
// multiple interpretations of the same slice (spec.md §9, "Cycles") — the
// entry heuristic clones before it speculatively matches the four-
// instruction prologue.
func (s Slice) Clone() Slice {
	return s
}

// BitsLen reports the number of unconsumed payload bits.
func (s Slice) BitsLen() int {
	if s.cell == nil {
		return 0
	}

	return s.cell.NBits - s.bitPos
}

// RefsLen reports the number of unconsumed child references.
func (s Slice) RefsLen() int {
	if s.cell == nil {
		return 0
	}

	return len(s.cell.Refs) - s.refPos
}

var ErrOutOfBits = errors.New("out of bits")
var ErrOutOfRefs = errors.New("out of refs")

// PeekUint reads w bits as an unsigned integer without advancing the
// cursor.
func (s Slice) PeekUint(w int) (uint64, error) {
	if w < 0 || w > 64 {
		return 0, errors.New("peek width %d out of range", w)
	}

	if s.BitsLen() < w {
		return 0, errors.Wrap(ErrOutOfBits, "peek %d bits, have %d", w, s.BitsLen())
	}

	return readUint(s.cell.Data, s.bitPos, w), nil
}

// Skip advances the cursor by k bits without interpreting them.
func (s *Slice) Skip(k int) error {
	if s.BitsLen() < k {
		return errors.Wrap(ErrOutOfBits, "skip %d bits, have %d", k, s.BitsLen())
	}

	s.bitPos += k

	return nil
}

// LoadUint reads and consumes w bits as an unsigned integer.
func (s *Slice) LoadUint(w int) (uint64, error) {
	v, err := s.PeekUint(w)
	if err != nil {
		return 0, err
	}

	s.bitPos += w

	return v, nil
}

// LoadInt reads and consumes w bits as a two's-complement signed integer.
func (s *Slice) LoadInt(w int) (int64, error) {
	if w < 1 || w > 64 {
		return 0, errors.New("int width %d out of range", w)
	}

	u, err := s.LoadUint(w)
	if err != nil {
		return 0, err
	}

	if u&(1<<(w-1)) != 0 {
		return int64(u) - int64(1)<<w, nil
	}

	return int64(u), nil
}

// LoadBigInt reads and consumes w bits as a two's-complement signed big
// integer. Used by the long-int operand loader (spec.md §4.1), whose
// width 8*L+19 routinely exceeds 64 bits.
func (s *Slice) LoadBigInt(w int) (*big.Int, error) {
	if w < 1 {
		return nil, errors.New("bigint width %d out of range", w)
	}

	if s.BitsLen() < w {
		return nil, errors.Wrap(ErrOutOfBits, "load %d bits, have %d", w, s.BitsLen())
	}

	v := new(big.Int)

	pos := s.bitPos

	for remaining := w; remaining > 0; {
		chunk := remaining
		if chunk > 56 {
			chunk = 56
		}

		v.Lsh(v, uint(chunk))
		v.Or(v, big.NewInt(int64(readUint(s.cell.Data, pos, chunk))))

		pos += chunk
		remaining -= chunk
	}

	s.bitPos += w

	// two's complement sign-fix
	signBit := new(big.Int).Lsh(big.NewInt(1), uint(w-1))
	if v.Cmp(signBit) >= 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(w))
		v.Sub(v, mod)
	}

	return v, nil
}

// NextRef consumes the next child reference and returns a cursor over it.
func (s *Slice) NextRef() (Slice, error) {
	if s.RefsLen() < 1 {
		return Slice{}, errors.Wrap(ErrOutOfRefs, "next ref")
	}

	c := s.cell.Refs[s.refPos]
	s.refPos++

	return NewSlice(c), nil
}

// TakeSubslice consumes nBits payload bits and nRefs refs and packages
// them as a standalone Slice (spec.md §4.1, the subslice operand loader).
func (s *Slice) TakeSubslice(nBits, nRefs int) (Slice, error) {
	if s.BitsLen() < nBits {
		return Slice{}, errors.Wrap(ErrOutOfBits, "subslice %d bits, have %d", nBits, s.BitsLen())
	}

	if s.RefsLen() < nRefs {
		return Slice{}, errors.Wrap(ErrOutOfRefs, "subslice %d refs, have %d", nRefs, s.RefsLen())
	}

	data := extractBits(s.cell.Data, s.bitPos, nBits)
	refs := append([]*Cell{}, s.cell.Refs[s.refPos:s.refPos+nRefs]...)

	s.bitPos += nBits
	s.refPos += nRefs

	return NewSlice(&Cell{Data: data, NBits: nBits, Refs: refs}), nil
}

// StripCompletionTag removes a trailing 1 followed by zero or more 0s
// (glossary: "Completion tag"). It fails if no bit of the slice is set.
func StripCompletionTag(s Slice) (Slice, error) {
	n := s.cell.NBits
	data := s.cell.Data

	i := n - 1
	for i >= 0 && bitAt(data, i) == 0 {
		i--
	}

	if i < 0 {
		return Slice{}, errors.New("completion tag missing")
	}

	return NewSlice(&Cell{Data: extractBits(data, 0, i), NBits: i, Refs: s.cell.Refs}), nil
}

func bitAt(data []byte, i int) int {
	byteI := i / 8
	bitI := 7 - i%8

	if byteI >= len(data) {
		return 0
	}

	return int(data[byteI]>>bitI) & 1
}

func readUint(data []byte, pos, w int) uint64 {
	var v uint64

	for i := 0; i < w; i++ {
		v = v<<1 | uint64(bitAt(data, pos+i))
	}

	return v
}

func extractBits(data []byte, pos, n int) []byte {
	out := make([]byte, (n+7)/8)

	for i := 0; i < n; i++ {
		if bitAt(data, pos+i) == 0 {
			continue
		}

		out[i/8] |= 1 << (7 - i%8)
	}

	return out
}
