package bits

import "tlog.app/go/errors"

// CellBuilder assembles a Cell bit-by-bit and ref-by-ref. It exists for
// tests and the CLI's single-cell convenience path (SPEC_FULL.md §3); it is
// not a replacement for a real container deserializer.
type CellBuilder struct {
	bits []byte
	n    int
	refs []*Cell
}

func NewCellBuilder() *CellBuilder { return &CellBuilder{} }

func (b *CellBuilder) Bit(v int) *CellBuilder {
	byteI := b.n / 8
	for byteI >= len(b.bits) {
		b.bits = append(b.bits, 0)
	}

	if v != 0 {
		b.bits[byteI] |= 1 << (7 - b.n%8)
	}

	b.n++

	return b
}

func (b *CellBuilder) Uint(v uint64, w int) *CellBuilder {
	for i := w - 1; i >= 0; i-- {
		b.Bit(int(v>>i) & 1)
	}

	return b
}

func (b *CellBuilder) Int(v int64, w int) *CellBuilder {
	for i := w - 1; i >= 0; i-- {
		sh := i
		if sh > 63 {
			sh = 63
		}

		b.Bit(int(v>>uint(sh)) & 1)
	}

	return b
}

func (b *CellBuilder) Bits(bitstring string) *CellBuilder {
	for _, c := range bitstring {
		if c == '1' {
			b.Bit(1)
		} else if c == '0' {
			b.Bit(0)
		}
	}

	return b
}

func (b *CellBuilder) Ref(c *Cell) *CellBuilder {
	b.refs = append(b.refs, c)
	return b
}

func (b *CellBuilder) Build() *Cell {
	return &Cell{Data: append([]byte{}, b.bits...), NBits: b.n, Refs: append([]*Cell{}, b.refs...)}
}

// Deserialize reads raw as a depth-first cell graph: each cell is a
// 2-byte big-endian bit count, its packed payload bytes, a 1-byte child
// count, then that many child cells encoded the same way in order
// (SPEC_FULL.md §3: "a small depth-first cell-graph reader"). This is not
// a hardened production container format — just enough structure for a
// root cell to carry continuation and method-dictionary child refs end to
// end through the CLI.
func Deserialize(raw []byte) (Slice, error) {
	c, rest, err := deserializeCell(raw)
	if err != nil {
		return Slice{}, errors.Wrap(err, "deserialize root cell")
	}

	if len(rest) != 0 {
		return Slice{}, errors.New("deserialize: %d trailing bytes after root cell", len(rest))
	}

	return NewSlice(c), nil
}

func deserializeCell(raw []byte) (*Cell, []byte, error) {
	if len(raw) < 2 {
		return nil, nil, errors.New("truncated cell header")
	}

	nbits := int(raw[0])<<8 | int(raw[1])
	raw = raw[2:]

	nbytes := (nbits + 7) / 8
	if len(raw) < nbytes {
		return nil, nil, errors.New("truncated cell payload: want %d bytes, have %d", nbytes, len(raw))
	}

	data := append([]byte{}, raw[:nbytes]...)
	raw = raw[nbytes:]

	if len(raw) < 1 {
		return nil, nil, errors.New("truncated child count")
	}

	nrefs := int(raw[0])
	raw = raw[1:]

	refs := make([]*Cell, 0, nrefs)

	for i := 0; i < nrefs; i++ {
		child, rest, err := deserializeCell(raw)
		if err != nil {
			return nil, nil, errors.Wrap(err, "child %d", i)
		}

		refs = append(refs, child)
		raw = rest
	}

	return &Cell{Data: data, NBits: nbits, Refs: refs}, raw, nil
}

// Serialize writes c as the depth-first cell graph Deserialize reads
// back. It exists mainly so tests can round-trip a CellBuilder tree
// through the wire format without hand-encoding bytes.
func Serialize(c *Cell) []byte {
	nbytes := (c.NBits + 7) / 8

	out := make([]byte, 0, 2+nbytes+1)
	out = append(out, byte(c.NBits>>8), byte(c.NBits))
	out = append(out, c.Data[:nbytes]...)
	out = append(out, byte(len(c.Refs)))

	for _, ref := range c.Refs {
		out = append(out, Serialize(ref)...)
	}

	return out
}
