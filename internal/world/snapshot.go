package world

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-theft-craft/blast/pkg/material"
)

// ChunkSnapshot is an immutable view of one chunk column's blocks at capture
// time. It is safe for concurrent reads.
type ChunkSnapshot struct {
	pos        ChunkPos
	minY, maxY int
	palette    []material.Block
	blocks     []uint16   // index (y-minY)*256 + z*16 + x
	heights    [256]int16 // highest solid y per column, minY-1 when empty
}

// Pos returns the chunk this snapshot was taken from.
func (s *ChunkSnapshot) Pos() ChunkPos { return s.pos }

// HeightRange returns the vertical bounds [minY, maxY) the snapshot covers.
func (s *ChunkSnapshot) HeightRange() (minY, maxY int) { return s.minY, s.maxY }

// Block returns the block at local column (lx, lz) and world y. Positions
// outside the snapshot are air.
func (s *ChunkSnapshot) Block(lx, y, lz int) material.Block {
	if y < s.minY || y >= s.maxY || lx < 0 || lx > 15 || lz < 0 || lz > 15 {
		return material.AirBlock
	}
	return s.palette[s.blocks[(y-s.minY)*256+lz*16+lx]]
}

// Height returns the highest solid y at local column (lx, lz).
func (s *ChunkSnapshot) Height(lx, lz int) int {
	return int(s.heights[(lz&15)*16+(lx&15)])
}

// SizeBytes estimates the in-memory footprint of the snapshot.
func (s *ChunkSnapshot) SizeBytes() int {
	return len(s.blocks)*2 + len(s.palette)*48 + len(s.heights)*2 + 64
}

// SnapshotBuilder assembles a ChunkSnapshot. It is not safe for concurrent use.
type SnapshotBuilder struct {
	snap  *ChunkSnapshot
	index map[material.Block]uint16
}

// NewSnapshotBuilder starts an all-air snapshot of pos covering [minY, maxY).
func NewSnapshotBuilder(pos ChunkPos, minY, maxY int) *SnapshotBuilder {
	if maxY < minY {
		maxY = minY
	}
	b := &SnapshotBuilder{
		snap: &ChunkSnapshot{
			pos:     pos,
			minY:    minY,
			maxY:    maxY,
			palette: []material.Block{material.AirBlock},
			blocks:  make([]uint16, (maxY-minY)*256),
		},
		index: map[material.Block]uint16{material.AirBlock: 0},
	}
	return b
}

// Set stores block at local column (lx, lz) and world y. Out-of-range
// positions are ignored.
func (b *SnapshotBuilder) Set(lx, y, lz int, block material.Block) {
	s := b.snap
	if y < s.minY || y >= s.maxY || lx < 0 || lx > 15 || lz < 0 || lz > 15 {
		return
	}
	if material.IsAir(block.Material) {
		block = material.AirBlock
	}
	idx, ok := b.index[block]
	if !ok {
		idx = uint16(len(s.palette))
		s.palette = append(s.palette, block)
		b.index[block] = idx
	}
	s.blocks[(y-s.minY)*256+lz*16+lx] = idx
}

// Build computes the heightmap and returns the finished snapshot. The
// builder must not be used afterwards.
func (b *SnapshotBuilder) Build() *ChunkSnapshot {
	s := b.snap
	for lz := 0; lz < 16; lz++ {
		for lx := 0; lx < 16; lx++ {
			h := s.minY - 1
			for y := s.maxY - 1; y >= s.minY; y-- {
				if material.IsSolid(s.palette[s.blocks[(y-s.minY)*256+lz*16+lx]].Material) {
					h = y
					break
				}
			}
			s.heights[lz*16+lx] = int16(h)
		}
	}
	b.snap = nil
	return s
}

const (
	snapshotMagic   = "CSNP"
	snapshotVersion = 1
)

var errShortSnapshot = errors.New("snapshot truncated")

// MarshalBinary encodes the snapshot in a compact little-endian form.
func (s *ChunkSnapshot) MarshalBinary() ([]byte, error) {
	if len(s.palette) > 1<<16 {
		return nil, fmt.Errorf("marshal snapshot: palette has %d entries", len(s.palette))
	}
	buf := make([]byte, 0, 32+len(s.palette)*24+len(s.blocks)*2+len(s.heights)*2)
	buf = append(buf, snapshotMagic...)
	buf = append(buf, snapshotVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(s.pos.X)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(s.pos.Z)))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(s.minY)))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(s.maxY)))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s.palette)-1))
	for _, b := range s.palette {
		if len(b.Material) > 255 {
			return nil, fmt.Errorf("marshal snapshot: material name %q too long", b.Material)
		}
		buf = append(buf, byte(len(b.Material)))
		buf = append(buf, b.Material...)
		buf = appendState(buf, b.State)
	}
	for _, idx := range s.blocks {
		buf = binary.LittleEndian.AppendUint16(buf, idx)
	}
	for _, h := range s.heights {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(h))
	}
	return buf, nil
}

func appendState(buf []byte, st material.State) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(st.Set))
	var flags byte
	if st.Waterlogged {
		flags |= 1
	}
	if st.Snowy {
		flags |= 2
	}
	if st.Open {
		flags |= 4
	}
	if st.Powered {
		flags |= 8
	}
	return append(buf, byte(st.Facing), byte(st.Half), byte(st.Axis), byte(st.Shape), st.Age, flags)
}

// UnmarshalChunkSnapshot decodes data produced by MarshalBinary.
func UnmarshalChunkSnapshot(data []byte) (*ChunkSnapshot, error) {
	r := snapReader{data: data}
	if string(r.bytes(len(snapshotMagic))) != snapshotMagic {
		return nil, fmt.Errorf("unmarshal snapshot: bad magic")
	}
	if v := r.byte(); v != snapshotVersion {
		return nil, fmt.Errorf("unmarshal snapshot: unsupported version %d", v)
	}
	s := &ChunkSnapshot{}
	s.pos.X = int(int32(r.uint32()))
	s.pos.Z = int(int32(r.uint32()))
	s.minY = int(int16(r.uint16()))
	s.maxY = int(int16(r.uint16()))
	if s.maxY < s.minY {
		return nil, fmt.Errorf("unmarshal snapshot: height range [%d,%d)", s.minY, s.maxY)
	}
	n := int(r.uint16()) + 1
	s.palette = make([]material.Block, n)
	for i := range s.palette {
		name := r.bytes(int(r.byte()))
		s.palette[i].Material = material.Material(name)
		st := &s.palette[i].State
		st.Set = material.PropertyMask(r.uint16())
		st.Facing = material.Facing(r.byte())
		st.Half = material.Half(r.byte())
		st.Axis = material.Axis(r.byte())
		st.Shape = material.RailShape(r.byte())
		st.Age = r.byte()
		flags := r.byte()
		st.Waterlogged = flags&1 != 0
		st.Snowy = flags&2 != 0
		st.Open = flags&4 != 0
		st.Powered = flags&8 != 0
	}
	s.blocks = make([]uint16, (s.maxY-s.minY)*256)
	for i := range s.blocks {
		idx := r.uint16()
		if int(idx) >= n {
			return nil, fmt.Errorf("unmarshal snapshot: palette index %d out of range", idx)
		}
		s.blocks[i] = idx
	}
	for i := range s.heights {
		s.heights[i] = int16(r.uint16())
	}
	if r.err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", r.err)
	}
	return s, nil
}

// snapReader reads little-endian fields, latching the first error.
type snapReader struct {
	data []byte
	err  error
}

func (r *snapReader) bytes(n int) []byte {
	if r.err != nil || len(r.data) < n {
		r.err = errShortSnapshot
		return make([]byte, n)
	}
	b := r.data[:n]
	r.data = r.data[n:]
	return b
}

func (r *snapReader) byte() byte     { return r.bytes(1)[0] }
func (r *snapReader) uint16() uint16 { return binary.LittleEndian.Uint16(r.bytes(2)) }
func (r *snapReader) uint32() uint32 { return binary.LittleEndian.Uint32(r.bytes(4)) }
