package simplefs

import (
	"bytes"
	"encoding/binary"
)

// inode is the 64-byte on-disk metadata record for a single file, 16 packed
// per block. LinkCount 0 marks the slot free; it is the sole "in use"
// marker (spec.md §3). Direct/Indirect are kept as int64 in memory with -1
// meaning "unassigned" (noBlock), translated to/from the on-disk
// 0xFFFFFFFF sentinel only at marshal/unmarshal boundaries, per the tagged-
// optional guidance in spec.md §9.
type inode struct {
	Mode      uint32
	LinkCount uint32
	Size      uint32
	Direct    [directPointers]int64
	Indirect  int64
}

func newEmptyInode() *inode {
	n := &inode{LinkCount: 0, Size: 0, Indirect: noBlock}
	for i := range n.Direct {
		n.Direct[i] = noBlock
	}
	return n
}

const onDiskSentinel = 0xFFFFFFFF

// MarshalBinary encodes the inode into its fixed 64-byte on-disk layout.
func (n *inode) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, n.Mode)
	binary.Write(buf, binary.LittleEndian, n.LinkCount)
	binary.Write(buf, binary.LittleEndian, n.Size)
	for _, d := range n.Direct {
		binary.Write(buf, binary.LittleEndian, toDiskBlock(d))
	}
	binary.Write(buf, binary.LittleEndian, toDiskBlock(n.Indirect))
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a 64-byte on-disk inode record.
func (n *inode) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.LittleEndian, &n.Mode); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &n.LinkCount); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &n.Size); err != nil {
		return err
	}
	for i := range n.Direct {
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		n.Direct[i] = fromDiskBlock(v)
	}
	var v uint32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return err
	}
	n.Indirect = fromDiskBlock(v)
	return nil
}

func toDiskBlock(v int64) uint32 {
	if v == noBlock {
		return onDiskSentinel
	}
	return uint32(v)
}

func fromDiskBlock(v uint32) int64 {
	if v == onDiskSentinel {
		return noBlock
	}
	return int64(v)
}

// inUse reports whether the inode is currently allocated to a live file.
func (n *inode) inUse() bool {
	return n.LinkCount > 0
}
