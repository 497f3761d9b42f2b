package simplefs

import "strings"

// dirEntry is one slot of the flat root directory.
type dirEntry struct {
	Valid    uint32
	Inode    uint32
	Filename [MaxNameLength + 1]byte // NUL-terminated
}

func (e *dirEntry) free() bool {
	return e.Valid == 0 || e.Inode == 0
}

func (e *dirEntry) name() string {
	n := 0
	for n < len(e.Filename) && e.Filename[n] != 0 {
		n++
	}
	return string(e.Filename[:n])
}

func (e *dirEntry) MarshalBinary() []byte {
	buf := make([]byte, dirEntrySize)
	buf[0] = byte(e.Valid)
	buf[1] = byte(e.Valid >> 8)
	buf[2] = byte(e.Valid >> 16)
	buf[3] = byte(e.Valid >> 24)
	buf[4] = byte(e.Inode)
	buf[5] = byte(e.Inode >> 8)
	buf[6] = byte(e.Inode >> 16)
	buf[7] = byte(e.Inode >> 24)
	copy(buf[8:], e.Filename[:])
	return buf
}

func (e *dirEntry) UnmarshalBinary(buf []byte) {
	e.Valid = uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	e.Inode = uint32(buf[4]) | uint32(buf[5])<<8 | uint32(buf[6])<<16 | uint32(buf[7])<<24
	copy(e.Filename[:], buf[8:8+len(e.Filename)])
}

// dirTable is the in-memory mirror of the root inode's payload: a flat
// vector of directory entries, kept in lockstep with disk on every
// mutation (spec.md §4.5).
type dirTable struct {
	io        *inodeIO
	rootIdx   uint32
	root      *inode
	entries   []dirEntry
	blockSize uint32
}

// loadDirTable reads the root inode's entire payload into memory.
func loadDirTable(io *inodeIO, rootIdx uint32, root *inode, blockSize uint32) (*dirTable, error) {
	t := &dirTable{io: io, rootIdx: rootIdx, root: root, blockSize: blockSize}

	count := int(root.Size / dirEntrySize)
	t.entries = make([]dirEntry, count)
	if count == 0 {
		return t, nil
	}

	buf := make([]byte, root.Size)
	if _, err := io.Read(root, 0, buf); err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		t.entries[i].UnmarshalBinary(buf[i*dirEntrySize : (i+1)*dirEntrySize])
	}
	return t, nil
}

func (t *dirTable) Size() int {
	return len(t.entries)
}

func (t *dirTable) Get(i int) dirEntry {
	return t.entries[i]
}

// Find returns the index of the live entry named name, or -1.
func (t *dirTable) Find(name string) int {
	for i := range t.entries {
		if !t.entries[i].free() && t.entries[i].name() == name {
			return i
		}
	}
	return -1
}

// FreeSlot returns the first free entry index, or Size() to append.
func (t *dirTable) FreeSlot() int {
	for i := range t.entries {
		if t.entries[i].free() {
			return i
		}
	}
	return len(t.entries)
}

// Put writes entry at index i, expanding the vector (and the root inode's
// size) if i is at or past the current end, then rewrites the whole table
// to disk through the inode I/O path.
func (t *dirTable) Put(i int, entry dirEntry) error {
	if i >= len(t.entries) {
		grown := make([]dirEntry, i+1)
		copy(grown, t.entries)
		t.entries = grown
	}
	t.entries[i] = entry
	return t.persist()
}

// Remove compacts out entry i, shrinking the table by one slot and
// persisting both the rewritten table and the smaller root inode. It
// returns the inode number that occupied slot i.
func (t *dirTable) Remove(i int) (uint32, error) {
	removed := t.entries[i].Inode
	copy(t.entries[i:], t.entries[i+1:])
	t.entries = t.entries[:len(t.entries)-1]
	if err := t.persist(); err != nil {
		return 0, err
	}
	return removed, nil
}

// persist rewrites the entire table to the root inode's payload starting at
// offset 0, growing or shrinking root.Size to match.
func (t *dirTable) persist() error {
	buf := make([]byte, len(t.entries)*dirEntrySize)
	for i := range t.entries {
		copy(buf[i*dirEntrySize:], t.entries[i].MarshalBinary())
	}

	wantSize := uint32(len(buf))
	if wantSize > t.root.Size {
		if _, err := t.io.Write(t.rootIdx, t.root, 0, buf); err != nil {
			return err
		}
		return nil
	}

	// Shrinking: inodeIO.Write never truncates, so write the bytes in
	// place and then clamp Size down ourselves.
	if len(buf) > 0 {
		if _, err := t.io.Write(t.rootIdx, t.root, 0, buf); err != nil {
			return err
		}
	}
	t.root.Size = wantSize
	return t.io.inodes.Write(t.rootIdx, t.root)
}

// validateName checks a candidate filename against the fixed-size directory
// entry's filename field (spec.md Non-goals: "filenames longer than the
// fixed cap" are rejected, not truncated).
func validateName(name string) error {
	if len(name) == 0 || len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if strings.IndexByte(name, 0) != -1 {
		return ErrNameTooLong
	}
	return nil
}

func newDirEntry(inodeIdx uint32, name string) dirEntry {
	e := dirEntry{Valid: 1, Inode: inodeIdx}
	copy(e.Filename[:], name)
	return e
}
