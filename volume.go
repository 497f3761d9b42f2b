package simplefs

import (
	"bytes"
	"io/fs"
	"log"
)

// handle is one slot of the open-file table. inode -1 and offset -1 both
// mark a free slot (spec.md §4.6).
type handle struct {
	inode  int64
	name   string
	offset int64
}

func freeHandle() handle {
	return handle{inode: noBlock, offset: noBlock}
}

// Volume is a mounted SFS file system: the superblock, both caches, the
// bitmap, the directory table, and the open-file table, all exclusively
// owning the state described by spec.md §5. Callers must not use a Volume
// concurrently from multiple goroutines without external synchronization —
// the design is single-threaded and synchronous throughout.
type Volume struct {
	dev     BlockDevice
	blocks  *blockCache
	inodes  *inodeCache
	bitmap  *bitmap
	sbState *superblockState
	io      *inodeIO
	dir     *dirTable

	handles []handle
	cursor  int

	logger *log.Logger
}

// Format creates a fresh volume at path and mounts it, matching the
// "format(fresh=1)" branch of spec.md §4.6: a new disk, a written
// superblock, an initialized bitmap, and a one-block root directory.
func Format(path string, opts ...Option) (*Volume, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		if err := o(cfg); err != nil {
			return nil, err
		}
	}

	cfg.logger.Printf("simplefs: formatting new volume at %s, block_size=%d blocks=%d", path, cfg.blockSize, cfg.volumeBlocks)

	dev := cfg.device
	if dev == nil {
		d, err := CreateFileDevice(path, cfg.blockSize, cfg.volumeBlocks)
		if err != nil {
			return nil, err
		}
		dev = d
	}

	blocks := newBlockCache(dev, cfg.blockCacheSize)
	bm := newBitmap(blocks, cfg.blockSize, cfg.volumeBlocks)

	sb := superblock{
		Magic:          Magic,
		BlockSize:      cfg.blockSize,
		FileSystemSize: cfg.volumeBlocks,
		InodeTableLen:  1,
		RootDirInode:   0,
	}
	sbState := &superblockState{sb: sb, blocks: blocks, bitmap: bm}

	if err := initBitmapRegion(bm, cfg.blockSize, cfg.volumeBlocks); err != nil {
		return nil, err
	}
	if err := sbState.persist(); err != nil {
		return nil, err
	}

	inodes := newInodeCache(blocks, sbState, cfg.inodeCacheSize, cfg.logger)
	io := newInodeIO(blocks, inodes, bm, cfg.blockSize)

	rootBlock, err := bm.NextFree()
	if err != nil {
		return nil, err
	}
	if err := bm.Set(rootBlock, true); err != nil {
		return nil, err
	}
	zero := make([]byte, cfg.blockSize)
	if err := blocks.Write(rootBlock, zero); err != nil {
		return nil, err
	}

	root := newEmptyInode()
	root.LinkCount = 1
	root.Mode = modeToUnix(fs.ModeDir)
	root.Size = cfg.blockSize
	root.Direct[0] = int64(rootBlock)
	if err := inodes.Write(0, root); err != nil {
		return nil, err
	}

	dir, err := loadDirTable(io, 0, root, cfg.blockSize)
	if err != nil {
		return nil, err
	}

	v := &Volume{
		dev:     dev,
		blocks:  blocks,
		inodes:  inodes,
		bitmap:  bm,
		sbState: sbState,
		io:      io,
		dir:     dir,
		handles: newHandleTable(cfg.maxOpenFiles),
		logger:  cfg.logger,
	}

	if err := v.Sync(); err != nil {
		return nil, err
	}
	return v, nil
}

// Mount opens an existing volume at path, matching the "format(fresh=0)"
// branch of spec.md §4.6: re-read the superblock, reconstruct the bitmap
// and caches around it, and load the directory table from the root inode.
func Mount(path string, opts ...Option) (*Volume, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		if err := o(cfg); err != nil {
			return nil, err
		}
	}

	dev := cfg.device
	if dev == nil {
		d, err := OpenFileDevice(path, cfg.blockSize, cfg.volumeBlocks)
		if err != nil {
			return nil, err
		}
		dev = d
	}

	blocks := newBlockCache(dev, cfg.blockCacheSize)

	cfg.logger.Printf("simplefs: reading superblock from %s", path)
	buf := make([]byte, dev.BlockSize())
	if err := blocks.Read(0, buf); err != nil {
		return nil, err
	}
	var sb superblock
	if err := sb.UnmarshalBinary(buf); err != nil {
		if err == ErrInvalidFile && bytes.Equal(buf, make([]byte, len(buf))) {
			return nil, ErrNotFormatted
		}
		return nil, err
	}
	cfg.logger.Printf("simplefs: mounted volume block_size=%d blocks=%d inode_table_len=%d", sb.BlockSize, sb.FileSystemSize, sb.InodeTableLen)

	bm := newBitmap(blocks, sb.BlockSize, sb.FileSystemSize)
	sbState := &superblockState{sb: sb, blocks: blocks, bitmap: bm}

	inodes := newInodeCache(blocks, sbState, cfg.inodeCacheSize, cfg.logger)
	io := newInodeIO(blocks, inodes, bm, sb.BlockSize)

	root, err := inodes.Get(0)
	if err != nil {
		return nil, err
	}
	dir, err := loadDirTable(io, 0, root, sb.BlockSize)
	if err != nil {
		return nil, err
	}

	return &Volume{
		dev:     dev,
		blocks:  blocks,
		inodes:  inodes,
		bitmap:  bm,
		sbState: sbState,
		io:      io,
		dir:     dir,
		handles: newHandleTable(cfg.maxOpenFiles),
		logger:  cfg.logger,
	}, nil
}

func newHandleTable(n int) []handle {
	h := make([]handle, n)
	for i := range h {
		h[i] = freeHandle()
	}
	return h
}

// initBitmapRegion zero-fills the bitmap blocks and marks the superblock
// block, the first inode-table block, and the bitmap blocks themselves
// allocated, per spec.md's "Free-block bitmap" layout invariant.
func initBitmapRegion(bm *bitmap, blockSize, numBlocks uint32) error {
	zero := make([]byte, blockSize)
	numBitmapBlocks := bm.NumBitmapBlocks()
	for i := uint32(0); i < numBitmapBlocks; i++ {
		if err := bm.cache.Write(numBlocks-1-i, zero); err != nil {
			return err
		}
	}

	if err := bm.Set(0, true); err != nil {
		return err
	}
	if err := bm.Set(1, true); err != nil {
		return err
	}
	for i := uint32(0); i < numBitmapBlocks; i++ {
		if err := bm.Set(numBlocks-1-i, true); err != nil {
			return err
		}
	}
	return nil
}

// NextName writes the next directory entry's filename into out and
// returns its length, or 0 once the cursor is exhausted. The cursor is
// per-Volume state and is not reset implicitly (spec.md §4.6).
func (v *Volume) NextName(out []byte) int {
	for v.cursor < v.dir.Size() {
		e := v.dir.Get(v.cursor)
		v.cursor++
		if e.free() {
			continue
		}
		name := e.name()
		n := copy(out, name)
		return n
	}
	return 0
}

// FileSize returns the size in bytes of name, or -1 if it does not exist.
func (v *Volume) FileSize(name string) int64 {
	i := v.dir.Find(name)
	if i == -1 {
		return -1
	}
	n, err := v.inodes.Get(v.dir.Get(i).Inode)
	if err != nil {
		return -1
	}
	return int64(n.Size)
}

// Open returns a handle for name, creating it if it does not already
// exist. An already-open name returns its existing handle without
// touching the directory (spec.md §10, grounded on the original's early
// return in fopen).
func (v *Volume) Open(name string) (int, error) {
	for i, h := range v.handles {
		if h.inode != noBlock && h.name == name {
			return i, nil
		}
	}

	slot := -1
	for i, h := range v.handles {
		if h.inode == noBlock {
			slot = i
			break
		}
	}
	if slot == -1 {
		return 0, ErrHandleTableFull
	}

	idx := v.dir.Find(name)
	if idx != -1 {
		inodeIdx := v.dir.Get(idx).Inode
		n, err := v.inodes.Get(inodeIdx)
		if err != nil {
			return 0, err
		}
		v.handles[slot] = handle{inode: int64(inodeIdx), name: name, offset: int64(n.Size)}
		return slot, nil
	}

	if err := validateName(name); err != nil {
		return 0, err
	}

	inodeIdx, err := v.inodes.NextFreeIndex()
	if err != nil {
		return 0, err
	}
	n := newEmptyInode()
	n.LinkCount = 1
	n.Mode = modeToUnix(0)
	if err := v.inodes.Write(inodeIdx, n); err != nil {
		return 0, err
	}

	entrySlot := v.dir.FreeSlot()
	if err := v.dir.Put(entrySlot, newDirEntry(inodeIdx, name)); err != nil {
		return 0, err
	}

	v.handles[slot] = handle{inode: int64(inodeIdx), name: name, offset: 0}
	return slot, nil
}

func (v *Volume) checkHandle(fd int) error {
	if fd < 0 || fd >= len(v.handles) || v.handles[fd].inode == noBlock {
		return ErrInvalidHandle
	}
	return nil
}

// Close invalidates fd and flushes both caches (spec.md §4.6).
func (v *Volume) Close(fd int) error {
	if err := v.checkHandle(fd); err != nil {
		return err
	}
	v.handles[fd] = freeHandle()
	return v.Sync()
}

// Write writes buf at fd's current offset, advances the offset by the
// number of bytes actually written, and returns that count.
func (v *Volume) Write(fd int, buf []byte) (int, error) {
	if err := v.checkHandle(fd); err != nil {
		return 0, err
	}
	h := &v.handles[fd]
	n, err := v.inodes.Get(uint32(h.inode))
	if err != nil {
		return 0, err
	}
	count, err := v.io.Write(uint32(h.inode), n, uint32(h.offset), buf)
	h.offset += int64(count)
	return count, err
}

// Read reads into buf starting at fd's current offset, advances the
// offset by the number of bytes actually read (a deliberate divergence
// from the C original's advance-by-requested-length — see DESIGN.md's
// Open Question decisions), and returns that count.
func (v *Volume) Read(fd int, buf []byte) (int, error) {
	if err := v.checkHandle(fd); err != nil {
		return 0, err
	}
	h := &v.handles[fd]
	n, err := v.inodes.Get(uint32(h.inode))
	if err != nil {
		return 0, err
	}
	count, err := v.io.Read(n, uint32(h.offset), buf)
	h.offset += int64(count)
	return count, err
}

// Seek rejects a negative offset and otherwise sets fd's offset with no
// EOF clamp; out-of-range positions are only detected on the subsequent
// read or write (spec.md §4.6).
func (v *Volume) Seek(fd int, off int64) error {
	if err := v.checkHandle(fd); err != nil {
		return err
	}
	if off < 0 {
		return ErrNegativeSeek
	}
	v.handles[fd].offset = off
	return nil
}

// Remove deletes name: removes its directory entry (compacting the
// table), then frees its inode and every block it reaches.
func (v *Volume) Remove(name string) error {
	idx := v.dir.Find(name)
	if idx == -1 {
		return ErrNameNotFound
	}

	inodeIdx, err := v.dir.Remove(idx)
	if err != nil {
		return err
	}

	n, err := v.inodes.Get(inodeIdx)
	if err != nil {
		return err
	}

	for _, d := range n.Direct {
		if d != noBlock {
			if err := v.bitmap.Set(uint32(d), false); err != nil {
				return err
			}
		}
	}
	if n.Indirect != noBlock {
		buf := make([]byte, v.sbState.BlockSize())
		if err := v.blocks.Read(uint32(n.Indirect), buf); err != nil {
			return err
		}
		for off := 0; off+4 <= len(buf); off += 4 {
			w := uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
			if b := fromDiskBlock(w); b != noBlock {
				if err := v.bitmap.Set(uint32(b), false); err != nil {
					return err
				}
			}
		}
		if err := v.bitmap.Set(uint32(n.Indirect), false); err != nil {
			return err
		}
	}

	n.LinkCount = 0
	n.Size = 0
	n.Indirect = noBlock
	for i := range n.Direct {
		n.Direct[i] = noBlock
	}
	return v.inodes.Write(inodeIdx, n)
}

// VolumeInfo is a read-only snapshot of a mounted Volume's occupancy,
// supplementing the original API (spec.md §10).
type VolumeInfo struct {
	BlockSize     uint32
	TotalBlocks   uint32
	InodeTableLen uint32
	FilesInUse    int
	FreeBlocks    uint32
}

// Info reports the current superblock fields and occupancy counters.
func (v *Volume) Info() (VolumeInfo, error) {
	info := VolumeInfo{
		BlockSize:     v.sbState.BlockSize(),
		TotalBlocks:   v.sbState.sb.FileSystemSize,
		InodeTableLen: v.sbState.InodeTableLen(),
	}

	tableLen := v.sbState.InodeTableLen()
	for idx := uint32(0); idx < tableLen*16; idx++ {
		n, err := v.inodes.Get(idx)
		if err != nil {
			return VolumeInfo{}, err
		}
		if n.inUse() {
			info.FilesInUse++
		}
	}

	for b := uint32(0); b < info.TotalBlocks; b++ {
		free, err := v.bitmap.IsFree(b)
		if err != nil {
			return VolumeInfo{}, err
		}
		if free {
			info.FreeBlocks++
		}
	}

	return info, nil
}

// Sync flushes both caches to the device, independent of Close. This is
// the explicit unmount operation spec.md §5 notes the original lacked.
func (v *Volume) Sync() error {
	if err := v.inodes.Flush(); err != nil {
		return err
	}
	if err := v.blocks.Flush(); err != nil {
		return err
	}
	return v.dev.Sync()
}

// Unmount syncs and releases the underlying device.
func (v *Volume) Unmount() error {
	if err := v.Sync(); err != nil {
		return err
	}
	return v.dev.Close()
}
