package simplefs

import "log"

// inodeCache caches individual inodes but evicts by inode BLOCK: when a
// slot is chosen for eviction, every cached inode whose index maps to that
// same inode block is written out together in one block write. This
// preserves the packed-16-per-block on-disk format without losing
// concurrent edits to siblings (spec.md §4.3).
type inodeCache struct {
	blocks *blockCache
	sb     *superblockState
	size   int
	logger *log.Logger

	index []int64 // inode index mirrored by each slot, -1 if empty
	age   []uint16
	data  []*inode
	counter uint16
}

func newInodeCache(blocks *blockCache, sb *superblockState, size int, logger *log.Logger) *inodeCache {
	if logger == nil {
		logger = log.Default()
	}
	c := &inodeCache{
		blocks: blocks,
		sb:     sb,
		size:   size,
		logger: logger,
		index:  make([]int64, size),
		age:    make([]uint16, size),
		data:   make([]*inode, size),
	}
	c.init()
	return c
}

func (c *inodeCache) init() {
	for i := 0; i < c.size; i++ {
		c.index[i] = noBlock
		c.age[i] = 0
		c.data[i] = newEmptyInode()
	}
	c.counter = 1
}

func (c *inodeCache) inodeBlock(idx uint32) uint32 {
	return idx/16 + 1
}

func (c *inodeCache) findSlot(idx uint32) int {
	for i := 0; i < c.size; i++ {
		if c.index[i] == int64(idx) {
			return i
		}
	}
	return -1
}

// writeThrough persists a single inode into its packed position in its
// inode block, reading-modifying-writing through the block cache.
func (c *inodeCache) writeThrough(idx uint32, n *inode) error {
	blockNum := c.inodeBlock(idx)
	buf := make([]byte, c.blocks.dev.BlockSize())
	if err := c.blocks.Read(blockNum, buf); err != nil {
		return err
	}
	enc, err := n.MarshalBinary()
	if err != nil {
		return err
	}
	copy(buf[(idx%16)*inodeSize:], enc)
	return c.blocks.Write(blockNum, buf)
}

// evict picks a slot to reuse. If it holds an inode, every cached sibling
// in the same inode block is flushed to the block cache together before the
// slot is reused.
func (c *inodeCache) evict() (int, error) {
	oldest := 0
	for i := 0; i < c.size; i++ {
		if c.index[i] == noBlock {
			return i, nil
		}
		if c.age[i] < c.age[oldest] {
			oldest = i
		}
	}

	evictedBlock := c.inodeBlock(uint32(c.index[oldest]))
	for i := 0; i < c.size; i++ {
		if c.index[i] == noBlock {
			continue
		}
		if c.inodeBlock(uint32(c.index[i])) == evictedBlock {
			if err := c.writeThrough(uint32(c.index[i]), c.data[i]); err != nil {
				return 0, err
			}
		}
	}
	c.counter++
	return oldest, nil
}

// install reserves a slot for idx without consulting the device, reusing a
// cached slot if idx is already mirrored there. It does not store n; the
// caller stores the inode in the returned slot.
func (c *inodeCache) install(idx uint32, n *inode) (int, error) {
	if i := c.findSlot(idx); i != -1 {
		return i, nil
	}
	slot, err := c.evict()
	if err != nil {
		return 0, err
	}
	c.index[slot] = int64(idx)
	return slot, nil
}

// Get returns a copy of the inode at idx, fetching its containing block
// through the block cache on a miss.
func (c *inodeCache) Get(idx uint32) (*inode, error) {
	if i := c.findSlot(idx); i != -1 {
		c.age[i] = c.counter
		c.counter++
		cp := *c.data[i]
		return &cp, nil
	}

	slot, err := c.evict()
	if err != nil {
		return nil, err
	}

	blockNum := c.inodeBlock(idx)
	buf := make([]byte, c.blocks.dev.BlockSize())
	if err := c.blocks.Read(blockNum, buf); err != nil {
		return nil, err
	}

	n := newEmptyInode()
	off := (idx % 16) * inodeSize
	if err := n.UnmarshalBinary(buf[off : off+inodeSize]); err != nil {
		return nil, err
	}

	c.index[slot] = int64(idx)
	c.age[slot] = c.counter
	c.counter++
	c.data[slot] = n

	cp := *n
	return &cp, nil
}

// Write stores n at idx, growing the contiguous inode region if idx falls
// in the next, not-yet-reserved inode block (spec.md §4.3's "growing the
// inode region"). Growth must be strictly contiguous: idx's block must be
// exactly the current table length, or this returns ErrLayoutError.
func (c *inodeCache) Write(idx uint32, n *inode) error {
	blockNum := idx / 16

	if blockNum >= c.sb.InodeTableLen() {
		if blockNum != c.sb.InodeTableLen() {
			return ErrLayoutError
		}
		if err := c.growTable(blockNum); err != nil {
			return err
		}
	}

	slot, err := c.install(idx, n)
	if err != nil {
		return err
	}
	c.data[slot] = n
	c.age[slot] = c.counter
	c.counter++
	return nil
}

// growTable marks inode block blockNum+1 (offset by the superblock which
// occupies block 0) allocated in the bitmap and extends InodeTableLen by
// one, persisting the updated superblock.
func (c *inodeCache) growTable(blockNum uint32) error {
	physicalBlock := blockNum + 1
	free, err := c.sb.bitmap.IsFree(physicalBlock)
	if err != nil {
		return err
	}
	if !free {
		c.logger.Printf("simplefs: inode table growth to block %d refused, out of space", physicalBlock)
		return ErrOutOfSpace
	}
	if err := c.sb.bitmap.Set(physicalBlock, true); err != nil {
		return err
	}
	c.logger.Printf("simplefs: growing inode table to %d blocks", blockNum+1)
	return c.sb.growInodeTable()
}

// NextFreeIndex scans the inode region block by block and returns the
// first index whose LinkCount is 0. If the region is exhausted, it returns
// the first index of the next region block, which triggers growth on the
// next Write.
func (c *inodeCache) NextFreeIndex() (uint32, error) {
	tableLen := c.sb.InodeTableLen()
	for block := uint32(0); block < tableLen; block++ {
		for slot := uint32(0); slot < 16; slot++ {
			idx := block*16 + slot
			n, err := c.Get(idx)
			if err != nil {
				return 0, err
			}
			if !n.inUse() {
				return idx, nil
			}
		}
	}
	return tableLen * 16, nil
}

// Flush writes every cached inode out through the block cache.
func (c *inodeCache) Flush() error {
	for i := 0; i < c.size; i++ {
		if c.index[i] == noBlock {
			continue
		}
		if err := c.writeThrough(uint32(c.index[i]), c.data[i]); err != nil {
			return err
		}
	}
	return nil
}
