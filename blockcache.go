package simplefs

// blockCache is a fully-associative, write-back cache of fixed-size blocks.
// It is the only component allowed to touch the BlockDevice directly; every
// other layer reads and writes blocks through it.
//
// Eviction is an approximate LRU: each slot carries a monotonically
// increasing age stamp, bumped on every touch, and eviction picks the
// smallest age (ties broken by lowest slot index). A rolling 16-bit counter
// is used for ages; wraparound is benign because only "<" comparisons are
// made, so it simply resets relative ordering (see spec.md §4.1).
type blockCache struct {
	dev  BlockDevice
	size int

	blockNum []int64 // block number mirrored by each slot, -1 if empty
	age      []uint16
	data     [][]byte
	counter  uint16
}

func newBlockCache(dev BlockDevice, size int) *blockCache {
	c := &blockCache{
		dev:      dev,
		size:     size,
		blockNum: make([]int64, size),
		age:      make([]uint16, size),
		data:     make([][]byte, size),
	}
	c.init()
	return c
}

// init marks all slots empty, as required at Format/Mount time.
func (c *blockCache) init() {
	bs := c.dev.BlockSize()
	for i := 0; i < c.size; i++ {
		c.blockNum[i] = noBlock
		c.age[i] = 0
		c.data[i] = make([]byte, bs)
	}
	c.counter = 1
}

// findSlot returns the slot index mirroring block n, or -1 if not cached.
func (c *blockCache) findSlot(n uint32) int {
	for i := 0; i < c.size; i++ {
		if c.blockNum[i] == int64(n) {
			return i
		}
	}
	return -1
}

// evict picks a slot to reuse: empty slots first, else the slot with the
// lowest age (ties broken by lowest index). If the chosen slot holds a
// block, that block is written back to the device first.
func (c *blockCache) evict() (int, error) {
	oldest := 0
	for i := 0; i < c.size; i++ {
		if c.blockNum[i] == noBlock {
			return i, nil
		}
		if c.age[i] < c.age[oldest] {
			oldest = i
		}
	}

	if err := c.dev.WriteBlocks(uint32(c.blockNum[oldest]), 1, c.data[oldest]); err != nil {
		return 0, err
	}
	c.counter++
	return oldest, nil
}

// Read copies block n's contents into out, which must be BlockSize bytes.
func (c *blockCache) Read(n uint32, out []byte) error {
	if i := c.findSlot(n); i != -1 {
		copy(out, c.data[i])
		c.age[i] = c.counter
		c.counter++
		return nil
	}

	slot, err := c.evict()
	if err != nil {
		return err
	}

	if err := c.dev.ReadBlocks(n, 1, c.data[slot]); err != nil {
		return err
	}
	c.blockNum[slot] = int64(n)
	c.age[slot] = c.counter
	c.counter++
	copy(out, c.data[slot])
	return nil
}

// Write installs buf (BlockSize bytes) as block n's contents, without
// reading the previous contents from the device first.
func (c *blockCache) Write(n uint32, buf []byte) error {
	if i := c.findSlot(n); i != -1 {
		copy(c.data[i], buf)
		c.age[i] = c.counter
		c.counter++
		return nil
	}

	slot, err := c.evict()
	if err != nil {
		return err
	}

	copy(c.data[slot], buf)
	c.blockNum[slot] = int64(n)
	c.age[slot] = c.counter
	c.counter++
	return nil
}

// Flush writes every occupied slot's contents to the device. Slots remain
// occupied afterward; Flush never invalidates the cache.
func (c *blockCache) Flush() error {
	for i := 0; i < c.size; i++ {
		if c.blockNum[i] == noBlock {
			continue
		}
		if err := c.dev.WriteBlocks(uint32(c.blockNum[i]), 1, c.data[i]); err != nil {
			return err
		}
	}
	return nil
}
