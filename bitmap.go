package simplefs

// bitmap is a view over the free-block allocation state stored in the tail
// blocks of the volume. Bit b lives in block numBlocks-1-(b/(8*blockSize)),
// byte (b/8) mod blockSize, bit b mod 8 of that block. A set bit (1) means
// allocated; a clear bit (0) means free. All reads/writes go through the
// block cache like everything else (spec.md §4.2).
type bitmap struct {
	cache     *blockCache
	blockSize uint32
	numBlocks uint32
}

func newBitmap(cache *blockCache, blockSize, numBlocks uint32) *bitmap {
	return &bitmap{cache: cache, blockSize: blockSize, numBlocks: numBlocks}
}

// NumBitmapBlocks returns ceil(numBlocks / (8*blockSize)), the count of blocks
// reserved at the high end of the volume for the bitmap itself.
func (b *bitmap) NumBitmapBlocks() uint32 {
	bitsPerBlock := 8 * b.blockSize
	return (b.numBlocks + bitsPerBlock - 1) / bitsPerBlock
}

func (b *bitmap) locate(block uint32) (bitmapBlock uint32, byteOffset uint32, bitOffset uint) {
	blockIndex := block / (8 * b.blockSize)
	bitmapBlock = b.numBlocks - 1 - blockIndex
	byteOffset = (block / 8) % b.blockSize
	bitOffset = uint(block % 8)
	return
}

// IsFree reports whether block is currently unallocated.
func (b *bitmap) IsFree(block uint32) (bool, error) {
	bitmapBlock, byteOffset, bitOffset := b.locate(block)

	buf := make([]byte, b.blockSize)
	if err := b.cache.Read(bitmapBlock, buf); err != nil {
		return false, err
	}
	return buf[byteOffset]&(1<<bitOffset) == 0, nil
}

// Set marks block allocated (allocated=true) or free (allocated=false).
func (b *bitmap) Set(block uint32, allocated bool) error {
	bitmapBlock, byteOffset, bitOffset := b.locate(block)

	buf := make([]byte, b.blockSize)
	if err := b.cache.Read(bitmapBlock, buf); err != nil {
		return err
	}

	if allocated {
		buf[byteOffset] |= 1 << bitOffset
	} else {
		buf[byteOffset] &^= 1 << bitOffset
	}

	return b.cache.Write(bitmapBlock, buf)
}

// NextFree scans the whole volume from the highest block index downward and
// returns the first free block, marking nothing allocated itself (callers
// call Set once they've decided to use the block). On a mostly-empty volume
// this packs file data at the high end, just below the bitmap blocks and
// away from the inode region that grows upward from block 1. It relies on
// Format having pre-marked the superblock, inode region, and bitmap blocks
// themselves as allocated (spec.md §9's documented reliance).
func (b *bitmap) NextFree() (uint32, error) {
	for i := int64(b.numBlocks) - 1; i >= 0; i-- {
		free, err := b.IsFree(uint32(i))
		if err != nil {
			return 0, err
		}
		if free {
			return uint32(i), nil
		}
	}
	return 0, ErrOutOfSpace
}
