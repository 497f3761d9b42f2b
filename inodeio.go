package simplefs

// inodeIO implements indirection-aware reads and writes against a single
// inode: direct-block translation for the first 12 blocks, a singly
// indirect block for the rest (spec.md §4.4).
type inodeIO struct {
	blocks    *blockCache
	inodes    *inodeCache
	bitmap    *bitmap
	blockSize uint32
}

func newInodeIO(blocks *blockCache, inodes *inodeCache, bm *bitmap, blockSize uint32) *inodeIO {
	return &inodeIO{blocks: blocks, inodes: inodes, bitmap: bm, blockSize: blockSize}
}

// blockAt returns the physical block number assigned to logical position i
// of n (direct pointer, or a word read out of the indirect block), or noBlock
// if that position is not currently assigned.
func (io *inodeIO) blockAt(n *inode, i int) (int64, error) {
	if i < directPointers {
		return n.Direct[i], nil
	}

	if n.Indirect == noBlock {
		return noBlock, nil
	}

	buf := make([]byte, io.blockSize)
	if err := io.blocks.Read(uint32(n.Indirect), buf); err != nil {
		return 0, err
	}
	off := (i - directPointers) * 4
	v := uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
	return fromDiskBlock(v), nil
}

// setBlockAt assigns physical block number phys to logical position i of n,
// allocating the indirect block itself lazily on first need.
func (io *inodeIO) setBlockAt(n *inode, i int, phys int64) error {
	if i < directPointers {
		n.Direct[i] = phys
		return nil
	}

	if n.Indirect == noBlock {
		blk, err := io.bitmap.NextFree()
		if err != nil {
			return err
		}
		if err := io.bitmap.Set(blk, true); err != nil {
			return err
		}
		n.Indirect = int64(blk)
		zero := make([]byte, io.blockSize)
		for j := range zero {
			zero[j] = 0xFF // pre-fill with the "unassigned" sentinel byte pattern
		}
		if err := io.blocks.Write(uint32(n.Indirect), zero); err != nil {
			return err
		}
	}

	buf := make([]byte, io.blockSize)
	if err := io.blocks.Read(uint32(n.Indirect), buf); err != nil {
		return err
	}
	off := (i - directPointers) * 4
	v := toDiskBlock(phys)
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
	return io.blocks.Write(uint32(n.Indirect), buf)
}

// Read copies up to len(out) bytes starting at offset into out, clamped to
// the inode's current size. Reading at or past EOF returns (0, nil): a
// short read is not an error (spec.md §7).
func (io *inodeIO) Read(n *inode, offset uint32, out []byte) (int, error) {
	if offset >= n.Size {
		return 0, nil
	}

	remaining := int(n.Size - offset)
	if len(out) > remaining {
		out = out[:remaining]
	}

	total := 0
	block := int(offset / io.blockSize)
	within := int(offset % io.blockSize)

	for total < len(out) {
		phys, err := io.blockAt(n, block)
		if err != nil {
			return total, err
		}

		buf := make([]byte, io.blockSize)
		if phys != noBlock {
			if err := io.blocks.Read(uint32(phys), buf); err != nil {
				return total, err
			}
		} // else: treat an unassigned block as all-zero, matching a never-written hole

		chunk := int(io.blockSize) - within
		if left := len(out) - total; chunk > left {
			chunk = left
		}
		copy(out[total:total+chunk], buf[within:within+chunk])

		total += chunk
		block++
		within = 0
	}

	return total, nil
}

// Write writes data at offset into n (whose index is inodeIdx, needed to
// persist growth of the inode table), extending allocation and size as
// needed. It returns the number of bytes written.
//
// If new_size would exceed MaxFileSize (the direct+indirect limit), this
// fails with ErrFileTooLarge before touching any state — a new_size of
// exactly MaxFileSize is the last byte that fits and must succeed, matching
// spec.md §8.4's worked example. If the bitmap runs out while a data block
// is being allocated partway through extension, n is left (and persisted)
// with Size already reflecting the attempted extension even though not
// every block was allocated; this is the documented inconsistency window
// from spec.md §4.4/§11 — it is not closed here. A failure while allocating
// the indirect block itself returns without updating Size.
func (io *inodeIO) Write(inodeIdx uint32, n *inode, offset uint32, data []byte) (int, error) {
	newSize := offset + uint32(len(data))

	if uint64(newSize) > MaxFileSize(io.blockSize) {
		return 0, ErrFileTooLarge
	}

	if newSize > n.Size {
		firstBlock := int(n.Size / io.blockSize)
		lastBlock := int(newSize / io.blockSize)
		// A newSize of exactly MaxFileSize puts lastBlock one past the last
		// position an inode can address; stop at that last position.
		if maxPos := int(maxFileBlocks(io.blockSize)) - 1; lastBlock > maxPos {
			lastBlock = maxPos
		}

		for p := firstBlock; p <= lastBlock; p++ {
			assigned, err := io.blockAt(n, p)
			if err != nil {
				return 0, err
			}
			if assigned != noBlock {
				continue
			}

			blk, err := io.bitmap.NextFree()
			if err != nil {
				n.Size = newSize
				io.inodes.Write(inodeIdx, n)
				return 0, err
			}
			if err := io.bitmap.Set(blk, true); err != nil {
				return 0, err
			}
			if err := io.setBlockAt(n, p, int64(blk)); err != nil {
				return 0, err
			}
		}

		n.Size = newSize
	}

	if err := io.inodes.Write(inodeIdx, n); err != nil {
		return 0, err
	}

	total := 0
	block := int(offset / io.blockSize)
	within := int(offset % io.blockSize)

	for total < len(data) {
		phys, err := io.blockAt(n, block)
		if err != nil {
			return total, err
		}

		buf := make([]byte, io.blockSize)
		if phys != noBlock {
			if err := io.blocks.Read(uint32(phys), buf); err != nil {
				return total, err
			}
		}

		chunk := int(io.blockSize) - within
		if left := len(data) - total; chunk > left {
			chunk = left
		}
		copy(buf[within:within+chunk], data[total:total+chunk])

		if err := io.blocks.Write(uint32(phys), buf); err != nil {
			return total, err
		}

		total += chunk
		block++
		within = 0
	}

	return total, nil
}
