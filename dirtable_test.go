package simplefs

import "testing"

func newTestDirTable(t *testing.T) (*dirTable, *inodeIO, *inodeCache) {
	t.Helper()
	blockSize, numBlocks := uint32(1024), uint32(64)
	dev := newMemDevice(blockSize, numBlocks)
	blocks := newBlockCache(dev, 8)
	bm := newBitmap(blocks, blockSize, numBlocks)
	sb := superblock{Magic: Magic, BlockSize: blockSize, FileSystemSize: numBlocks, InodeTableLen: 1, RootDirInode: 0}
	sbState := &superblockState{sb: sb, blocks: blocks, bitmap: bm}
	if err := initBitmapRegion(bm, blockSize, numBlocks); err != nil {
		t.Fatal(err)
	}
	if err := sbState.persist(); err != nil {
		t.Fatal(err)
	}
	inodes := newInodeCache(blocks, sbState, 4, nil)
	io := newInodeIO(blocks, inodes, bm, blockSize)

	rootBlock, err := bm.NextFree()
	if err != nil {
		t.Fatal(err)
	}
	if err := bm.Set(rootBlock, true); err != nil {
		t.Fatal(err)
	}
	root := newEmptyInode()
	root.LinkCount = 1
	root.Size = blockSize
	root.Direct[0] = int64(rootBlock)
	if err := inodes.Write(0, root); err != nil {
		t.Fatal(err)
	}

	dt, err := loadDirTable(io, 0, root, blockSize)
	if err != nil {
		t.Fatal(err)
	}
	return dt, io, inodes
}

func TestDirTablePutAndFind(t *testing.T) {
	dt, _, _ := newTestDirTable(t)

	if dt.Find("a.txt") != -1 {
		t.Fatalf("empty table should have no entries")
	}

	slot := dt.FreeSlot()
	if err := dt.Put(slot, newDirEntry(5, "a.txt")); err != nil {
		t.Fatal(err)
	}

	idx := dt.Find("a.txt")
	if idx == -1 {
		t.Fatalf("expected to find a.txt")
	}
	if dt.Get(idx).Inode != 5 {
		t.Fatalf("expected inode 5, got %d", dt.Get(idx).Inode)
	}
}

func TestDirTableRemoveCompacts(t *testing.T) {
	dt, _, _ := newTestDirTable(t)

	if err := dt.Put(dt.FreeSlot(), newDirEntry(1, "a")); err != nil {
		t.Fatal(err)
	}
	if err := dt.Put(dt.FreeSlot(), newDirEntry(2, "b")); err != nil {
		t.Fatal(err)
	}
	if err := dt.Put(dt.FreeSlot(), newDirEntry(3, "c")); err != nil {
		t.Fatal(err)
	}

	sizeBefore := dt.Size()
	removedInode, err := dt.Remove(0)
	if err != nil {
		t.Fatal(err)
	}
	if removedInode != 1 {
		t.Fatalf("expected removed inode 1, got %d", removedInode)
	}
	if dt.Size() != sizeBefore-1 {
		t.Fatalf("table did not shrink by one slot")
	}
	if dt.Find("a") != -1 {
		t.Fatalf("removed entry must no longer be found")
	}
	if dt.Find("b") == -1 || dt.Find("c") == -1 {
		t.Fatalf("remaining entries must have compacted down, not vanished")
	}
}

func TestDirTableFreeSlotReusesRemovedEntry(t *testing.T) {
	dt, _, _ := newTestDirTable(t)

	if err := dt.Put(dt.FreeSlot(), newDirEntry(1, "a")); err != nil {
		t.Fatal(err)
	}
	if _, err := dt.Remove(0); err != nil {
		t.Fatal(err)
	}
	if dt.FreeSlot() != 0 {
		t.Fatalf("expected free slot 0 after removing the only entry, got %d", dt.FreeSlot())
	}
}
