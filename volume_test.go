package simplefs

import (
	"bytes"
	"testing"
)

func mustFormat(t *testing.T, blockSize, numBlocks uint32, cacheSize int) *Volume {
	t.Helper()
	dev := newMemDevice(blockSize, numBlocks)
	v, err := Format("",
		WithDevice(dev),
		WithBlockSize(blockSize),
		WithVolumeBlocks(numBlocks),
		WithBlockCacheSize(cacheSize),
		WithInodeCacheSize(cacheSize),
	)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	return v
}

func TestFreshVolumeHasNoFiles(t *testing.T) {
	v := mustFormat(t, 1024, 64, 4)

	buf := make([]byte, MaxNameLength)
	if n := v.NextName(buf); n != 0 {
		t.Fatalf("expected no entries on a fresh volume, got %q", buf[:n])
	}
}

func TestOpenWriteReadRoundTrip(t *testing.T) {
	v := mustFormat(t, 1024, 64, 4)

	fd, err := v.Open("hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("hello, world")
	n, err := v.Write(fd, data)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(data) {
		t.Fatalf("wrote %d bytes, want %d", n, len(data))
	}
	if err := v.Close(fd); err != nil {
		t.Fatal(err)
	}

	fd2, err := v.Open("hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Seek(fd2, 0); err != nil {
		t.Fatal(err)
	}
	out := make([]byte, len(data))
	read, err := v.Read(fd2, out)
	if err != nil {
		t.Fatal(err)
	}
	if read != len(data) || !bytes.Equal(out, data) {
		t.Fatalf("read back %q, want %q", out[:read], data)
	}
}

func TestOpenAppendsAtEOF(t *testing.T) {
	v := mustFormat(t, 1024, 64, 4)

	fd, err := v.Open("a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Write(fd, []byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := v.Close(fd); err != nil {
		t.Fatal(err)
	}

	// re-opening should start at EOF (append-on-open), not offset 0
	fd2, err := v.Open("a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Write(fd2, []byte("def")); err != nil {
		t.Fatal(err)
	}
	v.Close(fd2)

	if size := v.FileSize("a"); size != 6 {
		t.Fatalf("expected appended size 6, got %d", size)
	}
}

func TestOpenSameNameTwiceReturnsSameHandle(t *testing.T) {
	v := mustFormat(t, 1024, 64, 4)

	fd1, err := v.Open("shared")
	if err != nil {
		t.Fatal(err)
	}
	fd2, err := v.Open("shared")
	if err != nil {
		t.Fatal(err)
	}
	if fd1 != fd2 {
		t.Fatalf("opening an already-open name should return the same handle")
	}
}

func TestHandleTableFull(t *testing.T) {
	v := mustFormat(t, 1024, 64, 4)
	// the Volume was created with DefaultMaxOpenFiles via mustFormat's
	// options not overriding WithMaxOpenFiles; confirm default of 16.
	names := []string{}
	for i := 0; i < DefaultMaxOpenFiles; i++ {
		names = append(names, string(rune('a'+i)))
	}
	for _, n := range names {
		if _, err := v.Open(n); err != nil {
			t.Fatalf("Open(%q): %v", n, err)
		}
	}
	if _, err := v.Open("overflow"); err != ErrHandleTableFull {
		t.Fatalf("expected ErrHandleTableFull, got %v", err)
	}
}

func TestRemoveFreesNameAndBlocks(t *testing.T) {
	v := mustFormat(t, 1024, 64, 4)

	fd, err := v.Open("todelete")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Write(fd, make([]byte, 2048)); err != nil {
		t.Fatal(err)
	}
	if err := v.Close(fd); err != nil {
		t.Fatal(err)
	}

	infoBefore, err := v.Info()
	if err != nil {
		t.Fatal(err)
	}

	if err := v.Remove("todelete"); err != nil {
		t.Fatal(err)
	}

	if size := v.FileSize("todelete"); size != -1 {
		t.Fatalf("expected -1 for removed file, got %d", size)
	}

	infoAfter, err := v.Info()
	if err != nil {
		t.Fatal(err)
	}
	if infoAfter.FreeBlocks <= infoBefore.FreeBlocks {
		t.Fatalf("expected Remove to free blocks: before=%d after=%d", infoBefore.FreeBlocks, infoAfter.FreeBlocks)
	}
}

func TestSeekRejectsNegativeOffset(t *testing.T) {
	v := mustFormat(t, 1024, 64, 4)
	fd, err := v.Open("f")
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Seek(fd, -1); err != ErrNegativeSeek {
		t.Fatalf("expected ErrNegativeSeek, got %v", err)
	}
}

func TestInvalidHandleRejected(t *testing.T) {
	v := mustFormat(t, 1024, 64, 4)
	if err := v.Close(99); err != ErrInvalidHandle {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}
	if _, err := v.Write(99, nil); err != ErrInvalidHandle {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}
}

func TestOutOfSpaceOnSmallVolume(t *testing.T) {
	v := mustFormat(t, 1024, 32, 4)

	fd, err := v.Open("big")
	if err != nil {
		t.Fatal(err)
	}

	_, err = v.Write(fd, make([]byte, 29*1024))
	if err != ErrOutOfSpace {
		t.Fatalf("expected ErrOutOfSpace on a 32-block volume, got %v", err)
	}
}

func TestMaxFileSizeBoundary(t *testing.T) {
	v := mustFormat(t, 1024, 8192, 8)

	fd, err := v.Open("exact")
	if err != nil {
		t.Fatal(err)
	}
	maxSize := MaxFileSize(1024)
	if _, err := v.Write(fd, make([]byte, maxSize)); err != nil {
		t.Fatalf("writing exactly the max size should succeed: %v", err)
	}

	fd2, err := v.Open("over")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Write(fd2, make([]byte, maxSize+1)); err != ErrFileTooLarge {
		t.Fatalf("expected ErrFileTooLarge past the boundary, got %v", err)
	}
}

func TestNextNameCursorDoesNotResetImplicitly(t *testing.T) {
	v := mustFormat(t, 1024, 64, 4)

	for _, n := range []string{"a", "b", "c"} {
		fd, err := v.Open(n)
		if err != nil {
			t.Fatal(err)
		}
		v.Close(fd)
	}

	buf := make([]byte, MaxNameLength)
	seen := map[string]bool{}
	for {
		n := v.NextName(buf)
		if n == 0 {
			break
		}
		seen[string(buf[:n])] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct names, got %v", seen)
	}

	// cursor is exhausted now; calling again must keep returning 0, not
	// restart the scan
	if n := v.NextName(buf); n != 0 {
		t.Fatalf("cursor should remain exhausted, got %q", buf[:n])
	}
}

func TestMountReopensExistingVolume(t *testing.T) {
	dev := newMemDevice(1024, 64)
	v, err := Format("", WithDevice(dev), WithBlockSize(1024), WithVolumeBlocks(64))
	if err != nil {
		t.Fatal(err)
	}
	fd, err := v.Open("persisted")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Write(fd, []byte("durable")); err != nil {
		t.Fatal(err)
	}
	if err := v.Close(fd); err != nil {
		t.Fatal(err)
	}
	if err := v.Sync(); err != nil {
		t.Fatal(err)
	}

	v2, err := Mount("", WithDevice(dev), WithBlockSize(1024), WithVolumeBlocks(64))
	if err != nil {
		t.Fatal(err)
	}
	if size := v2.FileSize("persisted"); size != 7 {
		t.Fatalf("expected persisted file of size 7 after remount, got %d", size)
	}
}
