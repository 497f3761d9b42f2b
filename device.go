package simplefs

import (
	"fmt"
	"io"
	"os"
)

// BlockDevice is the external collaborator the storage engine is built on:
// synchronous whole-block I/O addressed by block index. Implementations are
// not required to be safe for concurrent use; the engine above never calls
// them concurrently (see spec.md §5).
type BlockDevice interface {
	// ReadBlocks reads count blocks starting at block start into buf, which
	// must be exactly count*BlockSize() bytes.
	ReadBlocks(start, count uint32, buf []byte) error
	// WriteBlocks writes count blocks starting at block start from buf,
	// which must be exactly count*BlockSize() bytes.
	WriteBlocks(start, count uint32, buf []byte) error
	// BlockSize returns the fixed block size of the device.
	BlockSize() uint32
	// NumBlocks returns the fixed number of blocks on the device.
	NumBlocks() uint32
	// Sync forces any OS-level buffering to durable storage.
	Sync() error
	// Close releases resources held by the device.
	Close() error
}

// FileDevice is a BlockDevice backed by a regular file, one of the two
// lifecycles described by spec.md §6's init_fresh_disk/init_disk contract.
type FileDevice struct {
	f         *os.File
	blockSize uint32
	numBlocks uint32
}

// CreateFileDevice creates a new backing file of exactly blockSize*numBlocks
// bytes, truncating any existing file at path. This is the "fresh" half of
// the init_fresh_disk/init_disk contract.
func CreateFileDevice(path string, blockSize, numBlocks uint32) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("simplefs: create disk %s: %w", path, err)
	}

	size := int64(blockSize) * int64(numBlocks)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("simplefs: truncate disk %s: %w", path, err)
	}

	dev := &FileDevice{f: f, blockSize: blockSize, numBlocks: numBlocks}
	if err := lockDevice(f); err != nil {
		f.Close()
		return nil, err
	}
	return dev, nil
}

// OpenFileDevice opens an existing backing file. The caller must supply the
// same blockSize/numBlocks the file was created with; no header validation
// happens here since that's the superblock's job (see Volume.Mount).
func OpenFileDevice(path string, blockSize, numBlocks uint32) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("simplefs: open disk %s: %w", path, err)
	}

	dev := &FileDevice{f: f, blockSize: blockSize, numBlocks: numBlocks}
	if err := lockDevice(f); err != nil {
		f.Close()
		return nil, err
	}
	return dev, nil
}

func (d *FileDevice) BlockSize() uint32 { return d.blockSize }
func (d *FileDevice) NumBlocks() uint32 { return d.numBlocks }

func (d *FileDevice) checkRange(start, count uint32) error {
	if uint64(start)+uint64(count) > uint64(d.numBlocks) {
		return fmt.Errorf("simplefs: block range [%d,%d) out of bounds (%d blocks total)", start, uint64(start)+uint64(count), d.numBlocks)
	}
	return nil
}

func (d *FileDevice) ReadBlocks(start, count uint32, buf []byte) error {
	if err := d.checkRange(start, count); err != nil {
		return err
	}
	want := int(count) * int(d.blockSize)
	if len(buf) != want {
		return fmt.Errorf("simplefs: read buffer is %d bytes, expected %d", len(buf), want)
	}
	off := int64(start) * int64(d.blockSize)
	_, err := d.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return fmt.Errorf("simplefs: read blocks [%d,%d): %w: %w", start, start+count, ErrDeviceIO, err)
	}
	return nil
}

func (d *FileDevice) WriteBlocks(start, count uint32, buf []byte) error {
	if err := d.checkRange(start, count); err != nil {
		return err
	}
	want := int(count) * int(d.blockSize)
	if len(buf) != want {
		return fmt.Errorf("simplefs: write buffer is %d bytes, expected %d", len(buf), want)
	}
	off := int64(start) * int64(d.blockSize)
	if _, err := d.f.WriteAt(buf, off); err != nil {
		return fmt.Errorf("simplefs: write blocks [%d,%d): %w: %w", start, start+count, ErrDeviceIO, err)
	}
	return nil
}

func (d *FileDevice) Sync() error {
	return d.f.Sync()
}

func (d *FileDevice) Close() error {
	unlockDevice(d.f)
	return d.f.Close()
}
