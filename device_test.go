package simplefs

import "fmt"

// memDevice is an in-memory BlockDevice used throughout the test suite
// instead of a backing file.
type memDevice struct {
	blockSize uint32
	numBlocks uint32
	data      []byte

	// errAt, if non-negative, is the block index at or past which every
	// ReadBlocks/WriteBlocks call fails with errMsg, adapted from the
	// teacher's mock_test.go mockReader error-injection technique.
	errAt  int64
	errMsg error
}

func newMemDevice(blockSize, numBlocks uint32) *memDevice {
	return &memDevice{
		blockSize: blockSize,
		numBlocks: numBlocks,
		data:      make([]byte, int(blockSize)*int(numBlocks)),
		errAt:     -1,
	}
}

func (d *memDevice) BlockSize() uint32 { return d.blockSize }
func (d *memDevice) NumBlocks() uint32 { return d.numBlocks }

func (d *memDevice) ReadBlocks(start, count uint32, buf []byte) error {
	if d.errAt >= 0 && int64(start) >= d.errAt {
		return d.errMsg
	}
	off := int64(start) * int64(d.blockSize)
	n := int64(count) * int64(d.blockSize)
	copy(buf, d.data[off:off+n])
	return nil
}

func (d *memDevice) WriteBlocks(start, count uint32, buf []byte) error {
	if d.errAt >= 0 && int64(start) >= d.errAt {
		return d.errMsg
	}
	off := int64(start) * int64(d.blockSize)
	n := int64(count) * int64(d.blockSize)
	copy(d.data[off:off+n], buf)
	return nil
}

func (d *memDevice) Sync() error { return nil }
func (d *memDevice) Close() error { return nil }

func (d *memDevice) failFrom(block int64, msg error) {
	d.errAt = block
	d.errMsg = msg
}

var errInjected = fmt.Errorf("simplefs: injected device failure")
