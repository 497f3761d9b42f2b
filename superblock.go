package simplefs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
)

// superblock is the first block of the volume, describing the fixed
// parameters of the filesystem and the current size of the inode region.
// It is read once at mount and rewritten only when the inode region grows.
type superblock struct {
	Magic          uint32
	BlockSize      uint32
	FileSystemSize uint32
	InodeTableLen  uint32
	RootDirInode   uint32
}

// MarshalBinary encodes the superblock as BlockSize bytes, zero-padded.
// The field walk mirrors the reflect-driven approach used for squashfs's
// Superblock: every exported uint32 field is written in declaration order.
func (s *superblock) MarshalBinary(blockSize uint32) ([]byte, error) {
	buf := new(bytes.Buffer)
	v := reflect.ValueOf(s).Elem()
	for i := 0; i < v.NumField(); i++ {
		if err := binary.Write(buf, binary.LittleEndian, v.Field(i).Interface()); err != nil {
			return nil, err
		}
	}
	if uint32(buf.Len()) > blockSize {
		return nil, fmt.Errorf("simplefs: superblock %d bytes does not fit in a %d byte block", buf.Len(), blockSize)
	}
	out := make([]byte, blockSize)
	copy(out, buf.Bytes())
	return out, nil
}

// UnmarshalBinary decodes a superblock from its on-disk block representation
// and validates the magic number.
func (s *superblock) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	v := reflect.ValueOf(s).Elem()
	for i := 0; i < v.NumField(); i++ {
		if err := binary.Read(r, binary.LittleEndian, v.Field(i).Addr().Interface()); err != nil {
			return err
		}
	}
	if s.Magic != Magic {
		return ErrInvalidFile
	}
	return nil
}

// superblockState bundles the in-memory superblock with the block cache and
// bitmap it's stored alongside, so the inode cache can grow the inode
// region (spec.md §4.3) without knowing about the rest of the volume.
type superblockState struct {
	sb     superblock
	blocks *blockCache
	bitmap *bitmap
}

func (s *superblockState) InodeTableLen() uint32 {
	return s.sb.InodeTableLen
}

func (s *superblockState) BlockSize() uint32 {
	return s.sb.BlockSize
}

// growInodeTable increments InodeTableLen and persists the superblock to
// block 0 through the block cache.
func (s *superblockState) growInodeTable() error {
	s.sb.InodeTableLen++
	return s.persist()
}

func (s *superblockState) persist() error {
	enc, err := s.sb.MarshalBinary(s.sb.BlockSize)
	if err != nil {
		return err
	}
	return s.blocks.Write(0, enc)
}
