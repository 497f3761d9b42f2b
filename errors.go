package simplefs

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrInvalidFile is returned when the backing image does not carry the SFS magic number
	ErrInvalidFile = errors.New("invalid file, sfs signature not found")

	// ErrNotFormatted is returned when Mount is called against a volume that was never formatted
	ErrNotFormatted = errors.New("volume has not been formatted")

	// ErrOutOfSpace is returned when the free-block bitmap has no free block left
	ErrOutOfSpace = errors.New("no free blocks left on device")

	// ErrFileTooLarge is returned when a write would grow a file past the direct+indirect limit
	ErrFileTooLarge = errors.New("write would exceed maximum file size")

	// ErrInvalidHandle is returned when a file descriptor is out of range or its slot is free
	ErrInvalidHandle = errors.New("invalid file handle")

	// ErrNameNotFound is returned when a lookup by filename fails
	ErrNameNotFound = errors.New("file not found")

	// ErrHandleTableFull is returned by Open when every open-file slot is occupied
	ErrHandleTableFull = errors.New("no free file handles")

	// ErrLayoutError is returned when the inode table would have to grow non-contiguously
	ErrLayoutError = errors.New("non-contiguous inode table growth")

	// ErrNameTooLong is returned when a filename exceeds MaxNameLength bytes
	ErrNameTooLong = errors.New("filename too long")

	// ErrNegativeSeek is returned by Seek when given a negative offset
	ErrNegativeSeek = errors.New("negative seek offset")

	// ErrDeviceIO wraps a failure from the underlying BlockDevice; use
	// errors.Unwrap or errors.Is to inspect the underlying OS error.
	ErrDeviceIO = errors.New("block device I/O error")
)
