package simplefs

import "log"

// Option configures a Volume at Format or Mount time, mirroring the
// teacher's functional-option pattern (options.go's Option type).
type Option func(*config) error

type config struct {
	blockSize      uint32
	volumeBlocks   uint32
	blockCacheSize int
	inodeCacheSize int
	maxOpenFiles   int
	logger         *log.Logger
	device         BlockDevice
}

func defaultConfig() *config {
	return &config{
		blockSize:      DefaultBlockSize,
		volumeBlocks:   DefaultVolumeBlocks,
		blockCacheSize: DefaultBlockCacheSize,
		inodeCacheSize: DefaultInodeCacheSize,
		maxOpenFiles:   DefaultMaxOpenFiles,
		logger:         log.Default(),
	}
}

// WithBlockSize overrides the fixed block size B (default 1024).
func WithBlockSize(n uint32) Option {
	return func(c *config) error {
		c.blockSize = n
		return nil
	}
}

// WithVolumeBlocks overrides the total block count N (default 2048).
func WithVolumeBlocks(n uint32) Option {
	return func(c *config) error {
		c.volumeBlocks = n
		return nil
	}
}

// WithBlockCacheSize overrides C_B, the block cache's slot count (default 16).
func WithBlockCacheSize(n int) Option {
	return func(c *config) error {
		c.blockCacheSize = n
		return nil
	}
}

// WithInodeCacheSize overrides C_I, the inode cache's slot count (default 16).
func WithInodeCacheSize(n int) Option {
	return func(c *config) error {
		c.inodeCacheSize = n
		return nil
	}
}

// WithMaxOpenFiles overrides F, the open-file handle table's size (default 16).
func WithMaxOpenFiles(n int) Option {
	return func(c *config) error {
		c.maxOpenFiles = n
		return nil
	}
}

// WithLogger overrides the package's diagnostic logger (default log.Default()).
func WithLogger(l *log.Logger) Option {
	return func(c *config) error {
		c.logger = l
		return nil
	}
}

// WithDevice supplies a pre-opened BlockDevice instead of having Format or
// Mount open a FileDevice at a path. Useful for in-memory devices in tests.
func WithDevice(dev BlockDevice) Option {
	return func(c *config) error {
		c.device = dev
		return nil
	}
}
