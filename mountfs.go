//go:build fuse

package simplefs

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// fsRoot is the single-directory FUSE root, grounded on the teacher's
// inode_fuse.go (Lookup/Open/OpenDir/ReadDir/FillAttr) but adapted to
// go-fuse/v2/fs's higher-level embedding API: squashfs's Inode type
// participates in a nested, read-only tree walked through a compressed
// directory reader, which has no SFS equivalent (one flat, read-write
// directory backed by a Volume). The attribute-filling and lookup
// responsibilities are the same; only the tree shape differs.
type fsRoot struct {
	fs.Inode
	vol *Volume
}

var _ fs.NodeLookuper = (*fsRoot)(nil)
var _ fs.NodeReaddirer = (*fsRoot)(nil)
var _ fs.NodeGetattrer = (*fsRoot)(nil)
var _ fs.NodeCreater = (*fsRoot)(nil)
var _ fs.NodeUnlinker = (*fsRoot)(nil)

// MountRoot constructs the FUSE root node for vol, suitable for passing to
// fs.Mount alongside *fuse.MountOptions.
func MountRoot(vol *Volume) fs.InodeEmbedder {
	return &fsRoot{vol: vol}
}

func (r *fsRoot) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = modeToUnix(fs.ModeDir) | 0755
	return 0
}

func (r *fsRoot) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	size := r.vol.FileSize(name)
	if size < 0 {
		return nil, syscall.ENOENT
	}
	out.Size = uint64(size)
	out.Mode = modeToUnix(0)
	child := r.NewInode(ctx, &fsFile{vol: r.vol, name: name}, fs.StableAttr{})
	return child, 0
}

func (r *fsRoot) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	var entries []fuse.DirEntry
	buf := make([]byte, MaxNameLength)
	for {
		n := r.vol.NextName(buf)
		if n == 0 {
			break
		}
		name := string(buf[:n])
		entries = append(entries, fuse.DirEntry{Name: name, Mode: modeToUnix(0)})
	}
	return fs.NewListDirStream(entries), 0
}

// Create makes a new, empty file through Volume.Open (which creates on a
// name miss) and hands back an already-open handle, the FUSE counterpart
// of the mount's write support.
func (r *fsRoot) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	fd, err := r.vol.Open(name)
	if err != nil {
		return nil, nil, 0, syscall.EIO
	}
	out.Mode = modeToUnix(0)
	child := r.NewInode(ctx, &fsFile{vol: r.vol, name: name}, fs.StableAttr{})
	return child, &fsFileHandle{vol: r.vol, fd: fd}, 0, 0
}

// Unlink removes name via Volume.Remove.
func (r *fsRoot) Unlink(ctx context.Context, name string) syscall.Errno {
	if err := r.vol.Remove(name); err != nil {
		return syscall.ENOENT
	}
	return 0
}

// fsFile represents a single regular file, opened through the Volume's
// integer-handle API underneath go-fuse's read interface.
type fsFile struct {
	fs.Inode
	vol  *Volume
	name string
}

var _ fs.NodeOpener = (*fsFile)(nil)
var _ fs.NodeGetattrer = (*fsFile)(nil)

func (f *fsFile) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	size := f.vol.FileSize(f.name)
	if size < 0 {
		return syscall.ENOENT
	}
	out.Size = uint64(size)
	out.Mode = modeToUnix(0)
	return 0
}

func (f *fsFile) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	fd, err := f.vol.Open(f.name)
	if err != nil {
		return nil, 0, syscall.EIO
	}
	return &fsFileHandle{vol: f.vol, fd: fd}, fuse.FOPEN_KEEP_CACHE, 0
}

type fsFileHandle struct {
	vol *Volume
	fd  int
}

var _ fs.FileReader = (*fsFileHandle)(nil)
var _ fs.FileWriter = (*fsFileHandle)(nil)
var _ fs.FileReleaser = (*fsFileHandle)(nil)

func (h *fsFileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if err := h.vol.Seek(h.fd, off); err != nil {
		return nil, syscall.EINVAL
	}
	n, err := h.vol.Read(h.fd, dest)
	if err != nil {
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *fsFileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	if err := h.vol.Seek(h.fd, off); err != nil {
		return 0, syscall.EINVAL
	}
	n, err := h.vol.Write(h.fd, data)
	if err != nil {
		return 0, syscall.EIO
	}
	return uint32(n), 0
}

func (h *fsFileHandle) Release(ctx context.Context) syscall.Errno {
	if err := h.vol.Close(h.fd); err != nil {
		return syscall.EIO
	}
	return 0
}
