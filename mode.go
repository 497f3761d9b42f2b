package simplefs

import "io/fs"

// Unix file-type bits used by the persisted inode Mode field and the FUSE
// adapter's attribute filling. SFS only ever produces S_IFREG (files) and
// S_IFDIR (the single root directory), so only those two types and the
// type mask are defined, in the same shape as the teacher's mode.go.
const (
	sIFMT  = 0xf000
	sIFREG = 0x8000
	sIFDIR = 0x4000
)

// unixToMode translates a persisted Unix-style mode word into a fs.FileMode,
// the way the teacher's UnixToMode does for squashfs inodes.
func unixToMode(mode uint32) fs.FileMode {
	res := fs.FileMode(mode & 0777)
	if mode&sIFMT == sIFDIR {
		res |= fs.ModeDir
	}
	return res
}

// modeToUnix is unixToMode's inverse, used when constructing a fresh
// inode's Mode field at Open-time.
func modeToUnix(mode fs.FileMode) uint32 {
	res := uint32(mode.Perm())
	if mode&fs.ModeDir == fs.ModeDir {
		res |= sIFDIR
	} else {
		res |= sIFREG
	}
	return res
}
