// Package fusebind adapts a dispatcher.Dispatcher to the go-fuse pathfs
// API, translating dispatcher.Error kinds into fuse.Status codes. Every
// write operation is left at its pathfs.FileSystem default (ENOSYS),
// mirroring repofs.py's write callbacks all being set to None: this is a
// read-only mount.
package fusebind

import (
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"

	"github.com/arlyon/repofs/internal/dispatcher"
)

// FileSystem implements pathfs.FileSystem over a dispatcher.Dispatcher.
type FileSystem struct {
	pathfs.FileSystem
	d *dispatcher.Dispatcher
}

// New wraps d as a pathfs.FileSystem.
func New(d *dispatcher.Dispatcher) *FileSystem {
	return &FileSystem{FileSystem: pathfs.NewDefaultFileSystem(), d: d}
}

func virtualPath(name string) string {
	return "/" + name
}

func toStatus(err *dispatcher.Error) fuse.Status {
	if err == nil {
		return fuse.OK
	}
	switch err.Kind {
	case dispatcher.NotFound:
		return fuse.ENOENT
	case dispatcher.NotADirectory:
		return fuse.Status(syscall.ENOTDIR)
	default:
		return fuse.EIO
	}
}

// GetAttr mirrors repofs.py's getattr: mode bits combine the resolved kind's
// type bit with the dispatcher's configured permission bits (the repo
// directory's own mode), atime is always "now", and ctime/mtime are the
// commit's committer time when the path pins down a specific commit.
func (fs *FileSystem) GetAttr(name string, context *fuse.Context) (*fuse.Attr, fuse.Status) {
	attr, derr := fs.d.Stat(virtualPath(name))
	if derr != nil {
		return nil, toStatus(derr)
	}

	out := &fuse.Attr{
		Size:  uint64(attr.Size),
		Atime: uint64(attr.ATime.Unix()),
		Mtime: uint64(attr.MTime.Unix()),
		Ctime: uint64(attr.CTime.Unix()),
	}
	switch attr.Kind {
	case dispatcher.Directory:
		out.Mode = fuse.S_IFDIR | attr.Mode
	case dispatcher.Symlink:
		out.Mode = fuse.S_IFLNK | attr.Mode
	default:
		out.Mode = fuse.S_IFREG | attr.Mode
	}
	return out, fuse.OK
}

// OpenDir lists a directory's entries. "." and ".." are added by the
// kernel, matching repofs.py's readdir which only yields them explicitly
// for the benefit of the FUSE library it used; go-fuse doesn't need them.
func (fs *FileSystem) OpenDir(name string, context *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	entries, derr := fs.d.ReadDir(virtualPath(name))
	if derr != nil {
		return nil, toStatus(derr)
	}
	out := make([]fuse.DirEntry, len(entries))
	for i, e := range entries {
		out[i] = fuse.DirEntry{Name: e, Mode: fuse.S_IFREG}
	}
	return out, fuse.OK
}

// Readlink resolves a symlink's target, already an absolute mount-relative
// path (see dispatcher.Dispatcher.Readlink).
func (fs *FileSystem) Readlink(name string, context *fuse.Context) (string, fuse.Status) {
	target, derr := fs.d.Readlink(virtualPath(name))
	if derr != nil {
		return "", toStatus(derr)
	}
	return target, fuse.OK
}

// Open returns a read-only nodefs.File backed by the file's full contents,
// read eagerly since repository blobs are immutable once resolved.
func (fs *FileSystem) Open(name string, flags uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	content, derr := fs.d.Read(virtualPath(name))
	if derr != nil {
		return nil, toStatus(derr)
	}
	return &readOnlyFile{File: nodefs.NewDefaultFile(), content: content}, fuse.OK
}

// readOnlyFile serves Read from an in-memory byte slice and rejects every
// write-shaped operation via its embedded nodefs.DefaultFile.
type readOnlyFile struct {
	nodefs.File
	content []byte
}

func (f *readOnlyFile) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	if off < 0 || int(off) > len(f.content) {
		return fuse.ReadResultData(nil), fuse.OK
	}
	end := int(off) + len(dest)
	if end > len(f.content) {
		end = len(f.content)
	}
	return fuse.ReadResultData(f.content[off:end]), fuse.OK
}

// Mount sets up a go-fuse server over fs at mountPoint. Callers are
// responsible for calling Serve (blocking) or Unmount.
func Mount(fs *FileSystem, mountPoint string, opts *fuse.MountOptions) (*fuse.Server, error) {
	nodeFs := pathfs.NewPathNodeFs(fs, nil)
	conn := nodefs.NewFileSystemConnector(nodeFs.Root(), nodefs.NewOptions())
	mountOpts := fuse.MountOptions{SingleThreaded: true, Name: "repofs", FsName: "repofs"}
	if opts != nil {
		mountOpts = *opts
	}
	return fuse.NewServer(conn.RawFS(), mountPoint, &mountOpts)
}
