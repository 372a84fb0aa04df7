// Package dispatcher implements the path-resolution engine that sits
// between the FUSE binding and the namespace handlers: given any virtual
// path, it picks the right handler (internal/handler), asks it the
// questions a filesystem needs answered, and turns the result into a
// small, FUSE-agnostic Stat/ReadDir/Read/Readlink API. Nothing in this
// package touches an actual mount, so it can be exercised without one.
package dispatcher

import (
	"path"
	"strings"
	"time"

	"github.com/arlyon/repofs/internal/gitcore"
	"github.com/arlyon/repofs/internal/handler"
)

// ErrorKind classifies a dispatcher failure into the handful of outcomes a
// filesystem binding needs to translate into an errno.
type ErrorKind int

const (
	// NoError means the operation succeeded.
	NoError ErrorKind = iota
	// NotFound means the path doesn't resolve to anything (-> ENOENT).
	NotFound
	// NotADirectory means the path resolves to a file/symlink asked to
	// behave like a directory (-> ENOTDIR).
	NotADirectory
	// InternalError means the repository itself failed to answer the
	// question (corrupt object, I/O error) (-> EIO).
	InternalError
)

// Error wraps a dispatcher failure with its classification.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func classify(err error) *Error {
	switch {
	case err == nil:
		return nil
	case err == handler.ErrNotFound:
		return &Error{Kind: NotFound, Err: err}
	case err == handler.ErrNotADirectory:
		return &Error{Kind: NotADirectory, Err: err}
	default:
		return &Error{Kind: InternalError, Err: err}
	}
}

// EntryKind classifies what a resolved path is, for Stat's caller.
type EntryKind int

const (
	// Directory means Stat resolved to something ReadDir can list.
	Directory EntryKind = iota
	// Symlink means Stat resolved to a symlink; see Readlink.
	Symlink
	// RegularFile means Stat resolved to a plain file; see Read.
	RegularFile
)

// Attr is everything the dispatcher knows about a resolved path, filled in
// analogously to repofs.py's getattr: directories get size 0, symlinks get
// the length of their target, regular files get the underlying blob's size, and times default to "now" unless the path pins down a
// specific commit, in which case ctime/mtime become that commit's
// committer time.
type Attr struct {
	Kind  EntryKind
	Size  int64
	Mode  uint32 // permission bits only (no S_IFDIR/S_IFLNK/S_IFREG), see Options.ModeBits
	MTime time.Time
	CTime time.Time
	ATime time.Time
}

// defaultModeBits matches repofs.py's fallback when the repository's own
// mode can't be read: read+execute for everyone, no write.
const defaultModeBits = 0o555

const (
	datePrefix   = "/commits-by-date"
	hashPrefix   = "/commits-by-hash"
	branchPrefix = "/branches"
	tagPrefix    = "/tags"
)

// Dispatcher resolves virtual paths against a single repository.
type Dispatcher struct {
	acc           *gitcore.Accessor
	hashTrees     bool
	noRefSymlinks bool
	mountPoint    string
	modeBits      uint32
	now           func() time.Time
}

// Options configures the virtual namespace layout, mirroring repofs.py's
// --hash-trees and --no-ref-symlinks mount flags. MountPoint is threaded
// through to every readlink target (repofs.py's self.mount), since a
// symlink inside the mount must resolve from outside it. ModeBits are the
// permission bits (repofs.py's self.mnt_mode: the repository directory's own
// mode with the owner-write and directory-type bits cleared) combined with
// each entry's S_IFDIR/S_IFLNK/S_IFREG by the FUSE binding; zero defaults to
// defaultModeBits.
type Options struct {
	HashTrees     bool
	NoRefSymlinks bool
	MountPoint    string
	ModeBits      uint32
}

// New builds a Dispatcher over acc. now is injectable for tests; pass nil
// to use time.Now.
func New(acc *gitcore.Accessor, opts Options, now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	modeBits := opts.ModeBits
	if modeBits == 0 {
		modeBits = defaultModeBits
	}
	return &Dispatcher{
		acc:           acc,
		hashTrees:     opts.HashTrees,
		noRefSymlinks: opts.NoRefSymlinks,
		mountPoint:    opts.MountPoint,
		modeBits:      modeBits,
		now:           now,
	}
}

// resolve picks the handler responsible for path and reports which
// namespace root it lives under, mirroring repofs.py's _get_handler.
func (d *Dispatcher) resolve(p string) (handler.Handler, string) {
	clean := "/" + strings.Trim(p, "/")
	switch {
	case clean == "/":
		return handler.RootHandler{}, ""
	case strings.HasPrefix(clean, datePrefix):
		return handler.NewDateHandler(strings.TrimPrefix(strings.TrimPrefix(clean, datePrefix), "/"), d.acc), datePrefix
	case strings.HasPrefix(clean, hashPrefix):
		return handler.NewHashHandler(strings.TrimPrefix(strings.TrimPrefix(clean, hashPrefix), "/"), d.acc, d.hashTrees), hashPrefix
	case strings.HasPrefix(clean, branchPrefix):
		rest := strings.TrimPrefix(strings.TrimPrefix(clean, branchPrefix), "/")
		return handler.NewRefHandler(rest, d.acc, handler.BranchRefRoots, d.noRefSymlinks), branchPrefix
	case strings.HasPrefix(clean, tagPrefix):
		// Unlike branches, the tag namespace's user-visible ref names
		// keep their "tags/" segment (refs/tags/<name> drops only the
		// leading "refs"), so only the leading slash is stripped here.
		rest := strings.TrimPrefix(clean, "/")
		return handler.NewRefHandler(rest, d.acc, handler.TagRefRoots, d.noRefSymlinks), tagPrefix
	default:
		return nil, ""
	}
}

// hashUpdir returns the 3-level hex bucket path for commit (e.g.
// "ab/cd/ef"), or "" when hash trees are disabled.
func (d *Dispatcher) hashUpdir(commit string) string {
	if !d.hashTrees || len(commit) < 6 {
		return ""
	}
	return commit[0:2] + "/" + commit[2:4] + "/" + commit[4:6]
}

// formatToLink builds the absolute commits-by-hash path a ref or metadata
// symlink resolves to, mirroring repofs.py's _format_to_link.
func (d *Dispatcher) formatToLink(commit string) string {
	updir := d.hashUpdir(commit)
	if updir == "" {
		return path.Join(hashPrefix, commit) + "/"
	}
	return path.Join(hashPrefix, updir, commit) + "/"
}

// Stat resolves path to its kind, size, and times.
func (d *Dispatcher) Stat(p string) (Attr, *Error) {
	h, _ := d.resolve(p)
	if h == nil {
		return Attr{}, &Error{Kind: NotFound, Err: handler.ErrNotFound}
	}

	now := d.now()
	attr := Attr{ATime: now, CTime: now, MTime: now, Mode: d.modeBits}

	if commit := h.Commit(); commit != "" {
		ct := time.Unix(d.acc.CommitTime(commit), 0)
		attr.CTime = ct
		attr.MTime = ct
	}

	switch {
	case h.IsDir():
		attr.Kind = Directory
		return attr, nil
	case h.IsSymlink():
		target, err := d.readlinkTarget(h, p)
		if err != nil {
			return Attr{}, classify(err)
		}
		attr.Kind = Symlink
		attr.Size = int64(len(target))
		return attr, nil
	default:
		size, err := h.FileSize()
		if err != nil {
			return Attr{}, classify(err)
		}
		attr.Kind = RegularFile
		attr.Size = size
		return attr, nil
	}
}

// ReadDir lists a directory path's entries (not including "." and "..",
// which the FUSE binding does not add either; see fusebind's OpenDir).
func (d *Dispatcher) ReadDir(p string) ([]string, *Error) {
	h, _ := d.resolve(p)
	if h == nil {
		return nil, &Error{Kind: NotFound, Err: handler.ErrNotFound}
	}
	entries, err := h.ReadDir()
	if err != nil {
		return nil, classify(err)
	}
	return entries, nil
}

// Read returns the full contents of the file at path; the FUSE binding
// slices it to the requested offset/size.
func (d *Dispatcher) Read(p string) ([]byte, *Error) {
	h, _ := d.resolve(p)
	if h == nil {
		return nil, &Error{Kind: NotFound, Err: handler.ErrNotFound}
	}
	content, err := h.FileContents()
	if err != nil {
		return nil, classify(err)
	}
	return content, nil
}

// Readlink returns the absolute mount-relative target of the symlink at
// path.
func (d *Dispatcher) Readlink(p string) (string, *Error) {
	h, _ := d.resolve(p)
	if h == nil {
		return "", &Error{Kind: NotFound, Err: handler.ErrNotFound}
	}
	target, err := d.readlinkTarget(h, p)
	if err != nil {
		return "", classify(err)
	}
	return target, nil
}

// readlinkTarget implements repofs.py's _target_from_symlink: a metadata
// symlink always wraps into a commits-by-hash path regardless of which
// namespace root it lives under; otherwise the wrapping depends on which
// root the path came from. Every target is then rooted at self.mount, since
// a symlink inside the mount has to resolve from outside it too.
func (d *Dispatcher) readlinkTarget(h handler.Handler, p string) (string, error) {
	raw, err := h.RawSymlinkTarget()
	if err != nil {
		return "", err
	}

	if h.IsMetadataSymlink() {
		return d.underMount(d.formatToLink(raw)), nil
	}

	clean := "/" + strings.Trim(p, "/")
	switch {
	case strings.HasPrefix(clean, datePrefix):
		return d.underMount(path.Join(datePrefix, raw)), nil
	case strings.HasPrefix(clean, hashPrefix):
		return d.underMount(path.Join(hashPrefix, raw)), nil
	case strings.HasPrefix(clean, branchPrefix), strings.HasPrefix(clean, tagPrefix):
		return d.underMount(d.formatToLink(raw)), nil
	default:
		return "", handler.ErrNotFound
	}
}

// underMount prefixes a virtual, mount-relative target with the real mount
// point, so the resulting symlink resolves from outside the mount too.
// path.Join cleans away a trailing slash, so it's restored when target had
// one (formatToLink's directory-style targets end in "/").
func (d *Dispatcher) underMount(target string) string {
	if d.mountPoint == "" {
		return target
	}
	joined := path.Join(d.mountPoint, target)
	if strings.HasSuffix(target, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}
