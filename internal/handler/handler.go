// Package handler implements the four path handlers that interpret a path
// within one root of the virtual namespace — commits-by-date,
// commits-by-hash, branches, and tags (the last two share RefHandler,
// parameterized by which ref roots they enumerate) — and the trivial root
// handler for "/" itself. Each handler turns a demuxed path (see
// internal/pathgrammar) into answers to the questions the dispatcher needs:
// is this a directory, a symlink, a regular file, and what are its contents.
package handler

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arlyon/repofs/internal/gitcore"
	"github.com/arlyon/repofs/internal/overlay"
	"github.com/arlyon/repofs/internal/pathgrammar"
)

// ErrNotFound indicates a path does not resolve to anything in the repository.
var ErrNotFound = errors.New("handler: not found")

// ErrNotADirectory indicates a path resolves to a real tree entry that is
// not a directory (a blob, symlink, or submodule), but was asked to behave
// like one (e.g. ReadDir on it).
var ErrNotADirectory = errors.New("handler: not a directory")

// Handler answers every question the dispatcher needs about a single path
// already rooted under one of repofs's four virtual namespaces.
type Handler interface {
	IsDir() bool
	IsSymlink() bool
	// IsMetadataSymlink reports whether the path is an entry inside a
	// metadata directory (e.g. ".git-parents/<commit>"), which the
	// dispatcher always wraps into a commits-by-hash link regardless of
	// which root namespace the path lives under.
	IsMetadataSymlink() bool
	ReadDir() ([]string, error)
	FileContents() ([]byte, error)
	FileSize() (int64, error)
	// RawSymlinkTarget returns the target in the handler's own namespace,
	// unwrapped — the dispatcher turns it into an absolute mount path.
	RawSymlinkTarget() (string, error)
	// Commit returns the commit this path resolves to, or "" if the path
	// doesn't pin down a specific commit (used for mtime/ctime).
	Commit() gitcore.Hash
}

// segments splits a slash-separated path into its non-empty components.
func segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func hashesToStrings(hashes []gitcore.Hash) []string {
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = string(h)
	}
	return out
}

// commitContent lists the entries at commitPath within commit, folding in
// the metadata overlay: metadata directory names dispatch to their overlay
// contents, and the commit root additionally lists the metadata vocabulary
// alongside the real tree entries.
func commitContent(acc *gitcore.Accessor, commit, commitPath string) ([]string, error) {
	if !acc.Exists(gitcore.Hash(commit)) {
		return nil, ErrNotFound
	}

	if overlay.IsDir(commitPath) {
		return overlay.DirContents(acc, gitcore.Hash(commit), commitPath), nil
	}

	dirents, err := acc.DirectoryContents(gitcore.Hash(commit), commitPath)
	if err != nil {
		return nil, ErrNotADirectory
	}
	if commitPath == "" {
		dirents = append(dirents, overlay.Names()...)
	}
	return dirents, nil
}

// fileContents resolves commitPath within commit, preferring the metadata
// overlay's fixed files over whatever the real tree holds at that name.
func fileContents(acc *gitcore.Accessor, commit, commitPath string) ([]byte, error) {
	if overlay.IsFile(commitPath) {
		s, _ := overlay.FileContents(acc, gitcore.Hash(commit), commitPath)
		return []byte(s), nil
	}
	return acc.FileContents(gitcore.Hash(commit), commitPath)
}

func fileSize(acc *gitcore.Accessor, commit, commitPath string) (int64, error) {
	if overlay.IsFile(commitPath) {
		s, _ := overlay.FileContents(acc, gitcore.Hash(commit), commitPath)
		return int64(len(s)), nil
	}
	return acc.FileSize(gitcore.Hash(commit), commitPath)
}

// RootHandler handles "/", the mount's top-level listing of the four
// namespace roots.
type RootHandler struct{}

func (RootHandler) IsDir() bool                        { return true }
func (RootHandler) IsSymlink() bool                    { return false }
func (RootHandler) IsMetadataSymlink() bool             { return false }
func (RootHandler) Commit() gitcore.Hash                { return "" }
func (RootHandler) FileContents() ([]byte, error)       { return nil, ErrNotFound }
func (RootHandler) FileSize() (int64, error)            { return 0, ErrNotFound }
func (RootHandler) RawSymlinkTarget() (string, error)   { return "", ErrNotFound }
func (RootHandler) ReadDir() ([]string, error) {
	return []string{"commits-by-date", "commits-by-hash", "branches", "tags"}, nil
}

// daysPerMonth returns the number of days in each month of year, indexed
// by month minus one (index 0 is January). Computed via the same "step to the 28th,
// add 4 days, and back off that many days" trick as date libraries that
// avoid hardcoding a days-in-month table: it always lands 1-4 days into the
// following month, and subtracting that day-of-month lands back on the
// last day of the month being measured.
func daysPerMonth(year int) [12]int {
	var days [12]int
	for month := 1; month <= 12; month++ {
		d28 := time.Date(year, time.Month(month), 28, 0, 0, 0, 0, time.UTC)
		next := d28.AddDate(0, 0, 4)
		lastDay := next.AddDate(0, 0, -next.Day())
		days[month-1] = lastDay.Day()
	}
	return days
}

func intRange(from, to int) []string {
	out := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

// DateHandler handles paths under commits-by-date:
// <year>/<month>/<day>/<commit>/<path-within-tree>.
type DateHandler struct {
	path string
	acc  *gitcore.Accessor
	data pathgrammar.DatePath
}

// NewDateHandler builds a handler for a path already stripped of its
// "/commits-by-date" prefix.
func NewDateHandler(path string, acc *gitcore.Accessor) *DateHandler {
	return &DateHandler{path: path, acc: acc, data: pathgrammar.DemuxDatePath(path)}
}

func (h *DateHandler) dateInts() ([]int, bool) {
	parts := segments(h.data.DatePath)
	ints := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		ints[i] = v
	}
	return ints, true
}

func (h *DateHandler) validDatePath() bool {
	elements, ok := h.dateInts()
	if !ok {
		return false
	}
	first, last := h.acc.Years()
	if len(elements) >= 1 && (elements[0] < first || elements[0] > last) {
		return false
	}
	if len(elements) >= 2 && (elements[1] < 1 || elements[1] > 12) {
		return false
	}
	if len(elements) >= 3 {
		maxDay := daysPerMonth(elements[0])[elements[1]-1]
		if elements[2] < 1 || elements[2] > maxDay {
			return false
		}
	}
	return true
}

func (h *DateHandler) validCommit() bool {
	return h.data.Commit == "" || h.acc.Exists(gitcore.Hash(h.data.Commit))
}

func (h *DateHandler) valid() bool { return h.validDatePath() && h.validCommit() }

func (h *DateHandler) IsDir() bool {
	if h.path == "" {
		return true
	}
	if !h.valid() {
		return false
	}
	if h.data.CommitPath == "" {
		return true
	}
	if overlay.IsDir(h.data.CommitPath) {
		return true
	}
	return h.acc.IsDir(gitcore.Hash(h.data.Commit), h.data.CommitPath)
}

func (h *DateHandler) IsSymlink() bool {
	if h.data.CommitPath == "" || overlay.IsName(h.data.CommitPath) {
		return false
	}
	if h.IsMetadataSymlink() {
		return true
	}
	return h.acc.IsSymlink(gitcore.Hash(h.data.Commit), h.data.CommitPath)
}

func (h *DateHandler) IsMetadataSymlink() bool {
	return overlay.IsSymlink(h.data.CommitPath, h.acc)
}

func (h *DateHandler) FileContents() ([]byte, error) {
	return fileContents(h.acc, h.data.Commit, h.data.CommitPath)
}

func (h *DateHandler) FileSize() (int64, error) {
	if !h.valid() {
		return 0, ErrNotFound
	}
	return fileSize(h.acc, h.data.Commit, h.data.CommitPath)
}

func (h *DateHandler) Commit() gitcore.Hash { return gitcore.Hash(h.data.Commit) }

func (h *DateHandler) RawSymlinkTarget() (string, error) {
	if h.data.CommitPath == "" {
		return "", ErrNotFound
	}
	if h.IsMetadataSymlink() {
		return overlay.SymlinkTarget(h.data.CommitPath), nil
	}
	target, err := h.acc.FileContents(gitcore.Hash(h.data.Commit), h.data.CommitPath)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{h.data.DatePath, h.data.Commit, string(target)}, "/"), nil
}

func (h *DateHandler) ReadDir() ([]string, error) {
	if h.data.DatePath == "" {
		first, last := h.acc.Years()
		return intRange(first, last), nil
	}
	if !h.valid() {
		return nil, ErrNotFound
	}

	elements, _ := h.dateInts()
	switch {
	case len(elements) == 1:
		return intRange(1, 12), nil
	case len(elements) == 2:
		return intRange(1, daysPerMonth(elements[0])[elements[1]-1]), nil
	case h.data.Commit == "":
		return hashesToStrings(h.acc.CommitsByDate(elements[0], elements[1], elements[2])), nil
	default:
		return commitContent(h.acc, h.data.Commit, h.data.CommitPath)
	}
}

// hexByte2 is every two-hex-digit string "00".."ff", used to enumerate a
// hash-tree bucket level.
var hexByte2 = func() []string {
	const digits = "0123456789abcdef"
	out := make([]string, 0, 256)
	for i := range digits {
		for j := range digits {
			out = append(out, string(digits[i])+string(digits[j]))
		}
	}
	return out
}()

func isHex2(s string) bool {
	for _, h := range hexByte2 {
		if h == s {
			return true
		}
	}
	return false
}

// HashHandler handles paths under commits-by-hash: either
// <xx>/<yy>/<zz>/<commit>/<path> in hash-tree mode, or
// <commit>/<path> in flat mode.
type HashHandler struct {
	path      string
	acc       *gitcore.Accessor
	hashTrees bool
	data      pathgrammar.HashPath
}

// NewHashHandler builds a handler for a path already stripped of its
// "/commits-by-hash" prefix.
func NewHashHandler(path string, acc *gitcore.Accessor, hashTrees bool) *HashHandler {
	return &HashHandler{path: path, acc: acc, hashTrees: hashTrees, data: pathgrammar.DemuxHashPath(path, hashTrees)}
}

func (h *HashHandler) validHashPath() bool {
	if !h.hashTrees || h.data.HtreePrefix == "" {
		return true
	}
	for _, elem := range segments(h.data.HtreePrefix) {
		if !isHex2(elem) {
			return false
		}
	}
	return true
}

func (h *HashHandler) validCommit() bool {
	return h.data.Commit == "" || h.acc.Exists(gitcore.Hash(h.data.Commit))
}

func (h *HashHandler) valid() bool { return h.validHashPath() && h.validCommit() }

func (h *HashHandler) IsDir() bool {
	if h.path == "" {
		return true
	}
	if !h.valid() {
		return false
	}
	if h.data.CommitPath == "" {
		return true
	}
	if overlay.IsDir(h.data.CommitPath) {
		return true
	}
	return h.acc.IsDir(gitcore.Hash(h.data.Commit), h.data.CommitPath)
}

func (h *HashHandler) IsSymlink() bool {
	if h.data.CommitPath == "" || overlay.IsName(h.data.CommitPath) {
		return false
	}
	if h.IsMetadataSymlink() {
		return true
	}
	return h.acc.IsSymlink(gitcore.Hash(h.data.Commit), h.data.CommitPath)
}

func (h *HashHandler) IsMetadataSymlink() bool {
	return overlay.IsSymlink(h.data.CommitPath, h.acc)
}

func (h *HashHandler) FileContents() ([]byte, error) {
	return fileContents(h.acc, h.data.Commit, h.data.CommitPath)
}

func (h *HashHandler) FileSize() (int64, error) {
	if !h.valid() {
		return 0, ErrNotFound
	}
	return fileSize(h.acc, h.data.Commit, h.data.CommitPath)
}

func (h *HashHandler) Commit() gitcore.Hash { return gitcore.Hash(h.data.Commit) }

func (h *HashHandler) RawSymlinkTarget() (string, error) {
	if h.data.CommitPath == "" {
		return "", ErrNotFound
	}
	if h.IsMetadataSymlink() {
		return overlay.SymlinkTarget(h.data.CommitPath), nil
	}
	target, err := h.acc.FileContents(gitcore.Hash(h.data.Commit), h.data.CommitPath)
	if err != nil {
		return "", err
	}
	parts := []string{h.data.Commit, string(target)}
	if h.data.HtreePrefix != "" {
		parts = append([]string{h.data.HtreePrefix}, parts...)
	}
	return strings.Join(parts, "/"), nil
}

func (h *HashHandler) ReadDir() ([]string, error) {
	if h.hashTrees {
		htreeElems := segments(h.data.HtreePrefix)
		switch {
		case len(htreeElems) <= 2:
			return append([]string(nil), hexByte2...), nil
		case len(htreeElems) == 3 && h.data.Commit == "":
			if !h.validHashPath() {
				return nil, ErrNotFound
			}
			return hashesToStrings(h.acc.AllCommits(strings.Join(htreeElems, ""))), nil
		}
	}

	if !h.valid() {
		return nil, ErrNotFound
	}
	if h.data.Commit == "" {
		return hashesToStrings(h.acc.AllCommits("")), nil
	}
	return commitContent(h.acc, h.data.Commit, h.data.CommitPath)
}

// BranchRefRoots are the ref-name prefixes RefHandler enumerates for the
// "/branches" namespace.
var BranchRefRoots = []string{"refs/heads/", "refs/remotes/"}

// TagRefRoots are the ref-name prefixes RefHandler enumerates for the
// "/tags" namespace.
var TagRefRoots = []string{"refs/tags/"}

// refTypes are the top-level segment names RefHandler always treats as
// directories, mirroring the historical heads/tags/remotes ref layout.
var refTypes = []string{"tags", "heads", "remotes"}

// RefHandler handles paths under branches or tags, parameterized by which
// ref roots it enumerates. A ref name itself may contain slashes (e.g.
// "feature/x"), so RefHandler resolves the longest known ref that prefixes
// the path rather than splitting on the first segment.
type RefHandler struct {
	path          string
	acc           *gitcore.Accessor
	refs          []string // full ref names (e.g. "refs/heads/main") matching the given roots
	noRefSymlinks bool
	data          pathgrammar.RefPath
}

// NewRefHandler builds a handler for a path relative to the namespace root:
// under "/branches" the "branches/" prefix is already stripped, while under
// "/tags" only the leading slash is, so the path keeps its "tags/" segment.
// roots selects which ref-name prefixes are in scope (see BranchRefRoots,
// TagRefRoots).
func NewRefHandler(path string, acc *gitcore.Accessor, roots []string, noRefSymlinks bool) *RefHandler {
	refs := acc.Refs(roots)
	return &RefHandler{
		path:          path,
		acc:           acc,
		refs:          refs,
		noRefSymlinks: noRefSymlinks,
		data:          pathgrammar.DemuxRefPath(path, refs),
	}
}

func (h *RefHandler) isRefPrefix() bool {
	elements := segments(h.data.Ref)
	for _, ref := range h.refs {
		refParts := dropFirst(segments(ref))
		if len(elements) >= len(refParts) {
			continue
		}
		if equalSlices(elements, refParts[:len(elements)]) {
			return true
		}
	}
	return false
}

func (h *RefHandler) isFullRef() bool {
	for _, ref := range h.refs {
		refParts := dropFirst(segments(ref))
		if h.data.Ref == strings.Join(refParts, "/") {
			return true
		}
	}
	return false
}

func (h *RefHandler) getRefs() []string {
	refPrefix := segments(h.data.Ref)
	seen := make(map[string]bool)
	var result []string
	for _, ref := range h.refs {
		refParts := dropFirst(segments(ref))
		if len(refParts) < len(refPrefix) {
			continue
		}
		if !equalSlices(refPrefix, refParts[:len(refPrefix)]) {
			continue
		}
		if len(refParts) > len(refPrefix) {
			next := refParts[len(refPrefix)]
			if !seen[next] {
				seen[next] = true
				result = append(result, next)
			}
		}
	}
	sort.Strings(result)
	return result
}

func (h *RefHandler) inTypes(s string) bool {
	for _, t := range refTypes {
		if t == s {
			return true
		}
	}
	return false
}

func (h *RefHandler) Commit() gitcore.Hash {
	if h.isFullRef() {
		return h.acc.CommitOfRef("refs/" + h.data.Ref)
	}
	return ""
}

func (h *RefHandler) IsDir() bool {
	if h.data.Ref == "" || h.inTypes(h.data.Ref) {
		return true
	}
	if h.isRefPrefix() {
		return true
	}
	if h.noRefSymlinks {
		if !h.inTypes(h.data.Type) {
			return false
		}
		if !h.isFullRef() {
			return false
		}
		return overlay.IsDir(h.data.CommitPath) || h.acc.IsDir(h.Commit(), h.data.CommitPath)
	}
	return false
}

func (h *RefHandler) IsMetadataSymlink() bool {
	return overlay.IsSymlink(h.data.CommitPath, h.acc)
}

func (h *RefHandler) IsSymlink() bool {
	if h.IsMetadataSymlink() {
		return true
	}
	return h.isFullRef() && !h.noRefSymlinks
}

func (h *RefHandler) FileContents() ([]byte, error) {
	return fileContents(h.acc, string(h.Commit()), h.data.CommitPath)
}

func (h *RefHandler) FileSize() (int64, error) {
	return fileSize(h.acc, string(h.Commit()), h.data.CommitPath)
}

// RawSymlinkTarget returns the commit a metadata symlink names (e.g.
// ".git-parents/<commit>" under a full ref, reachable in no-ref-symlinks
// mode), and otherwise the bare resolved commit hash of the ref itself.
func (h *RefHandler) RawSymlinkTarget() (string, error) {
	if h.IsMetadataSymlink() {
		return overlay.SymlinkTarget(h.data.CommitPath), nil
	}
	return string(h.Commit()), nil
}

func (h *RefHandler) ReadDir() ([]string, error) {
	if h.path == "" {
		return h.getRefs(), nil
	}
	if !h.isRefPrefix() && !h.isFullRef() {
		return nil, ErrNotFound
	}
	if h.isRefPrefix() {
		return h.getRefs(), nil
	}
	if h.noRefSymlinks && h.isFullRef() {
		return commitContent(h.acc, string(h.Commit()), h.data.CommitPath)
	}
	return nil, ErrNotFound
}

func dropFirst(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s[1:]
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
