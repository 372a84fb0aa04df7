package gitcore

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Accessor is the pure read path over a Repository: every method answers a
// question about repository state at a single commit or across all commits,
// with no knowledge of FUSE, mount paths, or the virtual namespace grammar.
// Results are cached once computed and never invalidated — repofs assumes the
// underlying repository does not change for the lifetime of a mount.
type Accessor struct {
	repo *Repository

	// NoCache disables all of the tables below, recomputing on every call.
	// Set by the --nocache mount flag; tests also use it to exercise the
	// uncached code paths.
	NoCache bool

	mu sync.RWMutex

	trees       map[Hash]map[string]bool // commit -> set of known directory paths ("" is the root)
	treesFilled map[Hash]map[string]bool // commit -> set of directory paths whose children are cached
	sizes       map[Hash]map[string]int64

	refsResolved map[string]Hash // full ref name -> resolved commit (absent key: not yet queried)

	commitsAll []Hash // every commit reachable from any ref, built once

	descendants     map[Hash][]Hash // commit -> children, chronological, built once
	descendantsDone bool

	names     map[Hash][]string // commit -> tag names pointing at it (lightweight + peeled annotated)
	namesDone bool

	years     [2]int // first, last; computed once
	yearsDone bool
}

// NewAccessor wraps repo with the cached read path described by the package doc.
func NewAccessor(repo *Repository) *Accessor {
	return &Accessor{
		repo:         repo,
		trees:        make(map[Hash]map[string]bool),
		treesFilled:  make(map[Hash]map[string]bool),
		sizes:        make(map[Hash]map[string]int64),
		refsResolved: make(map[string]Hash),
	}
}

// Years reports the calendar year of the earliest root commit (a commit with
// no parents) and the calendar year of the most recently authored commit
// reachable from any ref. Both use the commit's author date, not committer
// date — see CommitTime for the distinction.
func (a *Accessor) Years() (first, last int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureYears()
	return a.years[0], a.years[1]
}

func (a *Accessor) ensureYears() {
	if a.yearsDone && !a.NoCache {
		return
	}
	commits := a.repo.Commits()
	firstYear, lastYear := 0, 0
	for _, c := range commits {
		y := c.Author.When.Year()
		if y > lastYear {
			lastYear = y
		}
		if len(c.Parents) == 0 {
			if firstYear == 0 || y < firstYear {
				firstYear = y
			}
		}
	}
	a.years = [2]int{firstYear, lastYear}
	a.yearsDone = true
}

// CommitsByDate returns every commit whose author date, read in the
// timezone embedded in the commit itself, falls on the given calendar day.
func (a *Accessor) CommitsByDate(year, month, day int) []Hash {
	commits := a.repo.Commits()
	var result []Hash
	for id, c := range commits {
		w := c.Author.When
		if w.Year() == year && int(w.Month()) == month && w.Day() == day {
			result = append(result, id)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// AllCommits returns every commit in the repository whose hash begins with
// prefix (an empty prefix matches everything). The full commit set is
// computed once and reused across calls.
func (a *Accessor) AllCommits(prefix string) []Hash {
	a.mu.Lock()
	all := a.ensureCommitsAll()
	a.mu.Unlock()

	if prefix == "" {
		return append([]Hash(nil), all...)
	}
	var result []Hash
	for _, id := range all {
		if strings.HasPrefix(string(id), prefix) {
			result = append(result, id)
		}
	}
	return result
}

func (a *Accessor) ensureCommitsAll() []Hash {
	if a.commitsAll != nil && !a.NoCache {
		return a.commitsAll
	}
	commits := a.repo.Commits()
	all := make([]Hash, 0, len(commits))
	for id := range commits {
		all = append(all, id)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	a.commitsAll = all
	return all
}

// Refs returns every ref name whose path starts with one of the given root
// prefixes (e.g. "refs/heads/", "refs/tags/"), for building the branches and
// tags portions of the virtual namespace.
func (a *Accessor) Refs(roots []string) []string {
	all := a.repo.AllRefs()
	var result []string
	for name := range all {
		for _, root := range roots {
			if strings.HasPrefix(name, root) {
				result = append(result, name)
				break
			}
		}
	}
	sort.Strings(result)
	return result
}

// CommitOfRef resolves a full ref name (e.g. "refs/heads/main") to its
// commit, peeling annotated tags to the commit they point at. Unresolvable
// refs cache to the empty Hash so repeated lookups of bad paths stay cheap.
func (a *Accessor) CommitOfRef(fullRef string) Hash {
	if !a.NoCache {
		a.mu.RLock()
		if h, ok := a.refsResolved[fullRef]; ok {
			a.mu.RUnlock()
			return h
		}
		a.mu.RUnlock()
	}

	resolved := a.resolveRefUncached(fullRef)

	if !a.NoCache {
		a.mu.Lock()
		a.refsResolved[fullRef] = resolved
		a.mu.Unlock()
	}
	return resolved
}

func (a *Accessor) resolveRefUncached(fullRef string) Hash {
	refs := a.repo.AllRefs()
	hash, ok := refs[fullRef]
	if !ok {
		return ""
	}
	if tag, err := a.repo.GetTag(hash); err == nil {
		return tag.Object
	}
	return hash
}

// Exists reports whether id names a real commit in the repository.
func (a *Accessor) Exists(id Hash) bool {
	_, err := a.repo.GetCommit(id)
	return err == nil
}

// CommitParents returns the immediate parents of a commit, or nil if the
// commit is unknown or has none.
func (a *Accessor) CommitParents(id Hash) []Hash {
	c, err := a.repo.GetCommit(id)
	if err != nil {
		return nil
	}
	return c.Parents
}

// CommitDescendants returns the commits whose parent list includes id, in
// chronological order (oldest author date first). The full parent-to-child
// edge map is built once, on first use, by a single pass over every commit.
func (a *Accessor) CommitDescendants(id Hash) []Hash {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureDescendants()
	return append([]Hash(nil), a.descendants[id]...)
}

func (a *Accessor) ensureDescendants() {
	if a.descendantsDone && !a.NoCache {
		return
	}
	commits := a.repo.Commits()
	edges := make(map[Hash][]Hash, len(commits))
	for id, c := range commits {
		for _, p := range c.Parents {
			edges[p] = append(edges[p], id)
		}
	}
	for parent, children := range edges {
		sort.Slice(children, func(i, j int) bool {
			ci, oki := commits[children[i]]
			cj, okj := commits[children[j]]
			if !oki || !okj {
				return children[i] < children[j]
			}
			return ci.Author.When.Before(cj.Author.When)
		})
		edges[parent] = children
	}
	a.descendants = edges
	a.descendantsDone = true
}

// CommitNames returns every tag name pointing at id, lightweight and
// annotated alike (annotated tags are peeled to the commit they target).
func (a *Accessor) CommitNames(id Hash) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureNames()
	return append([]string(nil), a.names[id]...)
}

func (a *Accessor) ensureNames() {
	if a.namesDone && !a.NoCache {
		return
	}
	tags := a.repo.Tags()
	byCommit := make(map[Hash][]string, len(tags))
	for name, hash := range tags {
		h := Hash(hash)
		byCommit[h] = append(byCommit[h], name)
	}
	for _, names := range byCommit {
		sort.Strings(names)
	}
	a.names = byCommit
	a.namesDone = true
}

// Author returns the author name recorded on a commit.
func (a *Accessor) Author(id Hash) string {
	c, err := a.repo.GetCommit(id)
	if err != nil {
		return ""
	}
	return c.Author.Name
}

// AuthorEmail returns the author email recorded on a commit.
func (a *Accessor) AuthorEmail(id Hash) string {
	c, err := a.repo.GetCommit(id)
	if err != nil {
		return ""
	}
	return c.Author.Email
}

// CommitTime returns a commit's committer timestamp (not author timestamp —
// these differ whenever a commit is rebased, cherry-picked, or amended).
// Used for file mtime/ctime once a handler resolves to a specific commit.
func (a *Accessor) CommitTime(id Hash) int64 {
	c, err := a.repo.GetCommit(id)
	if err != nil {
		return 0
	}
	return c.Committer.When.Unix()
}

// DirectoryContents returns the immediate child names at path within commit
// id's tree. A path that does not exist yields an empty, error-free result;
// a path that exists but names a blob, symlink, or submodule returns
// ErrNotATree.
func (a *Accessor) DirectoryContents(id Hash, path string) ([]string, error) {
	c, err := a.repo.GetCommit(id)
	if err != nil {
		return nil, nil
	}
	tree, err := a.repo.resolveTreeAtPath(c.Tree, path)
	if err != nil {
		if errors.Is(err, ErrPathNotFound) {
			return nil, nil
		}
		if errors.Is(err, ErrNotATree) {
			return nil, ErrNotATree
		}
		return nil, nil
	}
	names := make([]string, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names, nil
}

// IsDir reports whether path names a directory (tree) within commit id.
// Directory membership is discovered lazily: only the ancestor directories
// of path are filled on demand, so checking a deep path costs O(depth) tree
// reads rather than a full recursive walk of the commit's tree.
func (a *Accessor) IsDir(id Hash, path string) bool {
	path = strings.Trim(path, "/")

	if a.NoCache {
		return a.isDirUncached(id, path)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if known, ok := a.trees[id]; ok && known[path] {
		return true
	}

	if _, ok := a.trees[id]; !ok {
		a.trees[id] = map[string]bool{"": true}
		a.treesFilled[id] = map[string]bool{}
		a.fillTree(id, "")
	}

	if path == "" {
		return a.trees[id][""]
	}

	elements := strings.Split(path, "/")
	for i := 0; i < len(elements)-1; i++ {
		subpath := strings.Join(elements[:i+1], "/")
		if a.trees[id][subpath] && !a.treesFilled[id][subpath] {
			a.fillTree(id, subpath)
		}
	}
	return a.trees[id][path]
}

// fillTree reads the immediate children of subpath within commit id and
// records every child that is itself a directory. Caller must hold a.mu.
func (a *Accessor) fillTree(id Hash, subpath string) {
	c, err := a.repo.GetCommit(id)
	if err != nil {
		a.treesFilled[id][subpath] = true
		return
	}
	tree, err := a.repo.resolveTreeAtPath(c.Tree, subpath)
	if err != nil {
		a.treesFilled[id][subpath] = true
		return
	}
	for _, e := range tree.Entries {
		if e.IsTree() {
			childPath := e.Name
			if subpath != "" {
				childPath = subpath + "/" + e.Name
			}
			a.trees[id][childPath] = true
		}
	}
	a.treesFilled[id][subpath] = true
}

func (a *Accessor) isDirUncached(id Hash, path string) bool {
	if path == "" {
		return true
	}
	c, err := a.repo.GetCommit(id)
	if err != nil {
		return false
	}
	_, err = a.repo.resolveTreeAtPath(c.Tree, path)
	return err == nil
}

// IsSymlink reports whether path names a symlink entry within commit id.
func (a *Accessor) IsSymlink(id Hash, path string) bool {
	path = strings.Trim(path, "/")
	if path == "" {
		return false
	}
	c, err := a.repo.GetCommit(id)
	if err != nil {
		return false
	}
	entry, found, err := a.repo.getEntryAtPath(c.Tree, path)
	if err != nil || !found {
		return false
	}
	return entry.IsSymlink()
}

// FileContents returns the raw bytes of the blob at path within commit id.
// A missing path yields a nil, error-free result.
func (a *Accessor) FileContents(id Hash, path string) ([]byte, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil
	}
	c, err := a.repo.GetCommit(id)
	if err != nil {
		return nil, nil
	}
	entry, found, err := a.repo.getEntryAtPath(c.Tree, path)
	if err != nil || !found {
		return nil, nil
	}
	return a.repo.GetBlob(entry.ID)
}

// FileSize returns the size in bytes of the blob at path within commit id,
// memoized per (commit, path) since the sole way to learn a blob's size is
// to decompress it in full.
func (a *Accessor) FileSize(id Hash, path string) (int64, error) {
	path = strings.Trim(path, "/")

	if !a.NoCache {
		a.mu.RLock()
		if byPath, ok := a.sizes[id]; ok {
			if size, ok := byPath[path]; ok {
				a.mu.RUnlock()
				return size, nil
			}
		}
		a.mu.RUnlock()
	}

	data, err := a.FileContents(id, path)
	if err != nil {
		return 0, err
	}
	size := int64(len(data))

	if !a.NoCache {
		a.mu.Lock()
		if a.sizes[id] == nil {
			a.sizes[id] = make(map[string]int64)
		}
		a.sizes[id][path] = size
		a.mu.Unlock()
	}
	return size, nil
}
