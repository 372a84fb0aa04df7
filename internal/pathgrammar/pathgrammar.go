// Package pathgrammar demuxes a slash-separated virtual path into the
// segments meaningful to each of repofs's three namespace roots
// (commits-by-date, commits-by-hash, refs). It has no knowledge of the
// repository itself — callers supply whatever context (the hash-tree flag,
// the known ref list) a given demux needs.
package pathgrammar

import "strings"

// DatePath is the result of demuxing a path under commits-by-date, e.g.
// "2020/03/01/<commit>/internal/gitcore".
type DatePath struct {
	DatePath   string // up to three "year/month/day" segments, "" at the namespace root
	Commit     string // empty if path stops at or above the day directory
	CommitPath string // path within the commit's tree, "" at the commit root
}

// DemuxDatePath splits path into its year/month/day prefix and, if present,
// the commit id and in-tree path that follow it.
func DemuxDatePath(path string) DatePath {
	elements := splitPath(path)

	datePath := strings.Join(take(elements, 3), "/")
	rest := drop(elements, 3)

	var commit, commitPath string
	if len(rest) > 0 {
		commit = rest[0]
		commitPath = strings.Join(rest[1:], "/")
	}

	return DatePath{DatePath: datePath, Commit: commit, CommitPath: commitPath}
}

// HashPath is the result of demuxing a path under commits-by-hash, e.g.
// "ab/cd/ef/<commit>/internal/gitcore" (hash-tree mode) or
// "<commit>/internal/gitcore" (flat mode).
type HashPath struct {
	HtreePrefix string // "xx/yy/zz" 256-ary bucket prefix, "" in flat mode
	Commit      string
	CommitPath  string
}

// DemuxHashPath splits path into its optional hash-tree bucket prefix, the
// commit id, and the in-tree path that follows. hashTrees selects whether
// the mount exposes the 256-ary bucketed layout or a flat commit listing.
func DemuxHashPath(path string, hashTrees bool) HashPath {
	elements := splitPath(path)

	var htreePrefix string
	if hashTrees {
		htreePrefix = strings.Join(take(elements, 3), "/")
		elements = drop(elements, 3)
	}

	var commit, commitPath string
	if len(elements) > 0 {
		commit = elements[0]
		commitPath = strings.Join(elements[1:], "/")
	}

	return HashPath{HtreePrefix: htreePrefix, Commit: commit, CommitPath: commitPath}
}

// RefPath is the result of demuxing a path under branches or tags, e.g.
// "heads/feature/x/internal/gitcore" where the ref itself, "feature/x",
// contains a slash.
type RefPath struct {
	Type       string // "heads", "remotes" or "tags", the first path segment
	Ref        string // the resolved ref path (without the leading "refs/"), e.g. "heads/feature/x"
	CommitPath string // path within the commit's tree, "" at the ref root
}

// DemuxRefPath splits path into the ref it names and the in-tree path that
// follows, disambiguating refs whose names themselves contain "/" (e.g.
// "feature/x") by matching path against every known ref in refs (each a
// full ref name such as "refs/heads/feature/x"). When no known ref is a
// prefix of path, the whole path is treated as the ref (so the caller can
// still enumerate it as a partial ref-name directory) and CommitPath is "".
func DemuxRefPath(path string, refs []string) RefPath {
	elements := splitPath(path)
	refType := ""
	if len(elements) > 0 {
		refType = elements[0]
	}

	fullRef := findFullRef(path, elements, refs)

	var commitPath string
	if fullRef != "" {
		refElements := splitPath(fullRef)
		commitPath = strings.Join(drop(elements, len(refElements)), "/")
	} else {
		fullRef = strings.Join(elements, "/")
	}

	return RefPath{Type: refType, Ref: fullRef, CommitPath: commitPath}
}

// findFullRef looks for a ref in refs (each "refs/<type>/<name>") whose
// "<type>/<name>" form is a path-segment prefix of path.
func findFullRef(path string, elements []string, refs []string) string {
	for _, ref := range refs {
		refParts := drop(splitPath(ref), 1) // drop the leading "refs" segment
		if len(refParts) == 0 || len(refParts) > len(elements) {
			continue
		}
		joinedRef := strings.Join(refParts, "/")
		if strings.HasPrefix(path, joinedRef) && strings.Join(elements[:len(refParts)], "/") == joinedRef {
			return joinedRef
		}
	}
	return ""
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// take returns the first n elements of s, or all of s if shorter.
func take(s []string, n int) []string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// drop returns s with its first n elements removed, or nil if n >= len(s).
func drop(s []string, n int) []string {
	if len(s) <= n {
		return nil
	}
	return s[n:]
}
