// Package overlay implements the fixed metadata vocabulary that repofs
// layers on top of every commit root: the ".git-parents", ".git-descendants"
// and ".git-names" directories, and the ".author"/".author-email" files.
// A metadata name always wins over a real tree entry of the same name.
package overlay

import (
	"strings"

	"github.com/arlyon/repofs/internal/gitcore"
)

// Dirs lists the metadata directory names present at every commit root.
var Dirs = []string{".git-parents", ".git-descendants", ".git-names"}

// Files lists the metadata file names present at every commit root.
var Files = []string{".author", ".author-email"}

// Names returns the full fixed vocabulary (dirs then files) added to every
// commit root's directory listing.
func Names() []string {
	names := make([]string, 0, len(Dirs)+len(Files))
	names = append(names, Dirs...)
	names = append(names, Files...)
	return names
}

// IsDir reports whether commitPath names a metadata directory.
func IsDir(commitPath string) bool {
	return contains(Dirs, commitPath)
}

// IsFile reports whether commitPath names a metadata file.
func IsFile(commitPath string) bool {
	return contains(Files, commitPath)
}

// IsName reports whether commitPath names any metadata entry, dir or file.
func IsName(commitPath string) bool {
	return IsDir(commitPath) || IsFile(commitPath)
}

// IsSymlink reports whether commitPath names an entry inside a metadata
// directory (e.g. ".git-parents/<commit>") pointing at a real commit.
func IsSymlink(commitPath string, acc *gitcore.Accessor) bool {
	parts := strings.Split(commitPath, "/")
	if len(parts) != 2 || !contains(Dirs, parts[0]) {
		return false
	}
	return acc.Exists(gitcore.Hash(parts[1]))
}

// SymlinkTarget returns the bare commit id a metadata symlink points at
// (e.g. ".git-parents/<commit>" -> "<commit>"). The dispatcher wraps this
// into an absolute commits-by-hash path before handing it to FUSE.
func SymlinkTarget(commitPath string) string {
	parts := strings.Split(commitPath, "/")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// DirContents dispatches a metadata directory's commitPath (one of Dirs) to
// the Accessor operation that supplies its entries: commit hex ids for
// .git-parents and .git-descendants, tag names for .git-names. Anything other than a recognized metadata dir name yields nil.
func DirContents(acc *gitcore.Accessor, commit gitcore.Hash, commitPath string) []string {
	switch commitPath {
	case ".git-parents":
		return hashesToStrings(acc.CommitParents(commit))
	case ".git-descendants":
		return hashesToStrings(acc.CommitDescendants(commit))
	case ".git-names":
		return acc.CommitNames(commit)
	default:
		return nil
	}
}

// FileContents dispatches a metadata file's commitPath (one of Files) to the
// Accessor operation that supplies its content. ok is false for any name
// that isn't a recognized metadata file.
func FileContents(acc *gitcore.Accessor, commit gitcore.Hash, commitPath string) (content string, ok bool) {
	switch commitPath {
	case ".author":
		return acc.Author(commit), true
	case ".author-email":
		return acc.AuthorEmail(commit), true
	default:
		return "", false
	}
}

func hashesToStrings(hashes []gitcore.Hash) []string {
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = string(h)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
