package gitcore

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1" //nolint:gosec // G505: SHA-1 is the git object hash algorithm, not used for security
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// testRepoBuilder writes real loose git objects to an on-disk repository so
// Accessor can be exercised against the same pack/loose-object code paths
// used on a real mount, rather than against hand-built struct literals.
type testRepoBuilder struct {
	t      *testing.T
	gitDir string
}

func newTestRepoBuilder(t *testing.T) *testRepoBuilder {
	t.Helper()
	dir := t.TempDir()
	for _, sub := range []string{"objects", "refs/heads", "refs/tags"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return &testRepoBuilder{t: t, gitDir: dir}
}

func (b *testRepoBuilder) writeObject(kind string, content []byte) Hash {
	b.t.Helper()
	header := fmt.Sprintf("%s %d\x00", kind, len(content))
	full := append([]byte(header), content...)

	sum := sha1.Sum(full) //nolint:gosec // G401: matches git's own object addressing
	hash := fmt.Sprintf("%x", sum)

	dir := filepath.Join(b.gitDir, "objects", hash[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		b.t.Fatal(err)
	}

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(full); err != nil {
		b.t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		b.t.Fatal(err)
	}

	path := filepath.Join(dir, hash[2:])
	if err := os.WriteFile(path, compressed.Bytes(), 0o644); err != nil {
		b.t.Fatal(err)
	}
	return Hash(hash)
}

func (b *testRepoBuilder) blob(content string) Hash {
	return b.writeObject("blob", []byte(content))
}

type treeEntrySpec struct {
	mode string
	name string
	id   Hash
}

func (b *testRepoBuilder) tree(entries []treeEntrySpec) Hash {
	var body bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&body, "%s %s", e.mode, e.name)
		body.WriteByte(0)
		raw, err := hexToBytes(string(e.id))
		if err != nil {
			b.t.Fatal(err)
		}
		body.Write(raw)
	}
	return b.writeObject("tree", body.Bytes())
}

func hexToBytes(s string) ([]byte, error) {
	out := make([]byte, len(s)/2)
	for i := range out {
		var v int
		if _, err := fmt.Sscanf(s[i*2:i*2+2], "%02x", &v); err != nil {
			return nil, err
		}
		out[i] = byte(v)
	}
	return out, nil
}

func (b *testRepoBuilder) commit(tree Hash, parents []Hash, author, authorDate string, committerDate string, message string) Hash {
	var body bytes.Buffer
	fmt.Fprintf(&body, "tree %s\n", tree)
	for _, p := range parents {
		fmt.Fprintf(&body, "parent %s\n", p)
	}
	fmt.Fprintf(&body, "author %s %s\n", author, authorDate)
	fmt.Fprintf(&body, "committer %s %s\n", author, committerDate)
	fmt.Fprintf(&body, "\n%s\n", message)
	return b.writeObject("commit", body.Bytes())
}

func (b *testRepoBuilder) tag(object Hash, objType, name, tagger, date, message string) Hash {
	var body bytes.Buffer
	fmt.Fprintf(&body, "object %s\n", object)
	fmt.Fprintf(&body, "type %s\n", objType)
	fmt.Fprintf(&body, "tag %s\n", name)
	fmt.Fprintf(&body, "tagger %s %s\n", tagger, date)
	fmt.Fprintf(&body, "\n%s\n", message)
	return b.writeObject("tag", body.Bytes())
}

func (b *testRepoBuilder) setRef(name string, id Hash) {
	b.t.Helper()
	path := filepath.Join(b.gitDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		b.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(string(id)+"\n"), 0o644); err != nil {
		b.t.Fatal(err)
	}
}

func (b *testRepoBuilder) setHead(ref string) {
	b.t.Helper()
	if err := os.WriteFile(filepath.Join(b.gitDir, "HEAD"), []byte("ref: "+ref+"\n"), 0o644); err != nil {
		b.t.Fatal(err)
	}
}

func (b *testRepoBuilder) open() *Repository {
	b.t.Helper()
	repo, err := NewRepository(b.gitDir)
	if err != nil {
		b.t.Fatalf("NewRepository() error: %v", err)
	}
	return repo
}

// buildLinearHistory creates root -> mid -> tip, each touching a distinct
// file, with a branch, a lightweight tag, and an annotated tag on tip.
func buildLinearHistory(t *testing.T) (*Repository, Hash, Hash, Hash) {
	t.Helper()
	b := newTestRepoBuilder(t)

	blobA := b.blob("hello\n")
	blobB := b.blob("world\n")
	blobC := b.blob("!\n")

	tree1 := b.tree([]treeEntrySpec{{"100644", "a.txt", blobA}})
	tree2 := b.tree([]treeEntrySpec{{"100644", "a.txt", blobA}, {"100644", "b.txt", blobB}})
	tree3 := b.tree([]treeEntrySpec{
		{"100644", "a.txt", blobA},
		{"100644", "b.txt", blobB},
		{"040000", "sub", b.tree([]treeEntrySpec{{"100644", "c.txt", blobC}})},
	})

	root := b.commit(tree1, nil, "Ada Lovelace <ada@example.com>", "1577836800 +0000", "1577836800 +0000", "root commit")
	mid := b.commit(tree2, []Hash{root}, "Ada Lovelace <ada@example.com>", "1583020800 +0000", "1583107200 +0000", "second commit")
	tip := b.commit(tree3, []Hash{mid}, "Ada Lovelace <ada@example.com>", "1609459200 +0000", "1609545600 +0000", "third commit")

	b.setRef("refs/heads/main", tip)
	b.setRef("refs/tags/v1-lightweight", root)
	annotated := b.tag(tip, "commit", "v2-annotated", "Ada Lovelace <ada@example.com>", "1609459200 +0000", "release")
	b.setRef("refs/tags/v2-annotated", annotated)
	b.setHead("refs/heads/main")

	return b.open(), root, mid, tip
}

func TestAccessor_Years(t *testing.T) {
	repo, root, _, tip := buildLinearHistory(t)
	acc := NewAccessor(repo)

	first, last := acc.Years()

	rootCommit, _ := repo.GetCommit(root)
	tipCommit, _ := repo.GetCommit(tip)

	if first != rootCommit.Author.When.Year() {
		t.Errorf("first year = %d, want %d", first, rootCommit.Author.When.Year())
	}
	if last != tipCommit.Author.When.Year() {
		t.Errorf("last year = %d, want %d", last, tipCommit.Author.When.Year())
	}
}

func TestAccessor_CommitsByDate(t *testing.T) {
	repo, root, _, _ := buildLinearHistory(t)
	acc := NewAccessor(repo)

	rootCommit, _ := repo.GetCommit(root)
	w := rootCommit.Author.When

	got := acc.CommitsByDate(w.Year(), int(w.Month()), w.Day())
	found := false
	for _, id := range got {
		if id == root {
			found = true
		}
	}
	if !found {
		t.Errorf("CommitsByDate(%d,%d,%d) = %v, want to include %s", w.Year(), w.Month(), w.Day(), got, root)
	}

	none := acc.CommitsByDate(1999, 1, 1)
	if len(none) != 0 {
		t.Errorf("CommitsByDate(1999,1,1) = %v, want empty", none)
	}
}

func TestAccessor_AllCommits(t *testing.T) {
	repo, root, mid, tip := buildLinearHistory(t)
	acc := NewAccessor(repo)

	all := acc.AllCommits("")
	if len(all) != 3 {
		t.Fatalf("AllCommits(\"\") returned %d, want 3", len(all))
	}

	prefixed := acc.AllCommits(string(root)[:4])
	if len(prefixed) != 1 || prefixed[0] != root {
		t.Errorf("AllCommits(prefix) = %v, want [%s]", prefixed, root)
	}
	_ = mid
	_ = tip
}

func TestAccessor_Refs(t *testing.T) {
	repo, _, _, _ := buildLinearHistory(t)
	acc := NewAccessor(repo)

	heads := acc.Refs([]string{"refs/heads/"})
	if len(heads) != 1 || heads[0] != "refs/heads/main" {
		t.Errorf("Refs(heads) = %v, want [refs/heads/main]", heads)
	}

	tags := acc.Refs([]string{"refs/tags/"})
	if len(tags) != 2 {
		t.Errorf("Refs(tags) = %v, want 2 entries", tags)
	}
}

func TestAccessor_CommitOfRef(t *testing.T) {
	repo, _, _, tip := buildLinearHistory(t)
	acc := NewAccessor(repo)

	if got := acc.CommitOfRef("refs/heads/main"); got != tip {
		t.Errorf("CommitOfRef(main) = %s, want %s", got, tip)
	}

	// Annotated tag peels to its target commit, not the tag object itself.
	if got := acc.CommitOfRef("refs/tags/v2-annotated"); got != tip {
		t.Errorf("CommitOfRef(v2-annotated) = %s, want peeled %s", got, tip)
	}

	if got := acc.CommitOfRef("refs/heads/nonexistent"); got != "" {
		t.Errorf("CommitOfRef(nonexistent) = %s, want empty", got)
	}
	// Second lookup should hit the cache and still return empty.
	if got := acc.CommitOfRef("refs/heads/nonexistent"); got != "" {
		t.Errorf("CommitOfRef(nonexistent) cached = %s, want empty", got)
	}
}

func TestAccessor_CommitParentsAndDescendants(t *testing.T) {
	repo, root, mid, tip := buildLinearHistory(t)
	acc := NewAccessor(repo)

	if parents := acc.CommitParents(root); len(parents) != 0 {
		t.Errorf("CommitParents(root) = %v, want empty", parents)
	}
	if parents := acc.CommitParents(tip); len(parents) != 1 || parents[0] != mid {
		t.Errorf("CommitParents(tip) = %v, want [%s]", parents, mid)
	}

	if desc := acc.CommitDescendants(root); len(desc) != 1 || desc[0] != mid {
		t.Errorf("CommitDescendants(root) = %v, want [%s]", desc, mid)
	}
	if desc := acc.CommitDescendants(tip); len(desc) != 0 {
		t.Errorf("CommitDescendants(tip) = %v, want empty", desc)
	}
}

func TestAccessor_CommitNames(t *testing.T) {
	repo, root, _, tip := buildLinearHistory(t)
	acc := NewAccessor(repo)

	rootNames := acc.CommitNames(root)
	if len(rootNames) != 1 || rootNames[0] != "v1-lightweight" {
		t.Errorf("CommitNames(root) = %v, want [v1-lightweight]", rootNames)
	}

	tipNames := acc.CommitNames(tip)
	if len(tipNames) != 1 || tipNames[0] != "v2-annotated" {
		t.Errorf("CommitNames(tip) = %v, want [v2-annotated] (peeled)", tipNames)
	}
}

func TestAccessor_AuthorAndTime(t *testing.T) {
	repo, root, _, _ := buildLinearHistory(t)
	acc := NewAccessor(repo)

	if got := acc.Author(root); got != "Ada Lovelace" {
		t.Errorf("Author(root) = %q, want %q", got, "Ada Lovelace")
	}
	if got := acc.AuthorEmail(root); got != "ada@example.com" {
		t.Errorf("AuthorEmail(root) = %q, want %q", got, "ada@example.com")
	}

	rootCommit, _ := repo.GetCommit(root)
	if got := acc.CommitTime(root); got != rootCommit.Committer.When.Unix() {
		t.Errorf("CommitTime(root) = %d, want committer time %d", got, rootCommit.Committer.When.Unix())
	}
}

func TestAccessor_DirectoryContentsAndIsDir(t *testing.T) {
	repo, _, _, tip := buildLinearHistory(t)
	acc := NewAccessor(repo)

	contents, err := acc.DirectoryContents(tip, "")
	if err != nil {
		t.Fatalf("DirectoryContents(root) error: %v", err)
	}
	want := []string{"a.txt", "b.txt", "sub"}
	if !equalStrings(contents, want) {
		t.Errorf("DirectoryContents(root) = %v, want %v", contents, want)
	}

	subContents, err := acc.DirectoryContents(tip, "sub")
	if err != nil {
		t.Fatalf("DirectoryContents(sub) error: %v", err)
	}
	if !equalStrings(subContents, []string{"c.txt"}) {
		t.Errorf("DirectoryContents(sub) = %v, want [c.txt]", subContents)
	}

	missing, err := acc.DirectoryContents(tip, "nope")
	if err != nil {
		t.Errorf("DirectoryContents(missing) error = %v, want nil", err)
	}
	if missing != nil {
		t.Errorf("DirectoryContents(missing) = %v, want nil", missing)
	}

	_, err = acc.DirectoryContents(tip, "a.txt")
	if err != ErrNotATree {
		t.Errorf("DirectoryContents(blob) error = %v, want ErrNotATree", err)
	}

	if !acc.IsDir(tip, "") {
		t.Error("IsDir(root) = false, want true")
	}
	if !acc.IsDir(tip, "sub") {
		t.Error("IsDir(sub) = false, want true")
	}
	if acc.IsDir(tip, "a.txt") {
		t.Error("IsDir(a.txt) = true, want false")
	}
	if acc.IsDir(tip, "nope") {
		t.Error("IsDir(nope) = true, want false")
	}
}

func TestAccessor_IsSymlinkAndFileContents(t *testing.T) {
	b := newTestRepoBuilder(t)
	target := b.blob("../a.txt")
	tree := b.tree([]treeEntrySpec{
		{"100644", "a.txt", b.blob("hello\n")},
		{"120000", "link", target},
	})
	tip := b.commit(tree, nil, "Ada Lovelace <ada@example.com>", "1577836800 +0000", "1577836800 +0000", "root commit")
	b.setRef("refs/heads/main", tip)
	b.setHead("refs/heads/main")
	repo := b.open()
	acc := NewAccessor(repo)

	if acc.IsSymlink(tip, "a.txt") {
		t.Error("IsSymlink(a.txt) = true, want false")
	}
	if !acc.IsSymlink(tip, "link") {
		t.Error("IsSymlink(link) = false, want true")
	}

	data, err := acc.FileContents(tip, "a.txt")
	if err != nil {
		t.Fatalf("FileContents(a.txt) error: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("FileContents(a.txt) = %q, want %q", data, "hello\n")
	}

	linkTarget, err := acc.FileContents(tip, "link")
	if err != nil {
		t.Fatalf("FileContents(link) error: %v", err)
	}
	if string(linkTarget) != "../a.txt" {
		t.Errorf("FileContents(link) = %q, want %q", linkTarget, "../a.txt")
	}
}

func TestAccessor_FileSizeMemoization(t *testing.T) {
	repo, _, _, tip := buildLinearHistory(t)
	acc := NewAccessor(repo)

	size, err := acc.FileSize(tip, "a.txt")
	if err != nil {
		t.Fatalf("FileSize(a.txt) error: %v", err)
	}
	if size != int64(len("hello\n")) {
		t.Errorf("FileSize(a.txt) = %d, want %d", size, len("hello\n"))
	}

	acc.mu.RLock()
	_, cached := acc.sizes[tip]["a.txt"]
	acc.mu.RUnlock()
	if !cached {
		t.Error("FileSize() did not populate the memoization table")
	}

	// A second call must return the same value from cache.
	size2, err := acc.FileSize(tip, "a.txt")
	if err != nil {
		t.Fatalf("FileSize(a.txt) second call error: %v", err)
	}
	if size2 != size {
		t.Errorf("FileSize(a.txt) cached = %d, want %d", size2, size)
	}
}

func TestAccessor_NoCacheBypassesMemoization(t *testing.T) {
	repo, _, _, tip := buildLinearHistory(t)
	acc := NewAccessor(repo)
	acc.NoCache = true

	if _, err := acc.FileSize(tip, "a.txt"); err != nil {
		t.Fatalf("FileSize() error: %v", err)
	}
	if len(acc.sizes[tip]) != 0 {
		t.Error("NoCache=true still populated the size memoization table")
	}

	if !acc.IsDir(tip, "sub") {
		t.Error("IsDir(sub) with NoCache = false, want true")
	}
	if len(acc.trees) != 0 {
		t.Error("NoCache=true still populated the tree cache")
	}
}

func equalStrings(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
