package overlay

import (
	"testing"

	"github.com/arlyon/repofs/internal/gitcore"
)

func TestIsDirAndIsFile(t *testing.T) {
	if !IsDir(".git-parents") {
		t.Error("IsDir(.git-parents) = false, want true")
	}
	if IsDir(".author") {
		t.Error("IsDir(.author) = true, want false")
	}
	if !IsFile(".author-email") {
		t.Error("IsFile(.author-email) = false, want true")
	}
	if IsFile("README.md") {
		t.Error("IsFile(README.md) = true, want false")
	}
	if !IsName(".git-names") || !IsName(".author") {
		t.Error("IsName() should cover both dirs and files")
	}
	if IsName("src") {
		t.Error("IsName(src) = true, want false")
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != len(Dirs)+len(Files) {
		t.Fatalf("Names() returned %d entries, want %d", len(names), len(Dirs)+len(Files))
	}
}

func TestSymlinkTarget(t *testing.T) {
	got := SymlinkTarget(".git-parents/abc123")
	if got != "abc123" {
		t.Errorf("SymlinkTarget() = %q, want %q", got, "abc123")
	}
	if got := SymlinkTarget(".git-parents"); got != "" {
		t.Errorf("SymlinkTarget(single segment) = %q, want empty", got)
	}
}

func TestDirAndFileContents(t *testing.T) {
	acc := gitcore.NewAccessor(&gitcore.Repository{})

	if got := DirContents(acc, "", "not-metadata"); got != nil {
		t.Errorf("DirContents(unknown) = %v, want nil", got)
	}

	if _, ok := FileContents(acc, "", "not-metadata"); ok {
		t.Error("FileContents(unknown) ok = true, want false")
	}
}
