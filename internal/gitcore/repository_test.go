package gitcore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindGitDirectory_BareRepo(t *testing.T) {
	bareDir := t.TempDir()

	// Create bare repo structure: objects/, refs/, HEAD
	for _, dir := range []string{"objects", "refs"} {
		if err := os.MkdirAll(filepath.Join(bareDir, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(bareDir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	gitDir, workDir, err := findGitDirectory(bareDir)
	if err != nil {
		t.Fatalf("findGitDirectory() error: %v", err)
	}
	if gitDir != bareDir {
		t.Errorf("gitDir = %q, want %q", gitDir, bareDir)
	}
	if workDir != bareDir {
		t.Errorf("workDir = %q, want %q (bare repo: gitDir == workDir)", workDir, bareDir)
	}
}

func TestFindGitDirectory_NonBareNotMisidentified(t *testing.T) {
	workDir := t.TempDir()
	dotGit := filepath.Join(workDir, ".git")

	// Create normal repo structure with .git/
	for _, dir := range []string{"objects", "refs"} {
		if err := os.MkdirAll(filepath.Join(dotGit, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dotGit, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	gitDir, gotWorkDir, err := findGitDirectory(workDir)
	if err != nil {
		t.Fatalf("findGitDirectory() error: %v", err)
	}
	if gitDir != dotGit {
		t.Errorf("gitDir = %q, want %q", gitDir, dotGit)
	}
	if gotWorkDir != workDir {
		t.Errorf("workDir = %q, want %q", gotWorkDir, workDir)
	}
}

func TestIsBareRepository_MissingComponent(t *testing.T) {
	// Create directory with objects/ and refs/ but no HEAD
	dir := t.TempDir()
	for _, sub := range []string{"objects", "refs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	if isBareRepository(dir) {
		t.Error("isBareRepository() = true, want false (HEAD is missing)")
	}
}

func TestRepository_Head(t *testing.T) {
	repo := &Repository{
		head: Hash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
	}

	got := repo.Head()
	want := Hash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	if got != want {
		t.Errorf("Head() = %s, want %s", got, want)
	}
}

func TestRepository_HeadRef(t *testing.T) {
	tests := []struct {
		name    string
		headRef string
		want    string
	}{
		{
			name:    "branch HEAD",
			headRef: "refs/heads/main",
			want:    "refs/heads/main",
		},
		{
			name:    "detached HEAD",
			headRef: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &Repository{
				headRef: tt.headRef,
			}

			got := repo.HeadRef()
			if got != tt.want {
				t.Errorf("HeadRef() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRepository_HeadDetached(t *testing.T) {
	tests := []struct {
		name         string
		headDetached bool
		want         bool
	}{
		{
			name:         "detached HEAD",
			headDetached: true,
			want:         true,
		},
		{
			name:         "branch HEAD",
			headDetached: false,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &Repository{
				headDetached: tt.headDetached,
			}

			got := repo.HeadDetached()
			if got != tt.want {
				t.Errorf("HeadDetached() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRepository_TagNames(t *testing.T) {
	repo := &Repository{
		refs: map[string]Hash{
			"refs/heads/main":    Hash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
			"refs/tags/v1.0.0":   Hash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
			"refs/tags/v2.0.0":   Hash("cccccccccccccccccccccccccccccccccccccccc"),
			"refs/heads/develop": Hash("dddddddddddddddddddddddddddddddddddddddd"),
		},
	}

	got := repo.TagNames()

	if len(got) != 2 {
		t.Fatalf("TagNames() returned %d tags, want 2", len(got))
	}

	// Check that both tags are present (order may vary)
	foundV1 := false
	foundV2 := false
	for _, tag := range got {
		if tag == "v1.0.0" {
			foundV1 = true
		}
		if tag == "v2.0.0" {
			foundV2 = true
		}
	}

	if !foundV1 {
		t.Errorf("TagNames() missing v1.0.0")
	}
	if !foundV2 {
		t.Errorf("TagNames() missing v2.0.0")
	}
}

func TestRepository_Tags(t *testing.T) {
	commitHash := Hash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	annotatedTagHash := Hash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	lightweightTagHash := Hash("cccccccccccccccccccccccccccccccccccccccc")

	repo := &Repository{
		refs: map[string]Hash{
			"refs/heads/main":      commitHash,
			"refs/tags/annotated":  annotatedTagHash,
			"refs/tags/lightweight": lightweightTagHash,
		},
		tags: []*Tag{
			{ID: annotatedTagHash, Object: commitHash, Name: "annotated"},
		},
	}

	got := repo.Tags()

	if got["annotated"] != string(commitHash) {
		t.Errorf("Tags()[annotated] = %s, want peeled commit %s", got["annotated"], commitHash)
	}
	if got["lightweight"] != string(lightweightTagHash) {
		t.Errorf("Tags()[lightweight] = %s, want %s", got["lightweight"], lightweightTagHash)
	}
}

func TestNewSignature_Timezone(t *testing.T) {
	tests := []struct {
		name           string
		line           string
		wantName       string
		wantTZ         string
		wantOffsetSecs int
	}{
		{
			name:           "positive offset",
			line:           "John Doe <john@example.com> 1234567890 +0530",
			wantName:       "John Doe",
			wantTZ:         "+0530",
			wantOffsetSecs: 5*3600 + 30*60,
		},
		{
			name:           "negative offset",
			line:           "Jane Doe <jane@example.com> 1234567890 -0800",
			wantName:       "Jane Doe",
			wantTZ:         "-0800",
			wantOffsetSecs: -8 * 3600,
		},
		{
			name:           "UTC offset",
			line:           "Test User <test@example.com> 1234567890 +0000",
			wantName:       "Test User",
			wantTZ:         "+0000",
			wantOffsetSecs: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := NewSignature(tt.line)
			if err != nil {
				t.Fatalf("NewSignature() error: %v", err)
			}
			if sig.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", sig.Name, tt.wantName)
			}
			zoneName, offset := sig.When.Zone()
			if offset != tt.wantOffsetSecs {
				t.Errorf("timezone offset = %d, want %d", offset, tt.wantOffsetSecs)
			}
			if zoneName != tt.wantTZ {
				t.Errorf("timezone name = %q, want %q", zoneName, tt.wantTZ)
			}
		})
	}
}

func TestRepository_GetCommit(t *testing.T) {
	hash1 := Hash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	hash2 := Hash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	c1 := &Commit{ID: hash1, Message: "first"}
	c2 := &Commit{ID: hash2, Message: "second"}
	repo := &Repository{
		commits:   []*Commit{c1, c2},
		commitMap: map[Hash]*Commit{hash1: c1, hash2: c2},
	}

	t.Run("found", func(t *testing.T) {
		c, err := repo.GetCommit(hash1)
		if err != nil {
			t.Fatalf("GetCommit() error: %v", err)
		}
		if c.Message != "first" {
			t.Errorf("Message = %q, want %q", c.Message, "first")
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetCommit(Hash("cccccccccccccccccccccccccccccccccccccccc"))
		if err == nil {
			t.Fatal("GetCommit() expected error for missing commit")
		}
	})
}

func TestRepository_GetTag(t *testing.T) {
	hash1 := Hash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	repo := &Repository{
		tags: []*Tag{
			{ID: hash1, Name: "v1.0"},
		},
	}

	t.Run("found", func(t *testing.T) {
		tag, err := repo.GetTag(hash1)
		if err != nil {
			t.Fatalf("GetTag() error: %v", err)
		}
		if tag.Name != "v1.0" {
			t.Errorf("Name = %q, want %q", tag.Name, "v1.0")
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetTag(Hash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"))
		if err == nil {
			t.Fatal("GetTag() expected error for missing tag")
		}
	})
}

func TestGetCommits(t *testing.T) {
	hash1 := Hash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	hash2 := Hash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	hash3 := Hash("cccccccccccccccccccccccccccccccccccccccc")

	c1 := &Commit{ID: hash1, Message: "first"}
	c2 := &Commit{ID: hash2, Message: "second"}

	repo := &Repository{
		commits:   []*Commit{c1, c2},
		commitMap: map[Hash]*Commit{hash1: c1, hash2: c2},
	}

	t.Run("found all", func(t *testing.T) {
		result := repo.GetCommits([]Hash{hash1, hash2})
		if len(result) != 2 {
			t.Fatalf("GetCommits() returned %d, want 2", len(result))
		}
	})

	t.Run("skips unknown", func(t *testing.T) {
		result := repo.GetCommits([]Hash{hash1, hash3})
		if len(result) != 1 {
			t.Fatalf("GetCommits() returned %d, want 1", len(result))
		}
		if result[0].ID != hash1 {
			t.Errorf("result[0].ID = %s, want %s", result[0].ID, hash1)
		}
	})

	t.Run("all unknown", func(t *testing.T) {
		result := repo.GetCommits([]Hash{hash3})
		if len(result) != 0 {
			t.Errorf("GetCommits() returned %d, want 0", len(result))
		}
	})
}

func TestGetCommits_Empty(t *testing.T) {
	hash1 := Hash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	c1 := &Commit{ID: hash1, Message: "first"}
	repo := &Repository{
		commits:   []*Commit{c1},
		commitMap: map[Hash]*Commit{hash1: c1},
	}

	result := repo.GetCommits([]Hash{})
	if len(result) != 0 {
		t.Errorf("GetCommits(empty) returned %d, want 0", len(result))
	}
}

