package revisions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func baselineSnapshot() Snapshot {
	return Snapshot{
		Title:    "First draft",
		Body:     "The original body text.",
		Language: "en",
	}
}

func TestEnsureRepoCreatesBaseline(t *testing.T) {
	svc := New(t.TempDir())
	if err := svc.EnsureRepo("content_1", baselineSnapshot(), "Sam Writer"); err != nil {
		t.Fatalf("EnsureRepo: %v", err)
	}

	history, err := svc.History("content_1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if !strings.Contains(history[0].Message, "baseline") {
		t.Errorf("baseline message = %q", history[0].Message)
	}
	if history[0].Author != "Sam Writer" {
		t.Errorf("author = %q", history[0].Author)
	}
	if len(history[0].Hash) != 7 {
		t.Errorf("hash = %q, want 7 characters", history[0].Hash)
	}
}

func TestEnsureRepoIsIdempotent(t *testing.T) {
	svc := New(t.TempDir())
	if err := svc.EnsureRepo("content_1", baselineSnapshot(), "Sam"); err != nil {
		t.Fatalf("first EnsureRepo: %v", err)
	}
	changed := baselineSnapshot()
	changed.Body = "Different body that must not be committed."
	if err := svc.EnsureRepo("content_1", changed, "Sam"); err != nil {
		t.Fatalf("second EnsureRepo: %v", err)
	}

	history, err := svc.History("content_1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history length = %d, want the baseline only", len(history))
	}
}

func TestCommitAndHistoryOrder(t *testing.T) {
	svc := New(t.TempDir())
	if err := svc.EnsureRepo("content_1", baselineSnapshot(), "Sam"); err != nil {
		t.Fatalf("EnsureRepo: %v", err)
	}

	second := baselineSnapshot()
	second.Body = "A reworked body after the first round of edits."
	rev, err := svc.Commit("content_1", second, "Sam", "Apply AI improvement")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(rev.Hash) != 7 {
		t.Errorf("hash = %q", rev.Hash)
	}

	history, err := svc.History("content_1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Hash != rev.Hash {
		t.Errorf("newest first: got %q, want %q", history[0].Hash, rev.Hash)
	}
	if !strings.Contains(history[1].Message, "baseline") {
		t.Errorf("oldest entry = %q", history[1].Message)
	}
}

func TestHistoryHonorsLimit(t *testing.T) {
	svc := New(t.TempDir())
	if err := svc.EnsureRepo("content_1", baselineSnapshot(), "Sam"); err != nil {
		t.Fatalf("EnsureRepo: %v", err)
	}
	for i := 0; i < 3; i++ {
		snap := baselineSnapshot()
		snap.Body = strings.Repeat("edit ", i+1)
		if _, err := svc.Commit("content_1", snap, "Sam", "Edit body"); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}

	history, err := svc.History("content_1", 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
}

func TestSnapshotByHashRoundTrip(t *testing.T) {
	svc := New(t.TempDir())
	if err := svc.EnsureRepo("content_1", baselineSnapshot(), "Sam"); err != nil {
		t.Fatalf("EnsureRepo: %v", err)
	}
	second := baselineSnapshot()
	second.Title = "Second draft"
	second.Body = "New body."
	rev, err := svc.Commit("content_1", second, "Sam", "Edit body")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	snap, err := svc.SnapshotByHash("content_1", rev.Hash)
	if err != nil {
		t.Fatalf("SnapshotByHash: %v", err)
	}
	if snap != second {
		t.Errorf("snapshot = %+v, want %+v", snap, second)
	}

	history, err := svc.History("content_1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	baseline, err := svc.SnapshotByHash("content_1", history[len(history)-1].Hash)
	if err != nil {
		t.Fatalf("SnapshotByHash baseline: %v", err)
	}
	if baseline != baselineSnapshot() {
		t.Errorf("baseline snapshot = %+v", baseline)
	}
}

func TestHistoryForUnknownContentFails(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.History("content_missing", 10); err == nil {
		t.Fatal("expected error for unknown content")
	}
}

func TestRepoLaidOutPerContentItem(t *testing.T) {
	base := t.TempDir()
	svc := New(base)
	if err := svc.EnsureRepo("content_1", baselineSnapshot(), "Sam"); err != nil {
		t.Fatalf("EnsureRepo: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "content_1", ".git")); err != nil {
		t.Errorf("expected git repo under the content directory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "content_1", "content.json")); err != nil {
		t.Errorf("expected snapshot file in worktree: %v", err)
	}
}
