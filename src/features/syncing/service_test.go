package syncing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/contre95/song-classifier/src/features/config"
	"github.com/contre95/song-classifier/src/music"
	"github.com/gofrs/flock"
)

// fakeGit records calls and simulates a repository on disk.
type fakeGit struct {
	calls     []string
	clean     bool
	committed bool
	ahead     bool
	pullErr   error
	pushErr   error
	commitErr error
	remote    map[string]string // files materialised by Clone
}

func (g *fakeGit) IsRepository(ctx context.Context, dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

func (g *fakeGit) Clone(ctx context.Context, url, dir string) error {
	g.calls = append(g.calls, "clone")
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		return err
	}
	for name, content := range g.remote {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (g *fakeGit) Pull(ctx context.Context, dir string) error {
	g.calls = append(g.calls, "pull")
	return g.pullErr
}

func (g *fakeGit) Clean(ctx context.Context, dir string) (bool, error) {
	g.calls = append(g.calls, "status")
	return g.clean, nil
}

func (g *fakeGit) Add(ctx context.Context, dir string, paths ...string) error {
	g.calls = append(g.calls, "add")
	return nil
}

func (g *fakeGit) Commit(ctx context.Context, dir, message string) (bool, error) {
	g.calls = append(g.calls, "commit")
	if message != CommitMessage {
		return false, errors.New("unexpected commit message " + message)
	}
	if g.commitErr != nil {
		return false, g.commitErr
	}
	if g.committed {
		g.ahead = true
	}
	return g.committed, nil
}

func (g *fakeGit) Ahead(ctx context.Context, dir string) (bool, error) {
	g.calls = append(g.calls, "ahead")
	return g.ahead, nil
}

func (g *fakeGit) Push(ctx context.Context, dir string) error {
	g.calls = append(g.calls, "push")
	if g.pushErr != nil {
		return g.pushErr
	}
	g.ahead = false
	return nil
}

func newTestService(t *testing.T, repo string, git *fakeGit) (*Service, *config.Manager) {
	t.Helper()
	manager := config.NewManager(t.TempDir(), &config.Config{SyncRepo: repo})
	return NewService(manager, git), manager
}

func TestPushNotConfiguredDoesNothing(t *testing.T) {
	git := &fakeGit{}
	svc, manager := newTestService(t, "", git)

	result, err := svc.Push(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result != ResultNotConfigured {
		t.Errorf("expected %s, got %s", ResultNotConfigured, result)
	}
	if len(git.calls) != 0 {
		t.Errorf("expected no git calls, got %v", git.calls)
	}
	entries, err := os.ReadDir(manager.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected untouched config dir, found %d entries", len(entries))
	}

	if result, _ := svc.Pull(context.Background()); result != ResultNotConfigured {
		t.Errorf("Pull() = %s, want %s", result, ResultNotConfigured)
	}
}

func TestPullClonesAndCopiesTables(t *testing.T) {
	git := &fakeGit{
		pullErr: errors.New("network down"),
		remote:  map[string]string{"metadata.csv": "key,track\n", "albums.csv": "name,artist\n"},
	}
	svc, manager := newTestService(t, "git@example.com:team/meta.git", git)
	if err := os.WriteFile(manager.MetadataFile(), []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := svc.Pull(context.Background())
	if err != nil {
		t.Fatalf("expected pull failure to be swallowed, got %v", err)
	}
	if result != ResultSynced {
		t.Errorf("expected %s, got %s", ResultSynced, result)
	}
	data, err := os.ReadFile(manager.MetadataFile())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "key,track\n" {
		t.Errorf("expected local table overwritten from clone, got %q", data)
	}
	if _, err := os.Stat(manager.AlbumsFile()); err != nil {
		t.Errorf("expected albums table copied: %v", err)
	}
	if len(git.calls) != 2 || git.calls[0] != "clone" || git.calls[1] != "pull" {
		t.Errorf("unexpected git calls %v", git.calls)
	}
}

func TestPullRecreatesInvalidClone(t *testing.T) {
	git := &fakeGit{}
	svc, manager := newTestService(t, "https://example.com/meta.git", git)
	if err := os.MkdirAll(manager.RepoDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	junk := filepath.Join(manager.RepoDir(), "junk.txt")
	if err := os.WriteFile(junk, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Pull(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(junk); !os.IsNotExist(err) {
		t.Errorf("expected invalid clone discarded, stat err = %v", err)
	}
	if git.calls[0] != "clone" {
		t.Errorf("expected a fresh clone, got %v", git.calls)
	}
}

func TestPush(t *testing.T) {
	tests := []struct {
		name      string
		git       *fakeGit
		want      Result
		wantCalls []string
	}{
		{"clean tree", &fakeGit{clean: true}, ResultUpToDate, []string{"clone", "status", "ahead"}},
		{"clean tree with unpushed commit", &fakeGit{clean: true, ahead: true}, ResultSynced, []string{"clone", "status", "ahead", "push"}},
		{"nothing staged", &fakeGit{}, ResultUpToDate, []string{"clone", "status", "add", "commit", "ahead"}},
		{"pushed", &fakeGit{committed: true}, ResultSynced, []string{"clone", "status", "add", "commit", "ahead", "push"}},
		{"commit failure", &fakeGit{commitErr: errors.New("hook rejected")}, ResultFailed, []string{"clone", "status", "add", "commit"}},
		{"push rejected", &fakeGit{committed: true, pushErr: errors.New("rejected")}, ResultFailed, []string{"clone", "status", "add", "commit", "ahead", "push"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, manager := newTestService(t, "https://example.com/meta.git", tt.git)
			if err := os.WriteFile(manager.MetadataFile(), []byte("key\nnew.mp3\n"), 0o644); err != nil {
				t.Fatal(err)
			}

			result, err := svc.Push(context.Background())
			if err != nil {
				t.Fatalf("expected failures downgraded to result, got %v", err)
			}
			if result != tt.want {
				t.Errorf("expected %s, got %s", tt.want, result)
			}
			if len(tt.git.calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", tt.git.calls, tt.wantCalls)
			}
			for i := range tt.wantCalls {
				if tt.git.calls[i] != tt.wantCalls[i] {
					t.Errorf("calls = %v, want %v", tt.git.calls, tt.wantCalls)
					break
				}
			}
			copied, err := os.ReadFile(filepath.Join(manager.RepoDir(), "metadata.csv"))
			if err != nil || string(copied) != "key\nnew.mp3\n" {
				t.Errorf("expected table copied into clone, got %q (%v)", copied, err)
			}
			if _, err := os.Stat(filepath.Join(manager.RepoDir(), "albums.csv")); !os.IsNotExist(err) {
				t.Errorf("expected missing albums table not to be created in clone")
			}
		})
	}
}

func TestPushRetriesCommitLeftByFailedPush(t *testing.T) {
	git := &fakeGit{committed: true, pushErr: errors.New("remote unreachable")}
	svc, manager := newTestService(t, "https://example.com/meta.git", git)
	if err := os.WriteFile(manager.MetadataFile(), []byte("key\nnew.mp3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if result, _ := svc.Push(context.Background()); result != ResultFailed {
		t.Fatalf("first Push() = %s, want %s", result, ResultFailed)
	}

	git.clean = true
	git.pushErr = nil
	git.calls = nil
	result, err := svc.Push(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result != ResultSynced {
		t.Errorf("retry Push() = %s, want %s", result, ResultSynced)
	}
	if len(git.calls) == 0 || git.calls[len(git.calls)-1] != "push" {
		t.Errorf("expected the stranded commit to be pushed, calls = %v", git.calls)
	}
	if git.ahead {
		t.Error("expected nothing left to push")
	}
}

func TestPushLockTimeout(t *testing.T) {
	git := &fakeGit{}
	svc, manager := newTestService(t, "https://example.com/meta.git", git)
	svc.WithLockTimeout(300 * time.Millisecond)

	holder := flock.New(manager.LockFile())
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("failed to hold lock: %v", err)
	}
	defer holder.Unlock()

	_, err = svc.Push(context.Background())
	if !errors.Is(err, music.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if len(git.calls) != 0 {
		t.Errorf("expected no git calls while locked out, got %v", git.calls)
	}
}
