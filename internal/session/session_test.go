package session

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/opsdeck/backoffice/internal/errdefs"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestRoundTrip(t *testing.T) {
	s := tempStore(t)
	if err := s.SetTokens("access-abc", "refresh-def"); err != nil {
		t.Fatalf("set tokens: %v", err)
	}
	if err := s.SetUser(UserInfo{ID: 1, Username: "admin", IsSuperuser: true}); err != nil {
		t.Fatalf("set user: %v", err)
	}

	reopened, err := Open(s.Path())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Token() != "access-abc" {
		t.Fatalf("token = %q", reopened.Token())
	}
	if reopened.RefreshToken() != "refresh-def" {
		t.Fatalf("refresh = %q", reopened.RefreshToken())
	}
	u, ok := reopened.User()
	if !ok || u.Username != "admin" || !u.IsSuperuser {
		t.Fatalf("user = %+v ok=%v", u, ok)
	}

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("session file mode = %o, want 0600", perm)
	}
}

func TestClearOnceUnderContention(t *testing.T) {
	s := tempStore(t)
	if err := s.SetTokens("tok", ""); err != nil {
		t.Fatal(err)
	}

	const n = 32
	var wg sync.WaitGroup
	results := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cleared, err := s.Clear()
			if err != nil {
				t.Errorf("clear: %v", err)
			}
			results[i] = cleared
		}(i)
	}
	wg.Wait()

	count := 0
	for _, r := range results {
		if r {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("%d callers observed the clear, want exactly 1", count)
	}
	if s.Token() != "" {
		t.Fatal("token survived clear")
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Fatalf("session file survived clear: %v", err)
	}
}

func TestGuard(t *testing.T) {
	s := tempStore(t)
	err := s.Guard()
	if err == nil {
		t.Fatal("guard passed without token")
	}
	if !errdefs.IsKind(err, errdefs.KindAuth) {
		t.Fatalf("guard error kind = %s", errdefs.KindOf(err))
	}

	if err := s.SetTokens("tok", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.Guard(); err != nil {
		t.Fatalf("guard failed with token present: %v", err)
	}
}

func TestOpenCorruptFileIsLoggedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open corrupt: %v", err)
	}
	if s.Token() != "" {
		t.Fatal("corrupt file produced a token")
	}
}
