package sweeper

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	old := touch(t, dir, "OLD_4h.png", 48*time.Hour)
	fresh := touch(t, dir, "FRESH_4h.png", time.Hour)
	other := touch(t, dir, "notes.txt", 48*time.Hour)

	s := New(dir, 1)
	s.Sweep(time.Now())

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("aged chart should be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh chart should survive: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("non-PNG files should survive: %v", err)
	}
}

func TestSweep_MissingDirectory(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "gone"), 1)
	// Must not panic.
	s.Sweep(time.Now())
}

func TestRegister_BadSpec(t *testing.T) {
	s := New(t.TempDir(), 1)
	if err := s.Register("not a cron spec"); err == nil {
		t.Error("invalid cron spec should fail registration")
	}
	if err := s.Register("0 0 3 * * *"); err != nil {
		t.Errorf("valid spec rejected: %v", err)
	}
}
