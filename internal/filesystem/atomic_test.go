package filesystem

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a", "b", "c")

	if err := EnsureDir(path); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	// Idempotent.
	if err := EnsureDir(path); err != nil {
		t.Fatalf("second EnsureDir() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Fatal("expected a directory")
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		t.Errorf("directory permissions = %v, want owner-only", perm)
	}
}

func TestWriteAtomic_CreatesDirectoryOnDemand(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "thumbnails", "normal", "abc.png")

	err := WriteAtomic(final, func(w io.Writer) error {
		_, err := io.WriteString(w, "payload")
		return err
	})
	if err != nil {
		t.Fatalf("WriteAtomic() error = %v", err)
	}

	data, err := os.ReadFile(final)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q, want payload", data)
	}

	info, err := os.Stat(final)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != FilePerm {
		t.Errorf("file permissions = %v, want %v", perm, FilePerm)
	}

	assertNoTempFiles(t, filepath.Dir(final))
}

func TestWriteAtomicIn_EnsuresDirectoryOnlyWhenMissing(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "sub", "entry.png")
	payload := func(w io.Writer) error {
		_, err := io.WriteString(w, "x")
		return err
	}

	calls := 0
	ensure := func() error {
		calls++
		return EnsureDir(filepath.Dir(final))
	}

	if err := WriteAtomicIn(final, ensure, payload); err != nil {
		t.Fatalf("WriteAtomicIn() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("ensureDir called %d times, want 1", calls)
	}

	if err := WriteAtomicIn(final, ensure, payload); err != nil {
		t.Fatalf("second WriteAtomicIn() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("ensureDir called %d times after directory existed, want 1", calls)
	}

	failing := func() error { return errors.New("no space") }
	err := WriteAtomicIn(filepath.Join(root, "other", "entry.png"), failing, payload)
	if !errors.Is(err, ErrTempFile) {
		t.Errorf("WriteAtomicIn() error = %v, want ErrTempFile", err)
	}
}

func TestWriteAtomic_WriterErrorLeavesNothing(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "out.png")
	boom := errors.New("encode failed")

	err := WriteAtomic(final, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WriteAtomic() error = %v, want %v", err, boom)
	}
	if _, err := os.Stat(final); !os.IsNotExist(err) {
		t.Errorf("final path should not exist, stat error = %v", err)
	}
	assertNoTempFiles(t, root)
}

func TestWriteAtomic_ReplacesExisting(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "out.png")
	if err := os.WriteFile(final, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := WriteAtomic(final, func(w io.Writer) error {
		_, err := io.WriteString(w, "new")
		return err
	})
	if err != nil {
		t.Fatalf("WriteAtomic() error = %v", err)
	}

	data, _ := os.ReadFile(final)
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}

func TestWriteAtomic_UnwritableParent(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	// A regular file where a directory is expected cannot be fixed by EnsureDir.
	final := filepath.Join(blocker, "sub", "out.png")
	err := WriteAtomic(final, func(w io.Writer) error { return nil })
	if !errors.Is(err, ErrTempFile) {
		t.Errorf("WriteAtomic() error = %v, want ErrTempFile", err)
	}
}

func TestCreateTemp_UniqueNames(t *testing.T) {
	final := filepath.Join(t.TempDir(), "x.png")

	a, err := CreateTemp(final)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := CreateTemp(final)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if a.Name() == b.Name() {
		t.Errorf("CreateTemp returned the same name twice: %s", a.Name())
	}
	if filepath.Dir(a.Name()) != filepath.Dir(final) {
		t.Errorf("temp file %s is not next to %s", a.Name(), final)
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
