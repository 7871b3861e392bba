package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_PutGet(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	ctx := context.Background()
	data := []byte(`{"final_value": 10800}`)

	if err := fs.Put(ctx, "backtests/run-1.json", data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := fs.Get(ctx, "backtests/run-1.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}

	if _, err := fs.Get(ctx, "backtests/missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: got %v, want ErrNotFound", err)
	}
}

func TestLocalFS_ExistsDelete(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	exists, err := fs.Exists(ctx, "risk/a.json")
	if err != nil || exists {
		t.Fatalf("Exists before Put = %v, %v", exists, err)
	}
	if err := fs.Put(ctx, "risk/a.json", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if exists, _ := fs.Exists(ctx, "risk/a.json"); !exists {
		t.Error("expected object to exist after Put")
	}

	if err := fs.Delete(ctx, "risk/a.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if exists, _ := fs.Exists(ctx, "risk/a.json"); exists {
		t.Error("expected object to be gone after Delete")
	}
	if err := fs.Delete(ctx, "risk/a.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: got %v, want ErrNotFound", err)
	}
}

func TestLocalFS_List(t *testing.T) {
	root := t.TempDir()
	fs, _ := NewLocalFS(root)
	ctx := context.Background()

	for _, key := range []string{"backtests/b.json", "backtests/a.json", "optimizations/x.json"} {
		if err := fs.Put(ctx, key, []byte("{}")); err != nil {
			t.Fatal(err)
		}
	}
	// leftovers from an interrupted write are not objects
	if err := os.WriteFile(filepath.Join(root, "backtests", "c.json.tmp"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	keys, err := fs.List(ctx, "backtests/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"backtests/a.json", "backtests/b.json"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}

	empty, err := fs.List(ctx, "nothing/")
	if err != nil || len(empty) != 0 {
		t.Errorf("List unknown prefix = %v, %v", empty, err)
	}
}

func TestLocalFS_RejectsEscapingKeys(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"../outside.json", "/etc/passwd", "", "a/../../b"} {
		if err := fs.Put(ctx, key, []byte("x")); err == nil {
			t.Errorf("Put(%q) succeeded, want error", key)
		}
	}
}

func TestNewLocalFS_EmptyPath(t *testing.T) {
	if _, err := NewLocalFS(""); err == nil {
		t.Error("expected error for empty root")
	}
}
