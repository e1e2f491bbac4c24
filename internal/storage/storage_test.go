package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()

	if _, ok, err := kv.Get("upload_responses"); err != nil || ok {
		t.Fatalf("Get on empty store = ok:%v err:%v, want absent", ok, err)
	}

	if err := kv.Set("upload_responses", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := kv.Get("upload_responses")
	if err != nil || !ok {
		t.Fatalf("Get after Set = ok:%v err:%v", ok, err)
	}
	if !bytes.Equal(v, []byte(`[{"id":"a"}]`)) {
		t.Errorf("Get = %s, want [{\"id\":\"a\"}]", v)
	}

	if err := kv.Set("upload_responses", []byte(`[]`)); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	v, _, _ = kv.Get("upload_responses")
	if string(v) != "[]" {
		t.Errorf("Get after overwrite = %s, want []", v)
	}

	if err := kv.Remove("upload_responses"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, _ := kv.Get("upload_responses"); ok {
		t.Error("key should be absent after Remove")
	}
	if err := kv.Remove("upload_responses"); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
}

func TestFileKV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	kv, err := NewFileKV(dir)
	if err != nil {
		t.Fatal(err)
	}
	exerciseKV(t, kv)
}

func TestFileKVAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	kv, _ := NewFileKV(dir)

	if err := kv.Set("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "k.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file should not remain after Set")
	}
	data, err := os.ReadFile(filepath.Join(dir, "k.json"))
	if err != nil || string(data) != "v" {
		t.Errorf("key file = %q, %v", data, err)
	}
}

func TestFileKVInvalidKey(t *testing.T) {
	kv, _ := NewFileKV(t.TempDir())
	for _, key := range []string{"", "..", "a/b", `a\b`} {
		if err := kv.Set(key, nil); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Set(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestNewFileKVRequiresDir(t *testing.T) {
	if _, err := NewFileKV("  "); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestSQLiteKV(t *testing.T) {
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer kv.Close()
	exerciseKV(t, kv)
}

func TestSQLiteKVPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	kv, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Set("upload_responses", []byte("[1]")); err != nil {
		t.Fatal(err)
	}
	kv.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	v, ok, err := reopened.Get("upload_responses")
	if err != nil || !ok || string(v) != "[1]" {
		t.Errorf("Get after reopen = %q ok:%v err:%v", v, ok, err)
	}
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestMemoryKVCopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	buf := []byte("abc")
	kv.Set("k", buf)
	buf[0] = 'x'
	v, _, _ := kv.Get("k")
	if string(v) != "abc" {
		t.Errorf("stored value mutated through caller slice: %s", v)
	}
}

func TestFailingKV(t *testing.T) {
	inner := NewMemoryKV()
	kv := NewFailingKV(inner)
	exerciseKV(t, kv)

	kv.SetFailures(false, true, false)
	if err := kv.Set("k", []byte("v")); !errors.Is(err, ErrInjected) {
		t.Errorf("Set = %v, want ErrInjected", err)
	}
	if _, ok, _ := inner.Get("k"); ok {
		t.Error("failed Set must not reach the inner store")
	}

	custom := errors.New("disk full")
	kv.Err = custom
	kv.SetFailures(true, false, true)
	if _, _, err := kv.Get("k"); !errors.Is(err, custom) {
		t.Errorf("Get = %v, want custom error", err)
	}
	if err := kv.Remove("k"); !errors.Is(err, custom) {
		t.Errorf("Remove = %v, want custom error", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"file", "sqlite", "memory"} {
		kv, err := Open(backend, filepath.Join(dir, backend))
		if err != nil {
			t.Errorf("Open(%s) failed: %v", backend, err)
			continue
		}
		if err := Close(kv); err != nil {
			t.Errorf("Close(%s) failed: %v", backend, err)
		}
	}
	if _, err := Open("redis", dir); err == nil {
		t.Error("expected error for unknown backend")
	}
}
