package kv_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"obfuscator-web/kv"
	"obfuscator-web/options"
)

func TestNewFileMissingFile(t *testing.T) {
	dir := t.TempDir()
	f, err := kv.NewFile(dir + "/nonexistent.json")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if _, ok, _ := f.Get("anything"); ok {
		t.Fatal("expected empty store")
	}
}

func TestSetAndReload(t *testing.T) {
	path := t.TempDir() + "/store.json"
	f, _ := kv.NewFile(path)

	if err := f.Set("obfOptions", `{"compact":false}`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Reload from disk.
	f2, err := kv.NewFile(path)
	if err != nil {
		t.Fatalf("NewFile reload: %v", err)
	}
	v, ok, err := f2.Get("obfOptions")
	if err != nil || !ok {
		t.Fatalf("expected key after reload, ok=%v err=%v", ok, err)
	}
	if v != `{"compact":false}` {
		t.Fatalf("unexpected value %q", v)
	}
}

func TestSetCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "store.json")
	f, _ := kv.NewFile(path)
	if err := f.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := t.TempDir() + "/store.json"
	truncated := `{"obfOptions": "{\"compact\":false}"`
	if err := os.WriteFile(path, []byte(truncated), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := kv.NewFile(path)
	if err != nil {
		t.Fatalf("expected corrupt file to be tolerated, got %v", err)
	}
	if _, ok, _ := f.Get("obfOptions"); ok {
		t.Fatal("expected empty store after corrupt file")
	}

	aside, decodeErr := f.Recovered()
	if decodeErr == nil {
		t.Fatal("expected the decode error to be reported")
	}
	if aside != path+".corrupt" {
		t.Fatalf("unexpected aside path %q", aside)
	}
	if got, err := os.ReadFile(aside); err != nil || string(got) != truncated {
		t.Fatalf("corrupt content not preserved: %q, %v", got, err)
	}

	// The store is usable again.
	if err := f.Set("obfOptions", `{"compact":false}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	f2, err := kv.NewFile(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, decodeErr := f2.Recovered(); decodeErr != nil {
		t.Fatalf("rewritten file should load cleanly: %v", decodeErr)
	}
}

func TestCorruptFileLoadsDefaultOptions(t *testing.T) {
	path := t.TempDir() + "/store.json"
	os.WriteFile(path, []byte("{not json"), 0644)

	f, err := kv.NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if got := options.NewManager(f, nil).Load(); got != options.Defaults() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestSetFailureKeepsState(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be makes the rename fail.
	path := filepath.Join(dir, "store.json")
	f, _ := kv.NewFile(path)
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "x"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := f.Set("k", "v"); err == nil {
		t.Fatal("expected error writing over a directory")
	}
	if _, ok, _ := f.Get("k"); ok {
		t.Fatal("failed Set must not change in-memory state")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be cleaned up, stat err=%v", err)
	}
}

func TestMemory(t *testing.T) {
	var m kv.Memory
	if _, ok, _ := m.Get("k"); ok {
		t.Fatal("expected empty")
	}
	m.Set("k", "v")
	if v, ok, _ := m.Get("k"); !ok || v != "v" {
		t.Fatalf("got %q ok=%v", v, ok)
	}
}

func TestConcurrentSet(t *testing.T) {
	path := t.TempDir() + "/store.json"
	f, _ := kv.NewFile(path)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			f.Set("k", string(rune('a'+n)))
		}(i)
	}
	wg.Wait()

	if _, ok, _ := f.Get("k"); !ok {
		t.Fatal("expected key after concurrent writes")
	}
}
