package storage

import (
	"path/filepath"
	"testing"
)

type record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestJSONStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir, "records.json")
	if err != nil {
		t.Fatal(err)
	}

	// Loading before any save is a clean empty start.
	var empty []record
	if err := store.Load(&empty); err != nil {
		t.Fatalf("Load on missing file error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Load on missing file = %v; want empty", empty)
	}

	want := []record{{ID: "a", Name: "first"}, {ID: "b", Name: "second"}}
	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}
	if !store.Exists() {
		t.Error("Exists() = false after Save")
	}

	reopened, err := NewJSONStore(dir, "records.json")
	if err != nil {
		t.Fatal(err)
	}
	var got []record
	if err := reopened.Load(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].Name != "second" {
		t.Errorf("Load = %v; want %v", got, want)
	}
}

func TestJSONStore_SaveOverwrites(t *testing.T) {
	store, err := NewJSONStore(t.TempDir(), "records.json")
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Save([]record{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save([]record{{ID: "b"}}); err != nil {
		t.Fatal(err)
	}

	var got []record
	if err := store.Load(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("Load after overwrite = %v; want single b", got)
	}
}

func TestNewJSONStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store, err := NewJSONStore(dir, "records.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save([]record{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
}
