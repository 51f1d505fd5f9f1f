package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("Load on empty store = %v, want ErrNoRecord", err)
	}

	rec := Record{
		PlayerName: "Ann", BuyIn: 1000, Joined: true,
		PlayerID: "p1", SavedAt: time.Now().Truncate(time.Second),
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.PlayerName != rec.PlayerName || got.PlayerID != rec.PlayerID || !got.Joined {
		t.Errorf("Load = %+v, want %+v", got, rec)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Load after Clear = %v, want ErrNoRecord", err)
	}

	// Clearing again is fine.
	if err := store.Clear(ctx); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestFileStoreCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if _, err := store.Load(context.Background()); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Load of corrupt record = %v, want ErrNoRecord", err)
	}

	// The corrupt file is erased, not just ignored.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("corrupt session file still on disk (stat err = %v)", err)
	}
}
