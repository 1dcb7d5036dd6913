package internaldb

import (
	"context"
	"testing"

	"github.com/budgetme/finsight/internal/common"
)

func newUnitTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	logger := common.NewSilentLogger()
	store, err := NewStore(logger, dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSystemKV(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	// Missing keys return empty, not an error
	val, err := store.GetSystemKV(ctx, "textgen_api_key")
	if err != nil {
		t.Fatalf("GetSystemKV: %v", err)
	}
	if val != "" {
		t.Errorf("missing key should return empty, got %q", val)
	}

	if err := store.SetSystemKV(ctx, "textgen_api_key", "sk-test"); err != nil {
		t.Fatalf("SetSystemKV: %v", err)
	}
	val, err = store.GetSystemKV(ctx, "textgen_api_key")
	if err != nil {
		t.Fatalf("GetSystemKV: %v", err)
	}
	if val != "sk-test" {
		t.Errorf("got %q, want sk-test", val)
	}

	// Overwrite
	if err := store.SetSystemKV(ctx, "textgen_api_key", "sk-test2"); err != nil {
		t.Fatalf("SetSystemKV update: %v", err)
	}
	val, _ = store.GetSystemKV(ctx, "textgen_api_key")
	if val != "sk-test2" {
		t.Errorf("got %q, want sk-test2", val)
	}

	// Delete
	if err := store.DeleteSystemKV(ctx, "textgen_api_key"); err != nil {
		t.Fatalf("DeleteSystemKV: %v", err)
	}
	val, _ = store.GetSystemKV(ctx, "textgen_api_key")
	if val != "" {
		t.Errorf("deleted key should return empty, got %q", val)
	}

	// Deleting a missing key is not an error
	if err := store.DeleteSystemKV(ctx, "nonexistent"); err != nil {
		t.Errorf("DeleteSystemKV missing: %v", err)
	}
}
