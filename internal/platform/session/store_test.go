package session

import (
	"context"
	"testing"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	val, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "" {
		t.Errorf("expected empty value for unset key, got %q", val)
	}

	if err := s.Set(ctx, "u1", "org:abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val, _ = s.Get(ctx, "u1")
	if val != "org:abc" {
		t.Errorf("expected org:abc, got %q", val)
	}

	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val, _ = s.Get(ctx, "u1")
	if val != "" {
		t.Errorf("expected empty value after delete, got %q", val)
	}
}

func TestMemoryStore_IsolatedPerUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Set(ctx, "u1", "individual")
	s.Set(ctx, "u2", "org:xyz")

	v1, _ := s.Get(ctx, "u1")
	v2, _ := s.Get(ctx, "u2")
	if v1 != "individual" || v2 != "org:xyz" {
		t.Errorf("values crossed users: %q / %q", v1, v2)
	}
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	if _, err := NewRedisStore("not-a-url", 0); err == nil {
		t.Error("expected error for invalid redis url")
	}
}
