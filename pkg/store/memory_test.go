package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_SetGetFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.SetJobFields(ctx, "job-1", map[string]string{"status": "running"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetJobFields(ctx, "job-1", map[string]string{"progress": "0.5"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields, err := s.GetJobFields(ctx, "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields["status"] != "running" || fields["progress"] != "0.5" {
		t.Fatalf("expected merged fields, got %+v", fields)
	}
}

func TestMemoryStore_GetMissingJob_ReturnsEmpty(t *testing.T) {
	s := NewMemoryStore()
	fields, err := s.GetJobFields(context.Background(), "absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 0 {
		t.Fatalf("expected empty map, got %+v", fields)
	}
}

func TestMemoryStore_ExistsAndDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.SetJobFields(ctx, "job-1", map[string]string{"status": "running"})

	if ok, _ := s.Exists(ctx, "job-1"); !ok {
		t.Fatal("expected job to exist")
	}
	s.Delete(ctx, "job-1")
	if ok, _ := s.Exists(ctx, "job-1"); ok {
		t.Fatal("expected job to be deleted")
	}
}

func TestMemoryStore_LockSingleFlight(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.AcquireLock(ctx, "job-1", time.Minute); err != nil {
		t.Fatalf("expected first acquire to succeed, got %v", err)
	}
	err := s.AcquireLock(ctx, "job-1", time.Minute)
	if !errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("expected ErrLockNotAcquired, got %v", err)
	}

	s.ReleaseLock(ctx, "job-1")
	if err := s.AcquireLock(ctx, "job-1", time.Minute); err != nil {
		t.Fatalf("expected acquire after release to succeed, got %v", err)
	}
}

func TestMemoryStore_LockExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.AcquireLock(ctx, "job-1", 1*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := s.AcquireLock(ctx, "job-1", time.Minute); err != nil {
		t.Fatalf("expected acquire after expiry to succeed, got %v", err)
	}
}
