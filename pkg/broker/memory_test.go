package broker

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryBroker_SubmitClaimFIFO(t *testing.T) {
	b := NewInMemoryBroker()
	ctx := context.Background()

	b.Submit(ctx, Task{TaskName: "solve", TaskID: "job-1"})
	b.Submit(ctx, Task{TaskName: "solve", TaskID: "job-2"})

	first, err := b.Claim(ctx)
	if err != nil || first.TaskID != "job-1" {
		t.Fatalf("expected job-1 first, got %+v, err=%v", first, err)
	}
	second, err := b.Claim(ctx)
	if err != nil || second.TaskID != "job-2" {
		t.Fatalf("expected job-2 second, got %+v, err=%v", second, err)
	}
}

func TestInMemoryBroker_ClaimEmpty(t *testing.T) {
	b := NewInMemoryBroker()
	_, err := b.Claim(context.Background())
	if !errors.Is(err, ErrNoTasksAvailable) {
		t.Fatalf("expected ErrNoTasksAvailable, got %v", err)
	}
}

func TestInMemoryBroker_Revoke(t *testing.T) {
	b := NewInMemoryBroker()
	ctx := context.Background()
	b.Submit(ctx, Task{TaskID: "job-1"})

	if b.IsRevoked("job-1") {
		t.Fatal("expected job-1 to not be revoked yet")
	}
	b.Revoke(ctx, "job-1")
	if !b.IsRevoked("job-1") {
		t.Fatal("expected job-1 to be revoked")
	}
}
