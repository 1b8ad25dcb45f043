package history

import (
	"context"
	"testing"
)

func TestService_AppendRequiresCustomerAndDirection(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Entry{Direction: DirectionIn, Body: "oi"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Entry{CustomerID: "c", Direction: "SIDEWAYS", Body: "oi"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Inbound(context.Background(), "c", "   "); err == nil {
		t.Fatalf("expected error for blank body")
	}
}

func TestService_JournalsBothDirections(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.Inbound(ctx, "c1", "oi, quero orcamento"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.Outbound(ctx, "c1", "Me manda uma foto"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.Inbound(ctx, "c2", "outro cliente"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if got := len(repo.Entries()); got != 3 {
		t.Fatalf("expected 3 entries, got %d", got)
	}
	recent, err := svc.Recent(ctx, "c1", 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries for c1, got %d", len(recent))
	}
	if recent[0].Direction != DirectionIn || recent[1].Direction != DirectionOut {
		t.Fatalf("unexpected order: %+v", recent)
	}
	if recent[0].ID == "" || recent[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned")
	}
}
