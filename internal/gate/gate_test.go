package gate

import (
	"context"
	"testing"
)

func allowOnly(action Action) Policy[uint] {
	return PolicyFunc[uint](func(_ context.Context, _ uint, a Action, _ any) bool {
		return a == action
	})
}

func TestAuthorize(t *testing.T) {
	g := New[uint]()
	g.Register("invoice", allowOnly(ActionView))

	if err := g.Authorize(context.Background(), 1, ActionView, "invoice", nil); err != nil {
		t.Fatalf("view should be allowed: %v", err)
	}
	if err := g.Authorize(context.Background(), 1, ActionDelete, "invoice", nil); err != ErrUnauthorized {
		t.Fatalf("delete should be denied, got %v", err)
	}
}

func TestAuthorizeZeroSubject(t *testing.T) {
	g := New[uint]()
	g.Register("invoice", allowOnly(ActionView))
	if err := g.Authorize(context.Background(), 0, ActionView, "invoice", nil); err != ErrUnauthorized {
		t.Fatalf("zero subject must be rejected, got %v", err)
	}
}

func TestAuthorizeUnknownResource(t *testing.T) {
	g := New[uint]()
	if err := g.Authorize(context.Background(), 1, ActionView, "ghost", nil); err != ErrNoPolicyDefined {
		t.Fatalf("want ErrNoPolicyDefined, got %v", err)
	}
	if g.Can(context.Background(), 1, ActionView, "ghost", nil) {
		t.Fatal("Can must be false for unknown resource")
	}
}
