// Package gate is the authorization checkpoint consulted before privileged
// operations (status transitions, approval resolution, payment verification).
// The Gate is a registry of per-resource policies; handlers ask it whether an
// actor may perform an action and receive a plain yes/no.
package gate

import "context"

// Action describes the kind of operation an actor wants to perform.
type Action string

const (
	ActionView       Action = "view"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionTransition Action = "transition"
	ActionApprove    Action = "approve"
	ActionVerify     Action = "verify"
)

// Policy defines authorization rules for a resource type.
// U is the subject type (uint actor IDs in this application).
type Policy[U any] interface {
	// Can returns true if the subject may perform action on resource.
	// For list/create checks resource may be nil.
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a plain function to the Policy interface.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}

// Gate is the central authorization checkpoint.
// U must be comparable so a zero-value subject can be rejected outright.
type Gate[U comparable] struct {
	policies map[string]Policy[U]
}

func New[U comparable]() *Gate[U] {
	return &Gate[U]{policies: make(map[string]Policy[U])}
}

// Register adds a policy for a resource type (e.g. "invoice").
// Overwrites any existing policy for that type.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize checks authorization and returns an error if denied.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	var zero U
	if user == zero {
		return ErrUnauthorized
	}
	p, ok := g.policies[resourceType]
	if !ok {
		return ErrNoPolicyDefined
	}
	if !p.Can(ctx, user, action, resource) {
		return ErrUnauthorized
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}
