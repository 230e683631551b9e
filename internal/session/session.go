// Package session carries the authenticated operator identity through the
// workflow as a read-only capability, rather than as ambient global state.
package session

import "context"

// Session is the read-only view of the authenticated operator that collaborator
// clients use to attach credentials to outbound requests.
type Session interface {
	// Token returns the bearer token for outbound requests.
	Token(ctx context.Context) (string, error)
	// OperatorID identifies the operator driving the workflow.
	OperatorID() string
}

// Static is a fixed-credential session, initialized at login and torn down at
// logout. It satisfies Session.
type Static struct {
	BearerToken string
	Operator    string
}

func (s *Static) Token(ctx context.Context) (string, error) {
	return s.BearerToken, nil
}

func (s *Static) OperatorID() string {
	return s.Operator
}

type ctxKey struct{}

// NewContext stores a session in the context.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session from the context, or nil when absent.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(ctxKey{}).(Session); ok {
		return s
	}
	return nil
}
