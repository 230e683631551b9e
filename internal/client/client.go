// Package client holds the HTTP clients for the external collaborators the
// sale workflow orchestrates: vehicle registry, inventory, sales backend,
// and product catalog. Response-shape tolerance lives entirely here; the
// coordinator only ever sees normalized domain values and errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dfgutierrez/sigr-sales/internal/session"
)

// Doer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

type base struct {
	doer    Doer
	baseURL string
	sess    session.Session
}

// newRequest builds a JSON request against the collaborator, attaching the
// session's bearer token when a session is present.
func (b *base) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var req *http.Request
	var err error

	if payload != nil {
		body, mErr := json.Marshal(payload)
		if mErr != nil {
			return nil, fmt.Errorf("marshal request body: %w", mErr)
		}
		req, err = http.NewRequestWithContext(ctx, method, b.baseURL+path, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, b.baseURL+path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	sess := b.sess
	if ctxSess := session.FromContext(ctx); ctxSess != nil {
		sess = ctxSess
	}
	if sess != nil {
		token, tErr := sess.Token(ctx)
		if tErr != nil {
			return nil, fmt.Errorf("resolve session token: %w", tErr)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return req, nil
}
