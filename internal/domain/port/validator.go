package port

import (
	"context"
	"net/http"
)

// RequestValidator is the port for authenticating requests sent on behalf of a terminal
type RequestValidator interface {
	ValidateRequest(ctx context.Context, r *http.Request, body []byte) error
}
