package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// Gateway issues outbound API calls on behalf of conversation steps.
//
// Implementations must preserve the error taxonomy: a 419 response
// unwraps to domain.ErrCsrfExpired, any other non-2xx surfaces as an HTTP
// error, and network failures (including the mandatory timeout) surface as
// transport errors. The interpreter's expiry branching depends on this
// distinction being kept verbatim.
// headers carries extra request headers from the step's api block and may
// be nil.
type Gateway interface {
	Invoke(ctx context.Context, method, url string, payload map[string]any, headers map[string]string, token string) (*domain.APIResult, error)
}
