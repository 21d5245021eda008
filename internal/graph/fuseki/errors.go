package fuseki

import (
	"fmt"
	"strings"

	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
)

// StoreError is the single error kind for a failed triplestore call: either a
// transport failure (Status == 0) or a non-2xx answer the client does not
// treat as success.
type StoreError struct {
	Op      string
	Dataset string
	Status  int
	Body    string
	Err     error
}

func (e *StoreError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fuseki %s", e.Op)
	if e.Dataset != "" {
		fmt.Fprintf(&b, " %s", e.Dataset)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		fmt.Fprintf(&b, ": %s", body)
	}
	return b.String()
}

func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{perrors.ErrStoreUnavailable}
	}
	return []error{perrors.ErrStoreUnavailable, e.Err}
}

func (e *StoreError) HTTPStatusCode() int { return e.Status }
