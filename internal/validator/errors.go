package validator

import (
	"fmt"
	"time"

	"github.com/chatguard/chatguard/internal/threat"
)

// RateLimitError rejects a message because its identity exhausted the
// rate window. ResetAt is the earliest instant a retry can succeed.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry at %s", e.ResetAt.Format(time.RFC3339))
}

// ContentError rejects a message whose content matched a threat
// category. Evidence is a short matched snippet for logs and CLI
// output; transport layers must not echo it back to clients.
type ContentError struct {
	Category threat.Category
	Evidence string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("prohibited content (%s)", e.Category)
}
