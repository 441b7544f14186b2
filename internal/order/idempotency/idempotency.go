package idempotency

import (
	"net/http"
	"strings"
)

const Header = "Idempotency-Key"

const maxKeyLength = 128

// Record is what a finished checkout leaves behind under its key. An empty
// OrderID means the first attempt is still running.
type Record struct {
	OrderID string `json:"orderId"`
	State   string `json:"state"`
}

func (r Record) InProgress() bool {
	return r.OrderID == ""
}

// KeyFromRequest returns the trimmed header value, or "" when absent or
// longer than allowed.
func KeyFromRequest(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get(Header))
	if len(key) > maxKeyLength {
		return ""
	}
	return key
}

// Scoped namespaces a client key by user so two buyers cannot collide.
func Scoped(userID, key string) string {
	return "bazaar:idem:" + userID + ":" + key
}
