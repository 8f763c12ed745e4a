package export

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// StatusError reports a non-success response from a workspace API.
type StatusError struct {
	Target string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Target, e.Status, e.Body)
}

// Transient reports whether an export error is worth retrying: rate
// limiting, server-side failures, and network faults qualify. Client
// errors such as a bad token or a missing database do not.
func Transient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == http.StatusTooManyRequests || statusErr.Status >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
