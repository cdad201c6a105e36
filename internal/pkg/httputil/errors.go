package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/statuspage/internal/pkg/ctxlog"
)

// ErrorStatus assigns an HTTP status and client message to a sentinel error.
type ErrorStatus struct {
	Err     error
	Status  int
	Message string
}

// StatusOf returns the first entry of table that err matches.
func StatusOf(err error, table []ErrorStatus) (ErrorStatus, bool) {
	for _, e := range table {
		if errors.Is(err, e.Err) {
			return e, true
		}
	}
	return ErrorStatus{}, false
}

// HandleError writes err as a JSON error response.
// Errors missing from table are logged and answered with 500.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, table []ErrorStatus) {
	if e, ok := StatusOf(err, table); ok {
		Error(w, e.Status, e.Message)
		return
	}

	ctxlog.FromContext(ctx).Error("request failed", "error", err)
	Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
