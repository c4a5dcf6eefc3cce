package middleware

import (
	"net/http"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/logger"
	"github.com/bitechdev/RecordSpec/pkg/metrics"
)

const panicMiddlewareMethodName = "PanicMiddleware"

// PanicRecovery recovers from panics in next. The panic is logged, reported
// to the error tracker with the request context and counted, and the client
// gets a 500 with an InternalError body.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rcv := recover(); rcv != nil {
				if rcv == http.ErrAbortHandler {
					panic(rcv)
				}
				metrics.GetProvider().RecordPanic(panicMiddlewareMethodName)
				err := logger.HandlePanicContext(r.Context(), panicMiddlewareMethodName, rcv)
				writeError(w, http.StatusInternalServerError, common.KindInternal, err.Error())
			}
		}()
		next.ServeHTTP(w, r)
	})
}
