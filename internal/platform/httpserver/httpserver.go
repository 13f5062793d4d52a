package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 60 * time.Second
	// writeSlack leaves room to encode the response after the unit of work
	// has used its full transaction budget.
	writeSlack = 10 * time.Second
)

// New builds the API server. The write deadline tracks txTimeout so a command
// that commits near its deadline can still answer the caller, and net/http's
// own errors go to log at warn level.
func New(addr string, handler http.Handler, txTimeout time.Duration, log *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      txTimeout + writeSlack,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}
}
