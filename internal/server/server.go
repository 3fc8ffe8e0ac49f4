package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"docattach/internal/filestore"
	"docattach/internal/store"
)

const (
	apiTokenEnvKey         = "DOCATTACH_API_TOKEN"
	allowRemoteEnvKey      = "DOCATTACH_ALLOW_REMOTE"
	readHeaderTimeout      = 5 * time.Second
	readTimeout            = 60 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	shutdownTimeout        = 10 * time.Second
	uploadConcurrencyLimit = 8

	authFailureMaxAttempts = 5
	authFailureWindow      = 5 * time.Minute
	authFailureBlockFor    = 5 * time.Minute
)

// Store is the persistence surface the server needs.
type Store interface {
	store.DocumentStore
	store.FileStore
	store.AuthStore
}

// Options carries runtime settings read from config.
type Options struct {
	MaxUploadBytes     int64
	MultipartMaxMemory int64
	AllowedOrigins     []string
}

// Server wraps HTTP handlers for the docattach API.
type Server struct {
	addr           string
	store          Store
	documents      *DocumentService
	attachments    *AttachmentService
	authService    *AuthService
	logger         *slog.Logger
	apiToken       string
	authLimiter    *authFailureLimiter
	uploadLimiter  chan struct{}
	multipartMem   int64
	allowedOrigins []string
}

// New creates a new server instance.
func New(addr string, st Store, files filestore.Store, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MultipartMaxMemory <= 0 {
		opts.MultipartMaxMemory = 8 << 20
	}

	documents := NewDocumentService(st, st)
	return &Server{
		addr:           addr,
		store:          st,
		documents:      documents,
		attachments:    NewAttachmentService(documents, st, files, opts.MaxUploadBytes, logger),
		authService:    NewAuthService(st),
		logger:         logger,
		apiToken:       strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		authLimiter:    newAuthFailureLimiter(authFailureMaxAttempts, authFailureWindow, authFailureBlockFor),
		uploadLimiter:  make(chan struct{}, uploadConcurrencyLimit),
		multipartMem:   opts.MultipartMaxMemory,
		allowedOrigins: opts.AllowedOrigins,
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// ListenAndServe starts the HTTP server and blocks until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log().Info("shutting down server", "addr", s.addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		s.writeErrorReq(w, r, http.StatusTooManyRequests, tooManyRequests(fmt.Errorf("too many concurrent %s requests", name)))
		return false
	}
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
