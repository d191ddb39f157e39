// Package httpapi exposes the portal's REST surface. Handlers stay thin:
// decode, call a service, map sentinel errors to statuses and generic
// client-facing messages.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dkosarev/acportal/internal/logging"
	"github.com/dkosarev/acportal/internal/server/accounts"
	"github.com/dkosarev/acportal/internal/server/characters"
	"github.com/dkosarev/acportal/internal/server/shop"
	"github.com/dkosarev/acportal/internal/soap"
	"github.com/gorilla/mux"
)

// Commander runs a raw GM command; implemented by *soap.Client.
type Commander interface {
	Execute(ctx context.Context, command string) soap.Result
}

type Server struct {
	address    string
	accounts   *accounts.Service
	shop       *shop.Service
	characters *characters.Service
	commander  Commander
	jwtSecret  []byte
	logger     logging.Logger
}

func NewServer(address string, as *accounts.Service, ss *shop.Service, cs *characters.Service,
	commander Commander, secretKey string, logger logging.Logger) *Server {
	return &Server{
		address:    address,
		accounts:   as,
		shop:       ss,
		characters: cs,
		commander:  commander,
		jwtSecret:  []byte(secretKey),
		logger:     logger.With("module", "httpapi"),
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/change-password", s.handleChangePassword).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/points", s.handlePoints).Methods(http.MethodGet)
	authed.HandleFunc("/characters", s.handleCharacters).Methods(http.MethodGet)
	authed.HandleFunc("/shop/items", s.handleListItems).Methods(http.MethodGet)
	authed.HandleFunc("/shop/purchase", s.handlePurchase).Methods(http.MethodPost)
	authed.HandleFunc("/shop/history", s.handleHistory).Methods(http.MethodGet)

	gm := api.NewRoute().Subrouter()
	gm.Use(s.authMiddleware, s.gmMiddleware)
	gm.HandleFunc("/shop/items", s.handleAddItem).Methods(http.MethodPost)
	gm.HandleFunc("/shop/items/{id:[0-9]+}", s.handleUpdateItem).Methods(http.MethodPut)
	gm.HandleFunc("/shop/items/{id:[0-9]+}", s.handleDeleteItem).Methods(http.MethodDelete)
	gm.HandleFunc("/characters/unblock", s.handleUnblockCharacter).Methods(http.MethodPost)
	gm.HandleFunc("/admin/command", s.handleRemoteCommand).Methods(http.MethodPost)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
