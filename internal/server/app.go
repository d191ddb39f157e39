// Package server initializes and runs the portal application: it opens the
// database pool, wires the SOAP command client and the domain services, and
// starts the HTTP server with graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dkosarev/acportal/internal/logging"
	"github.com/dkosarev/acportal/internal/server/accounts"
	"github.com/dkosarev/acportal/internal/server/characters"
	"github.com/dkosarev/acportal/internal/server/config"
	"github.com/dkosarev/acportal/internal/server/db"
	"github.com/dkosarev/acportal/internal/server/httpapi"
	"github.com/dkosarev/acportal/internal/server/shop"
	"github.com/dkosarev/acportal/internal/soap"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repoManager db.RepositoryManager
	httpServer  *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	rm, err := db.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	soapClient := soap.NewClient(c.SoapEndpoint, c.SoapUser, c.SoapPassword, c.SoapTimeout, logger)

	accountService := accounts.NewService(rm.Accounts(), c, logger)
	shopService := shop.NewService(rm.Conn(), soapClient, logger)
	characterService := characters.NewService(rm.Characters(), rm.Accounts())

	httpServer := httpapi.NewServer(c.EndpointAddrHTTP, accountService, shopService,
		characterService, soapClient, c.SecretKey, logger)

	return &App{config: c, logger: logger, repoManager: rm, httpServer: httpServer}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.repoManager.Close(); err != nil {
		app.logger.Error(ctx, "error closing db pool", "error", err.Error())
	}
}
