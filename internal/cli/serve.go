package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/karvek/albion-scalper/internal/api"
	"github.com/karvek/albion-scalper/internal/api/handlers"
	"github.com/karvek/albion-scalper/internal/auth"
)

// serveAPI wires the HTTP dependencies and blocks until shutdown.
func serveAPI(ctx context.Context, app *app) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := api.Dependencies{
		Config:  app.cfg,
		Scanner: app.newScanner(app.cfg.Analysis.FetchHistory),
		Catalog: app.catalog,
	}

	if store, ok := app.store.(handlers.CacheStore); ok {
		deps.Cache = store
	}

	// Registration needs a signing secret; without one the user routes
	// simply stay unregistered.
	if app.cfg.Security.JWTSecret != "" {
		mailer := auth.NewSMTPMailer(app.cfg.SMTP, app.logger)
		svc, err := auth.NewService(app.cfg.Security, mailerOrNil(mailer), app.logger)
		if err != nil {
			return err
		}
		deps.Auth = svc
	} else {
		app.logger.Warn("JWT_SECRET not set, user registration endpoints disabled")
	}

	return api.Serve(ctx, deps, app.logger)
}

// mailerOrNil avoids handing a typed nil pointer to an interface field.
func mailerOrNil(m *auth.SMTPMailer) auth.Mailer {
	if m == nil {
		return nil
	}
	return m
}
