package app

import (
	"fmt"

	"bytehub/internal/notify"
	"bytehub/internal/storage"
	"bytehub/internal/store"
	"bytehub/internal/verify"
)

// SessionStore issues and revokes session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// Config holds runtime configuration for the core application.
// Store, Sessions and Objects are injected; the constructor only falls back
// to the Postgres store when DatabaseURL is set.
type Config struct {
	DatabaseURL string

	Store    store.Store
	Sessions SessionStore
	Objects  storage.ObjectStore
	Notifier *notify.Notifier
	Verifier *verify.Store
	Mailer   Mailer
}

// App is the core application service wiring together the document store,
// media storage and domain logic.
type App struct {
	store    store.Store
	sessions SessionStore
	objects  storage.ObjectStore
	notifier *notify.Notifier
	verifier *verify.Store
	mailer   Mailer
}

// New constructs the application from injected dependencies.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("store required (inject one or set database URL)")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if cfg.Objects == nil {
		return nil, fmt.Errorf("object store required")
	}
	mailer := cfg.Mailer
	if mailer == nil {
		mailer = NewLogMailer()
	}
	return &App{
		store:    dataStore,
		sessions: cfg.Sessions,
		objects:  cfg.Objects,
		notifier: cfg.Notifier,
		verifier: cfg.Verifier,
		mailer:   mailer,
	}, nil
}
