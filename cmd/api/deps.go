package main

import (
	"log"

	"financefly/internal/domain/connect"
	"financefly/internal/infrastructure/pluggy"
	"financefly/internal/infrastructure/postgres"
	httphandlers "financefly/internal/interfaces/http"
	"financefly/internal/shared/config"
	"financefly/internal/shared/session"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB       *postgres.DB
	Sessions *session.Store

	ConnectHandler *httphandlers.ConnectHandler
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	if err := db.EnsureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	pluggyClient := pluggy.NewClient(cfg.Pluggy.ClientID, cfg.Pluggy.ClientSecret)
	pluggyClient.SetBaseURL(cfg.Pluggy.BaseURL)

	clientRepo := postgres.NewClientRepository(db)
	flow := connect.NewFlow(pluggyClient, clientRepo)
	sessions := session.NewStore(cfg.Session.TTL)

	connectHandler := httphandlers.NewConnectHandler(flow, sessions, cfg.TLS.Enabled)

	return &Dependencies{
		DB:             db,
		Sessions:       sessions,
		ConnectHandler: connectHandler,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Sessions != nil {
		d.Sessions.Stop()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
