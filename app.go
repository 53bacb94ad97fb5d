package main

import (
	"context"
	"log"

	"herbtrace/batching"
	"herbtrace/ledger"
	"herbtrace/models"
	"herbtrace/store"
	"herbtrace/validation"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// syncBackend is the slice of the store the ledger sync path reads and
// writes, narrowed so the sweep is testable without a deployment.
type syncBackend interface {
	UnsyncedCollections(ctx context.Context, limit int64) ([]models.CollectionEvent, error)
	MarkSynced(ctx context.Context, id, txID string) error
	MarkSyncFailed(ctx context.Context, id, message string) error
}

type App struct {
	cfg       Config
	mongo     *mongo.Client
	store     *store.Mongo
	sync      syncBackend
	validator *validation.Engine
	lifecycle *batching.Lifecycle
	dialer    *ledger.Dialer // nil when the ledger is disabled

	// ledgerFor opens a ledger handle signed as the given identity. Close it
	// after use; the gRPC transport underneath is shared and survives.
	ledgerFor func(identity string) (ledger.Client, error)
}

func newApp(ctx context.Context, cfg Config) (*App, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	st, err := store.New(ctx, client, cfg.MongoDB)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:       cfg,
		mongo:     client,
		store:     st,
		sync:      st,
		validator: validation.NewEngine(st),
		lifecycle: batching.NewLifecycle(st),
	}
	app.ledgerFor = app.connectLedger

	if cfg.LedgerEnabled {
		dialer, err := ledger.NewDialer(ledger.Config{
			Endpoint:    cfg.LedgerEndpoint,
			GatewayPeer: cfg.LedgerGatewayPeer,
			TLSCertPath: cfg.LedgerTLSCert,
			MSPID:       cfg.LedgerMSPID,
			Channel:     cfg.LedgerChannel,
			Chaincode:   cfg.LedgerChaincode,
			IdentityDir: cfg.LedgerIdentityDir,
			Timeout:     cfg.LedgerTimeout,
		})
		if err != nil {
			return nil, err
		}
		app.dialer = dialer
	} else {
		log.Println("ledger disabled, running cache-only")
	}

	return app, nil
}

func (a *App) connectLedger(identity string) (ledger.Client, error) {
	if a.dialer == nil {
		return ledger.Disabled{}, nil
	}
	return a.dialer.ForIdentity(identity)
}

func (a *App) close(ctx context.Context) {
	if a.dialer != nil {
		_ = a.dialer.Close()
	}
	_ = a.mongo.Disconnect(ctx)
}
