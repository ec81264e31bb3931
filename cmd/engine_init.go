package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/procuroid/procurement-engine/internal/analysis"
	"github.com/procuroid/procurement-engine/internal/directory"
	"github.com/procuroid/procurement-engine/internal/dispatch"
	"github.com/procuroid/procurement-engine/internal/reconcile"
	"github.com/procuroid/procurement-engine/internal/store"
	"github.com/procuroid/procurement-engine/internal/workflow"
	anthropicpkg "github.com/procuroid/procurement-engine/pkg/anthropic"
	"github.com/procuroid/procurement-engine/pkg/elevenlabs"
)

// engineEnv bundles the wired-up components shared by the serve, dispatch,
// and poll commands.
type engineEnv struct {
	Store       store.Store
	Calls       elevenlabs.Client
	Classifier  *analysis.Classifier
	Coordinator *workflow.Coordinator
	Reconciler  *reconcile.Reconciler
	Poller      *reconcile.Poller
}

// Close releases resources held by the engine environment.
func (e *engineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEngine sets up the store, the API clients, and the full workflow wiring.
// Callers should defer env.Close().
func initEngine(ctx context.Context) (*engineEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (PROCURE_ANTHROPIC_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	callsClient := elevenlabs.NewClient(elevenlabs.Config{
		APIKey:           cfg.Calling.ElevenLabsKey,
		AgentID:          cfg.Calling.AgentID,
		TwilioAccountSID: cfg.Calling.TwilioAccountSID,
		TwilioAuthToken:  cfg.Calling.TwilioAuthToken,
		FromNumber:       cfg.Calling.FromNumber,
		InboundEndpoint:  cfg.Calling.InboundEndpoint,
	}, elevenlabs.WithBaseURL(cfg.Calling.ElevenLabsBase))

	classifier := analysis.NewClassifier(anthropicClient, cfg.Anthropic, cfg.Extraction)
	dispatcher := dispatch.NewDispatcher(callsClient, cfg.Dispatch)
	dir := directory.NewService(st)
	coordinator := workflow.NewCoordinator(st, dir, dispatcher)

	// The coordinator doubles as the reconciler's advancer: each reconciled
	// record nudges its workflow toward pending_approval.
	reconciler := reconcile.NewReconciler(st, classifier, coordinator)
	poller := reconcile.NewPoller(callsClient, st, reconciler, cfg.Poll)

	zap.L().Info("engine initialized",
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("model", cfg.Anthropic.Model),
	)

	return &engineEnv{
		Store:       st,
		Calls:       callsClient,
		Classifier:  classifier,
		Coordinator: coordinator,
		Reconciler:  reconciler,
		Poller:      poller,
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "procure.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
