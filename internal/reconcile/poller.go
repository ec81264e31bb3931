package reconcile

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/procuroid/procurement-engine/internal/config"
	"github.com/procuroid/procurement-engine/internal/store"
	"github.com/procuroid/procurement-engine/pkg/elevenlabs"
)

// doneStatuses are conversation states with a final transcript available.
var doneStatuses = map[string]bool{
	"done":      true,
	"ended":     true,
	"completed": true,
	"failed":    true,
}

// Poller is the safety net behind webhook delivery: it periodically lists
// recent conversations and reconciles any that have no quotation record yet.
// Because the reconciler is idempotent on call id, a call that arrives via
// both webhook and poll still ends up with a single record.
type Poller struct {
	calls      elevenlabs.Client
	store      store.Store
	reconciler *Reconciler
	interval   time.Duration
	lookback   time.Duration
}

// NewPoller creates a transcript poller.
func NewPoller(calls elevenlabs.Client, st store.Store, reconciler *Reconciler, cfg config.PollConfig) *Poller {
	interval := time.Duration(cfg.IntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	lookback := time.Duration(cfg.LookbackMins) * time.Minute
	if lookback <= 0 {
		lookback = time.Hour
	}
	return &Poller{
		calls:      calls,
		store:      st,
		reconciler: reconciler,
		interval:   interval,
		lookback:   lookback,
	}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	zap.L().Info("poller: started",
		zap.Duration("interval", p.interval),
		zap.Duration("lookback", p.lookback),
	)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("poller: stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := p.Sweep(ctx); err != nil {
				zap.L().Warn("poller: sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep performs one poll pass: list recent conversations, fetch and
// reconcile any finished ones not seen before. Per-conversation failures are
// logged and skipped so one bad transcript never stalls the sweep.
func (p *Poller) Sweep(ctx context.Context) error {
	list, err := p.calls.ListConversations(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-p.lookback).Unix()
	reconciled := 0
	for _, conv := range list.Conversations {
		if conv.StartTimeUnix > 0 && conv.StartTimeUnix < cutoff {
			continue
		}
		if !doneStatuses[strings.ToLower(conv.Status)] {
			continue
		}

		existing, err := p.store.GetQuotationByCallID(ctx, conv.ConversationID)
		if err != nil {
			zap.L().Warn("poller: record lookup failed",
				zap.String("conversation_id", conv.ConversationID),
				zap.Error(err),
			)
			continue
		}
		if existing != nil {
			continue
		}

		detail, err := p.calls.GetConversation(ctx, conv.ConversationID)
		if err != nil {
			zap.L().Warn("poller: fetch conversation failed",
				zap.String("conversation_id", conv.ConversationID),
				zap.Error(err),
			)
			continue
		}

		transcript := FromConversation(detail)
		if _, err := p.reconciler.Reconcile(ctx, transcript, SourcePoll, false); err != nil {
			zap.L().Warn("poller: reconcile failed",
				zap.String("conversation_id", conv.ConversationID),
				zap.Error(err),
			)
			continue
		}
		reconciled++
	}

	if reconciled > 0 {
		zap.L().Info("poller: sweep complete", zap.Int("reconciled", reconciled))
	}
	return nil
}
