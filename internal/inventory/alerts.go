package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AlertOutcome reports what OnStockChanged wrote.
type AlertOutcome struct {
	Opened    *StockAlert
	Refreshed bool
	Resolved  int64
}

// AlertEngine keeps at most one unresolved alert per product in step with the
// product's stock. It always writes through the caller's transaction.
type AlertEngine struct {
	refreshSnapshot bool
	now             func() time.Time
}

// AlertConfig tunes the engine.
type AlertConfig struct {
	// RefreshSnapshot updates kind and currentStock of an already open alert
	// when stock keeps falling. Off by default, leaving the first snapshot.
	RefreshSnapshot bool
}

// NewAlertEngine builds the engine.
func NewAlertEngine(cfg AlertConfig) *AlertEngine {
	return &AlertEngine{refreshSnapshot: cfg.RefreshSnapshot, now: func() time.Time { return time.Now().UTC() }}
}

func alertKindFor(stock int) AlertKind {
	if stock == 0 {
		return AlertOutOfStock
	}
	return AlertLowStock
}

// OnStockChanged opens, keeps or resolves alerts for product at newStock.
func (e *AlertEngine) OnStockChanged(ctx context.Context, tx AlertStore, product Product, newStock int) (AlertOutcome, error) {
	var out AlertOutcome
	if newStock > product.MinStock {
		n, err := tx.ResolveOpenAlerts(ctx, product.ID, e.now())
		if err != nil {
			return out, fmt.Errorf("inventory: resolve alerts: %w", err)
		}
		out.Resolved = n
		return out, nil
	}

	open, found, err := tx.FindOpenAlert(ctx, product.ID)
	if err != nil {
		return out, fmt.Errorf("inventory: find open alert: %w", err)
	}
	kind := alertKindFor(newStock)
	if found {
		if e.refreshSnapshot && (open.CurrentStock != newStock || open.Kind != kind) {
			if err := tx.RefreshAlert(ctx, open.ID, kind, newStock); err != nil {
				return out, fmt.Errorf("inventory: refresh alert: %w", err)
			}
			out.Refreshed = true
		}
		return out, nil
	}

	alert := StockAlert{
		ID:           uuid.NewString(),
		ProductID:    product.ID,
		Kind:         kind,
		CurrentStock: newStock,
		MinStock:     product.MinStock,
		CreatedAt:    e.now(),
	}
	if err := tx.InsertAlert(ctx, alert); err != nil {
		return out, fmt.Errorf("inventory: insert alert: %w", err)
	}
	out.Opened = &alert
	return out, nil
}
