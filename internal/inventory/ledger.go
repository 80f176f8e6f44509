package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Ledger applies stock mutations inside a transaction owned by the caller.
// The sales coordinator shares it so sale lines go through the same guard.
type Ledger struct {
	alerts *AlertEngine
	now    func() time.Time
}

// NewLedger builds a Ledger that runs alerts through engine.
func NewLedger(engine *AlertEngine) *Ledger {
	if engine == nil {
		engine = NewAlertEngine(AlertConfig{})
	}
	return &Ledger{alerts: engine, now: func() time.Time { return time.Now().UTC() }}
}

// Applied is the outcome of one ledger step.
type Applied struct {
	MutationResult
	Alerts AlertOutcome
}

// Apply locks the product, guards against negative stock, persists the new
// stock, appends the mutation and runs the alert engine. Nothing is written
// when it returns an error.
func (l *Ledger) Apply(ctx context.Context, tx TxRepository, in MutationInput) (Applied, error) {
	sign := in.Kind.Sign()
	if sign == 0 {
		return Applied{}, shared.NewValidationError("kind", "must be one of: purchase sale correction return")
	}
	if in.Quantity <= 0 {
		return Applied{}, shared.NewValidationError("quantity", "must be greater than 0")
	}

	product, err := tx.GetProductForUpdate(ctx, in.ProductID)
	if err != nil {
		return Applied{}, err
	}

	previous := product.Stock
	next := previous + sign*in.Quantity
	if next < 0 {
		return Applied{}, &shared.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   previous,
			Requested:   in.Quantity,
		}
	}

	now := l.now()
	if err := tx.SetProductStock(ctx, product.ID, next, now); err != nil {
		return Applied{}, err
	}
	mutation := StockMutation{
		ID:            uuid.NewString(),
		ProductID:     product.ID,
		Kind:          in.Kind,
		Quantity:      sign * in.Quantity,
		PreviousStock: previous,
		NewStock:      next,
		UnitCost:      in.UnitCost,
		Notes:         in.Notes,
		Reference:     in.Reference,
		CreatedAt:     now,
	}
	if err := tx.InsertMutation(ctx, mutation); err != nil {
		return Applied{}, err
	}

	outcome, err := l.alerts.OnStockChanged(ctx, tx, product, next)
	if err != nil {
		return Applied{}, err
	}

	product.Stock = next
	product.UpdatedAt = now
	return Applied{
		MutationResult: MutationResult{Product: product, Mutation: mutation},
		Alerts:         outcome,
	}, nil
}
