// Package inventorytest provides an in-memory inventory store for tests of
// inventory and the modules that compose ledger writes.
package inventorytest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/inventory"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Store keeps products, mutations and alerts in maps. WithTx serialises
// callers and restores the previous state when the callback fails.
type Store struct {
	mu        sync.Mutex
	products  map[string]inventory.Product
	mutations []inventory.StockMutation
	alerts    []inventory.StockAlert
	sold      map[string]bool

	// FailMutationFor makes InsertMutation fail for the given product id.
	FailMutationFor string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{products: make(map[string]inventory.Product), sold: make(map[string]bool)}
}

// AddProduct seeds a product as-is, bypassing the ledger.
func (s *Store) AddProduct(p inventory.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.products[p.ID] = p
}

// MarkSold makes DeleteProduct refuse id, standing in for sale_lines rows.
func (s *Store) MarkSold(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sold[id] = true
}

// Product returns the stored product.
func (s *Store) Product(id string) (inventory.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

// Mutations returns the ledger of id in insertion order.
func (s *Store) Mutations(id string) []inventory.StockMutation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.StockMutation
	for _, m := range s.mutations {
		if m.ProductID == id {
			out = append(out, m)
		}
	}
	return out
}

// OpenAlerts returns the unresolved alerts of id.
func (s *Store) OpenAlerts(id string) []inventory.StockAlert {
	return s.alertsWhere(func(a inventory.StockAlert) bool { return a.ProductID == id && !a.IsResolved })
}

// AllAlerts returns every alert of id.
func (s *Store) AllAlerts(id string) []inventory.StockAlert {
	return s.alertsWhere(func(a inventory.StockAlert) bool { return a.ProductID == id })
}

func (s *Store) alertsWhere(keep func(inventory.StockAlert) bool) []inventory.StockAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.StockAlert
	for _, a := range s.alerts {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

type snapshot struct {
	products  map[string]inventory.Product
	mutations []inventory.StockMutation
	alerts    []inventory.StockAlert
}

func (s *Store) snapshot() snapshot {
	products := make(map[string]inventory.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	return snapshot{
		products:  products,
		mutations: append([]inventory.StockMutation(nil), s.mutations...),
		alerts:    append([]inventory.StockAlert(nil), s.alerts...),
	}
}

func (s *Store) restore(snap snapshot) {
	s.products = snap.products
	s.mutations = snap.mutations
	s.alerts = snap.alerts
}

// WithTx implements inventory.RepositoryPort.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Atomic(func(tx *Tx) error { return fn(ctx, tx) })
}

// Atomic runs fn against the store and rolls back on error. The caller must
// already serialise access; composite test repositories use it to share one
// unit of work with their own state.
func (s *Store) Atomic(fn func(tx *Tx) error) error {
	snap := s.snapshot()
	if err := fn(&Tx{store: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// GetProduct implements inventory.RepositoryPort.
func (s *Store) GetProduct(_ context.Context, id string) (inventory.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return inventory.Product{}, &shared.ProductNotFoundError{ProductID: id}
	}
	return p, nil
}

// ListProducts implements inventory.RepositoryPort.
func (s *Store) ListProducts(_ context.Context, filter inventory.ProductFilter) ([]inventory.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.Product
	for _, p := range s.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.LowStock && p.Stock > p.MinStock {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return window(out, filter.Page), len(out), nil
}

// DeleteProduct implements inventory.RepositoryPort.
func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return &shared.ProductNotFoundError{ProductID: id}
	}
	if s.sold[id] {
		return shared.NewValidationError("id", "product has sales history, deactivate it instead")
	}
	delete(s.products, id)
	return nil
}

// ListMutations implements inventory.RepositoryPort.
func (s *Store) ListMutations(_ context.Context, productID string, page shared.Page) ([]inventory.StockMutation, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.StockMutation
	for i := len(s.mutations) - 1; i >= 0; i-- {
		if s.mutations[i].ProductID == productID {
			out = append(out, s.mutations[i])
		}
	}
	return window(out, page), len(out), nil
}

// ListAlerts implements inventory.RepositoryPort.
func (s *Store) ListAlerts(_ context.Context, filter inventory.AlertFilter) ([]inventory.StockAlert, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.StockAlert
	for _, a := range s.alerts {
		if filter.ProductID != "" && a.ProductID != filter.ProductID {
			continue
		}
		if filter.Unresolved && a.IsResolved {
			continue
		}
		out = append(out, a)
	}
	return window(out, filter.Page), len(out), nil
}

func window[T any](items []T, page shared.Page) []T {
	if page.Limit <= 0 {
		return items
	}
	if page.Offset >= len(items) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}

// Tx implements inventory.TxRepository on top of Store.
type Tx struct {
	store *Store
}

var _ inventory.TxRepository = (*Tx)(nil)

// GetProductForUpdate implements inventory.TxRepository.
func (t *Tx) GetProductForUpdate(_ context.Context, id string) (inventory.Product, error) {
	p, ok := t.store.products[id]
	if !ok {
		return inventory.Product{}, &shared.ProductNotFoundError{ProductID: id}
	}
	return p, nil
}

// SetProductStock implements inventory.TxRepository.
func (t *Tx) SetProductStock(_ context.Context, id string, stock int, at time.Time) error {
	p, ok := t.store.products[id]
	if !ok {
		return &shared.ProductNotFoundError{ProductID: id}
	}
	if stock < 0 {
		return fmt.Errorf("inventorytest: stock check constraint violated for %s", id)
	}
	p.Stock = stock
	p.UpdatedAt = at
	t.store.products[id] = p
	return nil
}

// InsertMutation implements inventory.TxRepository.
func (t *Tx) InsertMutation(_ context.Context, m inventory.StockMutation) error {
	if t.store.FailMutationFor != "" && t.store.FailMutationFor == m.ProductID {
		return fmt.Errorf("inventorytest: injected failure for %s", m.ProductID)
	}
	t.store.mutations = append(t.store.mutations, m)
	return nil
}

// InsertProduct implements inventory.TxRepository.
func (t *Tx) InsertProduct(_ context.Context, p inventory.Product) error {
	if err := t.checkBarcode(p); err != nil {
		return err
	}
	t.store.products[p.ID] = p
	return nil
}

// UpdateProduct implements inventory.TxRepository.
func (t *Tx) UpdateProduct(_ context.Context, p inventory.Product) error {
	current, ok := t.store.products[p.ID]
	if !ok {
		return &shared.ProductNotFoundError{ProductID: p.ID}
	}
	if err := t.checkBarcode(p); err != nil {
		return err
	}
	p.Stock = current.Stock
	t.store.products[p.ID] = p
	return nil
}

func (t *Tx) checkBarcode(p inventory.Product) error {
	if p.Barcode == nil {
		return nil
	}
	for id, other := range t.store.products {
		if id != p.ID && other.Barcode != nil && *other.Barcode == *p.Barcode {
			return &shared.DuplicateKeyError{Field: "barcode", Value: *p.Barcode}
		}
	}
	return nil
}

// FindOpenAlert implements inventory.AlertStore.
func (t *Tx) FindOpenAlert(_ context.Context, productID string) (inventory.StockAlert, bool, error) {
	for _, a := range t.store.alerts {
		if a.ProductID == productID && !a.IsResolved {
			return a, true, nil
		}
	}
	return inventory.StockAlert{}, false, nil
}

// InsertAlert implements inventory.AlertStore. It mirrors the partial unique
// index on unresolved alerts.
func (t *Tx) InsertAlert(_ context.Context, alert inventory.StockAlert) error {
	for _, a := range t.store.alerts {
		if a.ProductID == alert.ProductID && !a.IsResolved {
			return &shared.DuplicateKeyError{Field: "stock_alerts.product_id", Value: alert.ProductID}
		}
	}
	t.store.alerts = append(t.store.alerts, alert)
	return nil
}

// RefreshAlert implements inventory.AlertStore.
func (t *Tx) RefreshAlert(_ context.Context, id string, kind inventory.AlertKind, currentStock int) error {
	for i := range t.store.alerts {
		if t.store.alerts[i].ID == id && !t.store.alerts[i].IsResolved {
			t.store.alerts[i].Kind = kind
			t.store.alerts[i].CurrentStock = currentStock
		}
	}
	return nil
}

// ResolveOpenAlerts implements inventory.AlertStore.
func (t *Tx) ResolveOpenAlerts(_ context.Context, productID string, at time.Time) (int64, error) {
	var n int64
	for i := range t.store.alerts {
		if t.store.alerts[i].ProductID == productID && !t.store.alerts[i].IsResolved {
			resolvedAt := at
			t.store.alerts[i].IsResolved = true
			t.store.alerts[i].ResolvedAt = &resolvedAt
			n++
		}
	}
	return n, nil
}

// ResolveAlert implements inventory.TxRepository.
func (t *Tx) ResolveAlert(_ context.Context, id string, at time.Time) (inventory.StockAlert, bool, error) {
	for i := range t.store.alerts {
		if t.store.alerts[i].ID != id {
			continue
		}
		if t.store.alerts[i].IsResolved {
			return t.store.alerts[i], false, nil
		}
		resolvedAt := at
		t.store.alerts[i].IsResolved = true
		t.store.alerts[i].ResolvedAt = &resolvedAt
		return t.store.alerts[i], true, nil
	}
	return inventory.StockAlert{}, false, fmt.Errorf("inventorytest: alert %q: %w", id, shared.ErrNotFound)
}
