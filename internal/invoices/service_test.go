package invoices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/showcase"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	invoices map[string]Invoice
	seq      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{invoices: make(map[string]Invoice)}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]Invoice, len(m.invoices))
	for k, v := range m.invoices {
		snapshot[k] = v
	}
	// Like a sequence, seq is not rolled back.
	if err := fn(ctx, &memoryTx{repo: m}); err != nil {
		m.invoices = snapshot
		return err
	}
	return nil
}

func (m *memoryRepo) GetInvoice(_ context.Context, id string) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, fmt.Errorf("invoice %q: %w", id, shared.ErrNotFound)
	}
	return inv, nil
}

func (m *memoryRepo) ListInvoices(_ context.Context, filter Filter) ([]Invoice, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Invoice
	for _, inv := range m.invoices {
		if filter.Type != "" && inv.Type != filter.Type {
			continue
		}
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (m *memoryRepo) DeleteInvoice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[id]; !ok {
		return fmt.Errorf("invoice %q: %w", id, shared.ErrNotFound)
	}
	delete(m.invoices, id)
	return nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetInvoiceForUpdate(_ context.Context, id string) (Invoice, error) {
	inv, ok := t.repo.invoices[id]
	if !ok {
		return Invoice{}, fmt.Errorf("invoice %q: %w", id, shared.ErrNotFound)
	}
	return inv, nil
}

func (t *memoryTx) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	t.repo.seq++
	inv.Number = t.repo.seq
	t.repo.invoices[inv.ID] = inv
	return inv.Number, nil
}

func (t *memoryTx) UpdateInvoice(_ context.Context, inv Invoice) error {
	inv.Lines = t.repo.invoices[inv.ID].Lines
	t.repo.invoices[inv.ID] = inv
	return nil
}

func (t *memoryTx) ReplaceLines(_ context.Context, id string, lines []Line) error {
	inv := t.repo.invoices[id]
	inv.Lines = append([]Line(nil), lines...)
	t.repo.invoices[id] = inv
	return nil
}

type fakeLinker struct {
	purchases []showcase.PurchaseLine
	sold      []string
	failIMEI  map[string]error
}

func (f *fakeLinker) LinkPurchaseLine(_ context.Context, line showcase.PurchaseLine) (showcase.LinkResult, error) {
	f.purchases = append(f.purchases, line)
	if err := f.failIMEI[line.IMEI]; err != nil {
		return showcase.LinkResult{}, err
	}
	return showcase.LinkResult{ItemID: "item-" + line.IMEI, IMEI: line.IMEI, MatchedBy: showcase.MatchNone, Created: true}, nil
}

func (f *fakeLinker) MarkSoldByIMEI(_ context.Context, imei string) (showcase.Item, showcase.LinkResult, error) {
	f.sold = append(f.sold, imei)
	if err := f.failIMEI[imei]; err != nil {
		return showcase.Item{}, showcase.LinkResult{}, err
	}
	return showcase.Item{ID: "item-" + imei}, showcase.LinkResult{ItemID: "item-" + imei, IMEI: imei, MatchedBy: showcase.MatchExact}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestService(linker LinkerPort) (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	svc := NewService(repo, linker, nil, quietLogger(), time.UTC)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	return svc, repo
}

func purchaseInput() Input {
	return Input{
		Type:     TypePurchase,
		Customer: CustomerInput{Name: "J. de Vries", Phone: "0612345678"},
		Lines: []LineInput{
			{Description: "iPhone 12", IMEI: " 356922111234567 ", Model: "iPhone 12", Price: price("210.00"), Condition: "gebruikt", Storage: "64GB"},
			{Description: "Oplader", Price: price("9.95")},
			{Description: "Galaxy S20", IMEI: "490154203237518", Price: price("150.50"), Color: "Blue"},
		},
	}
}

func TestSavePurchaseNumbersAndLinksEachIMEILine(t *testing.T) {
	linker := &fakeLinker{}
	svc, _ := newTestService(linker)
	ctx := context.Background()

	res, err := svc.Save(ctx, "", purchaseInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Invoice.Number)
	assert.Equal(t, "370.45", res.Invoice.Total.StringFixed(2))
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), res.Invoice.Date)
	assert.Empty(t, res.LinkErrors)
	require.Len(t, res.Links, 2)

	require.Len(t, linker.purchases, 2)
	first := linker.purchases[0]
	assert.Equal(t, "356922111234567", first.IMEI)
	assert.Equal(t, "iPhone 12", first.Model)
	assert.Equal(t, "gebruikt", first.Condition)
	assert.Equal(t, "64GB", first.Storage)
	assert.Equal(t, "210", first.Price.String())
	assert.Equal(t, "490154203237518", linker.purchases[1].IMEI)
	assert.Equal(t, "Blue", linker.purchases[1].Color)

	second, err := svc.Save(ctx, "", purchaseInput())
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Invoice.Number)
}

func TestSaveSucceedsWhenLinkingFails(t *testing.T) {
	linker := &fakeLinker{failIMEI: map[string]error{"490154203237518": errors.New("showcase: write item: connection reset")}}
	svc, repo := newTestService(linker)

	res, err := svc.Save(context.Background(), "", purchaseInput())
	require.NoError(t, err)
	require.Len(t, res.Links, 1)
	require.Len(t, res.LinkErrors, 1)
	assert.Equal(t, 3, res.LinkErrors[0].Line)
	assert.Equal(t, "490154203237518", res.LinkErrors[0].IMEI)

	stored, err := repo.GetInvoice(context.Background(), res.Invoice.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 3)
}

func TestSaveSaleMarksFirstIMEISold(t *testing.T) {
	linker := &fakeLinker{}
	svc, _ := newTestService(linker)

	in := Input{Type: TypeSale, Lines: []LineInput{
		{Description: "Hoesje", Price: price("12.50")},
		{Description: "iPhone 12", IMEI: "356922111234567", Price: price("349")},
		{Description: "iPhone 11", IMEI: "356922111234999", Price: price("249")},
	}}
	res, err := svc.Save(context.Background(), "", in)
	require.NoError(t, err)
	assert.Equal(t, []string{"356922111234567"}, linker.sold)
	assert.Empty(t, linker.purchases)
	require.Len(t, res.Links, 1)
	assert.Equal(t, showcase.MatchExact, res.Links[0].MatchedBy)
}

func TestSaveSaleReportsUnknownDevice(t *testing.T) {
	linker := &fakeLinker{failIMEI: map[string]error{"999999999999999": &shared.DeviceNotFoundError{IMEI: "999999999999999"}}}
	svc, _ := newTestService(linker)

	res, err := svc.Save(context.Background(), "", Input{Type: TypeSale, Lines: []LineInput{
		{Description: "Toestel", IMEI: "999999999999999", Price: price("100")},
	}})
	require.NoError(t, err)
	require.Len(t, res.LinkErrors, 1)
	var notFound *shared.DeviceNotFoundError
	assert.ErrorAs(t, res.LinkErrors[0], &notFound)
}

func TestSaveSaleWithoutIMEIReportsMissingIMEI(t *testing.T) {
	linker := &fakeLinker{}
	svc, _ := newTestService(linker)

	res, err := svc.Save(context.Background(), "", Input{Type: TypeSale, Lines: []LineInput{
		{Description: "Screenprotector", IMEI: "  ", Price: price("15")},
	}})
	require.NoError(t, err)
	assert.Empty(t, linker.sold)
	require.Len(t, res.LinkErrors, 1)
	assert.ErrorIs(t, res.LinkErrors[0], shared.ErrMissingIMEI)
}

func TestSaveRepairSkipsLinking(t *testing.T) {
	linker := &fakeLinker{}
	svc, _ := newTestService(linker)

	res, err := svc.Save(context.Background(), "", Input{Type: TypeRepair, Lines: []LineInput{
		{Description: "Scherm vervangen", IMEI: "356922111234567", Price: price("89")},
	}})
	require.NoError(t, err)
	assert.Empty(t, linker.sold)
	assert.Empty(t, linker.purchases)
	assert.Empty(t, res.LinkErrors)
}

func TestSaveUpdateKeepsNumberAndReplacesLines(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()

	created, err := svc.Save(ctx, "", purchaseInput())
	require.NoError(t, err)

	in := purchaseInput()
	in.Lines = in.Lines[:1]
	in.Date = "2026-03-01"
	updated, err := svc.Save(ctx, created.Invoice.ID, in)
	require.NoError(t, err)
	assert.Equal(t, created.Invoice.Number, updated.Invoice.Number)
	assert.Equal(t, "210.00", updated.Invoice.Total.StringFixed(2))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), updated.Invoice.Date)

	stored, err := repo.GetInvoice(ctx, created.Invoice.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 1)

	_, err = svc.Save(ctx, "missing", in)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSaveValidation(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		in    Input
		field string
	}{
		{"no lines", Input{Type: TypePurchase}, "lines"},
		{"bad type", Input{Type: "credit", Lines: []LineInput{{Description: "x", Price: price("1")}}}, "type"},
		{"missing price", Input{Type: TypeRepair, Lines: []LineInput{{Description: "x"}}}, "lines[0].price"},
		{"negative price", Input{Type: TypeRepair, Lines: []LineInput{{Description: "x", Price: price("-5")}}}, "lines[0].price"},
		{"bad date", Input{Type: TypeRepair, Date: "14-03-2026", Lines: []LineInput{{Description: "x", Price: price("5")}}}, "date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Save(ctx, "", tc.in)
			var verr *shared.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestDeleteInvoice(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	res, err := svc.Save(ctx, "", purchaseInput())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, res.Invoice.ID))

	_, err = svc.Get(ctx, res.Invoice.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, res.Invoice.ID), shared.ErrNotFound)
}
