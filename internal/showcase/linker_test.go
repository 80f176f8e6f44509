package showcase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

type ruleCounter map[string]int

func (c ruleCounter) IMEIMatch(rule string) { c[rule]++ }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func storedPhone(id, imei string) Item {
	return Item{
		ID:          id,
		Type:        "Smartphone",
		Brand:       "Samsung",
		Model:       "Galaxy S21",
		Price:       decimal.NewFromInt(300),
		Condition:   ConditionUsed,
		IMEI:        imei,
		StockStatus: StatusSold,
		Photos:      []string{"s21-front.jpg"},
		Description: "Nette staat",
		UpdatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestLinkPurchaseLineMatchesDigitSequence(t *testing.T) {
	repo := newMemoryRepo(storedPhone("item-1", "35-692211-123456-7"))
	metrics := ruleCounter{}
	linker := NewLinker(repo, quietLogger(), metrics, LinkerConfig{})

	res, err := linker.LinkPurchaseLine(context.Background(), PurchaseLine{
		IMEI:      "356922111234567",
		Model:     "Galaxy S21 5G",
		Condition: "open box",
		Price:     decimal.RequireFromString("275.00"),
		Storage:   "128GB",
		Color:     "Phantom Grey",
	})
	require.NoError(t, err)
	assert.Equal(t, "item-1", res.ItemID)
	assert.Equal(t, MatchLoose, res.MatchedBy)
	assert.False(t, res.Created)
	assert.Equal(t, 1, repo.count())

	it, err := repo.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, "Galaxy S21 5G", it.Model)
	assert.Equal(t, ConditionOpenBox, it.Condition)
	assert.Equal(t, "275", it.Price.String())
	assert.Equal(t, "128GB", it.Storage)
	assert.Equal(t, "Phantom Grey", it.Color)
	assert.Equal(t, "356922111234567", it.IMEI)
	assert.Equal(t, StatusAvailable, it.StockStatus)
	// Fields an invoice line does not carry are kept.
	assert.Equal(t, "Smartphone", it.Type)
	assert.Equal(t, "Samsung", it.Brand)
	assert.Equal(t, []string{"s21-front.jpg"}, it.Photos)
	assert.Equal(t, "Nette staat", it.Description)

	assert.Equal(t, 1, metrics["loose"])
}

func TestLinkPurchaseLineOverwritesBlankDeviceFields(t *testing.T) {
	stored := storedPhone("item-1", "356922111234567")
	stored.Storage = "256GB"
	stored.Color = "Zwart"
	stored.Condition = ConditionSealed
	repo := newMemoryRepo(stored)
	linker := NewLinker(repo, quietLogger(), nil, LinkerConfig{})

	_, err := linker.LinkPurchaseLine(context.Background(), PurchaseLine{
		IMEI:        "356922111234567",
		Description: "Galaxy S21 inruil",
		Condition:   "krasjes",
		Price:       decimal.NewFromInt(180),
	})
	require.NoError(t, err)

	it, err := repo.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, "Galaxy S21 inruil", it.Model)
	assert.Equal(t, ConditionUsed, it.Condition)
	assert.Empty(t, it.Storage)
	assert.Empty(t, it.Color)
	assert.Equal(t, "180", it.Price.String())
	assert.Equal(t, "Samsung", it.Brand)
	assert.Equal(t, []string{"s21-front.jpg"}, it.Photos)
}

func TestLinkPurchaseLinePrefersExactAndDigitsRules(t *testing.T) {
	repo := newMemoryRepo(
		storedPhone("exact", "35-692211-123456-7"),
		storedPhone("digits", "356922111234567"),
	)
	linker := NewLinker(repo, quietLogger(), nil, LinkerConfig{})
	ctx := context.Background()

	res, err := linker.LinkPurchaseLine(ctx, PurchaseLine{IMEI: "  35-692211-123456-7 "})
	require.NoError(t, err)
	assert.Equal(t, MatchExact, res.MatchedBy)
	assert.Equal(t, "exact", res.ItemID)

	_, res, err = linker.MarkSoldByIMEI(ctx, "35 692211 123456 7")
	require.NoError(t, err)
	assert.Equal(t, MatchDigits, res.MatchedBy)
	assert.Equal(t, "digits", res.ItemID)
}

func TestLinkPurchaseLineCreatesItemWithDefaults(t *testing.T) {
	repo := newMemoryRepo()
	linker := NewLinker(repo, quietLogger(), nil, LinkerConfig{})

	res, err := linker.LinkPurchaseLine(context.Background(), PurchaseLine{
		IMEI:        "490154203237518",
		Description: "iPhone 12 64GB",
		Price:       decimal.NewFromInt(180),
	})
	require.NoError(t, err)
	require.True(t, res.Created)
	assert.Equal(t, MatchNone, res.MatchedBy)

	it, err := repo.GetItem(context.Background(), res.ItemID)
	require.NoError(t, err)
	assert.Equal(t, DefaultBrand, it.Brand)
	assert.Equal(t, DefaultType, it.Type)
	assert.Equal(t, "iPhone 12 64GB", it.Model)
	assert.Equal(t, ConditionUsed, it.Condition)
	assert.Equal(t, StatusAvailable, it.StockStatus)
	assert.Empty(t, it.Photos)
	assert.NotNil(t, it.Photos)
}

func TestLinkPurchaseLineEmptyIMEIIsNoop(t *testing.T) {
	repo := newMemoryRepo()
	linker := NewLinker(repo, quietLogger(), nil, LinkerConfig{})

	res, err := linker.LinkPurchaseLine(context.Background(), PurchaseLine{IMEI: "   "})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 0, repo.count())
}

func TestLooseRuleNeedsMinimumDigits(t *testing.T) {
	repo := newMemoryRepo(storedPhone("item-1", "12-34-56-78-90"))
	linker := NewLinker(repo, quietLogger(), nil, LinkerConfig{})
	ctx := context.Background()

	// Seven digits: too short for the loose rule.
	_, _, err := linker.MarkSoldByIMEI(ctx, "3456789")
	var notFound *shared.DeviceNotFoundError
	require.ErrorAs(t, err, &notFound)

	// Eight digits in order inside the stored IMEI.
	_, res, err := linker.MarkSoldByIMEI(ctx, "34567890")
	require.NoError(t, err)
	assert.Equal(t, MatchLoose, res.MatchedBy)

	strict := NewLinker(repo, quietLogger(), nil, LinkerConfig{LooseMinDigits: 15})
	_, _, err = strict.MarkSoldByIMEI(ctx, "34567890")
	require.ErrorAs(t, err, &notFound)
}

func TestMarkSoldByIMEI(t *testing.T) {
	stored := storedPhone("item-1", "356922111234567")
	stored.StockStatus = StatusAvailable
	repo := newMemoryRepo(stored)
	linker := NewLinker(repo, quietLogger(), nil, LinkerConfig{})
	ctx := context.Background()

	it, res, err := linker.MarkSoldByIMEI(ctx, "356922111234567")
	require.NoError(t, err)
	assert.Equal(t, StatusSold, it.StockStatus)
	assert.Equal(t, MatchExact, res.MatchedBy)
	persisted, _ := repo.GetItem(ctx, "item-1")
	assert.Equal(t, StatusSold, persisted.StockStatus)
}

func TestMarkSoldByIMEIUnknownDevice(t *testing.T) {
	repo := newMemoryRepo(storedPhone("item-1", "356922111234567"))
	linker := NewLinker(repo, quietLogger(), nil, LinkerConfig{})

	_, _, err := linker.MarkSoldByIMEI(context.Background(), "999999999999999")
	var notFound *shared.DeviceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "999999999999999", notFound.IMEI)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMarkSoldByIMEIMissing(t *testing.T) {
	linker := NewLinker(newMemoryRepo(), quietLogger(), nil, LinkerConfig{})
	_, _, err := linker.MarkSoldByIMEI(context.Background(), " ")
	assert.ErrorIs(t, err, shared.ErrMissingIMEI)
}
