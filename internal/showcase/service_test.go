package showcase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

type memoryAssets struct {
	deleted []string
	fail    map[string]bool
}

func (a *memoryAssets) Delete(_ context.Context, ref string) error {
	if a.fail[ref] {
		return errors.New("disk unavailable")
	}
	a.deleted = append(a.deleted, ref)
	return nil
}

func validInput() ItemInput {
	price := decimal.NewFromInt(449)
	health := 91
	return ItemInput{
		Type:          "Smartphone",
		Brand:         "Apple",
		Model:         "iPhone 13",
		Storage:       "128GB",
		Price:         &price,
		Color:         "Midnight",
		BatteryHealth: &health,
		Condition:     ConditionUsed,
		IMEI:          "353912110000001",
		Photos:        []string{"a.jpg", "b.jpg"},
	}
}

func TestCreateDefaultsStatusAndRejectsBadInput(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, quietLogger())
	ctx := context.Background()

	it, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, it.StockStatus)
	assert.NotEmpty(t, it.ID)

	_, err = svc.Create(ctx, validInput())
	var dup *shared.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "imei", dup.Field)

	bad := validInput()
	health := 120
	bad.BatteryHealth = &health
	_, err = svc.Create(ctx, bad)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "batteryHealth")

	bad = validInput()
	bad.IMEI = "n/a"
	_, err = svc.Create(ctx, bad)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "imei")

	bad = validInput()
	negative := decimal.NewFromInt(-1)
	bad.Price = &negative
	_, err = svc.Create(ctx, bad)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "price")
}

func TestDeleteCollectsOnlyUnreferencedPhotos(t *testing.T) {
	repo := newMemoryRepo(
		Item{ID: "one", Photos: []string{"shared.jpg", "own.jpg"}},
		Item{ID: "two", Photos: []string{"shared.jpg"}},
	)
	assets := &memoryAssets{}
	svc := NewService(repo, assets, nil, quietLogger())

	require.NoError(t, svc.Delete(context.Background(), "one"))
	assert.Equal(t, []string{"own.jpg"}, assets.deleted)

	require.NoError(t, svc.Delete(context.Background(), "two"))
	assert.Equal(t, []string{"own.jpg", "shared.jpg"}, assets.deleted)
}

func TestDeleteSwallowsAssetFailures(t *testing.T) {
	repo := newMemoryRepo(Item{ID: "one", Photos: []string{"broken.jpg", "fine.jpg"}})
	assets := &memoryAssets{fail: map[string]bool{"broken.jpg": true}}
	svc := NewService(repo, assets, nil, quietLogger())

	require.NoError(t, svc.Delete(context.Background(), "one"))
	assert.Equal(t, []string{"fine.jpg"}, assets.deleted)
	assert.Equal(t, 0, repo.count())
}

func TestDeleteUnknownItem(t *testing.T) {
	svc := NewService(newMemoryRepo(), &memoryAssets{}, nil, quietLogger())
	err := svc.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateCollectsRemovedPhotos(t *testing.T) {
	repo := newMemoryRepo()
	assets := &memoryAssets{}
	svc := NewService(repo, assets, nil, quietLogger())
	ctx := context.Background()

	it, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Photos = []string{"b.jpg", "c.jpg"}
	updated, err := svc.Update(ctx, it.ID, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.jpg", "c.jpg"}, updated.Photos)
	assert.Equal(t, []string{"a.jpg"}, assets.deleted)
}

func TestPublicReadsHideIMEI(t *testing.T) {
	repo := newMemoryRepo(Item{ID: "one", IMEI: "353912110000001", StockStatus: StatusAvailable})
	svc := NewService(repo, nil, nil, quietLogger())
	ctx := context.Background()

	public, err := svc.Get(ctx, "one", false)
	require.NoError(t, err)
	assert.Empty(t, public.IMEI)

	admin, err := svc.Get(ctx, "one", true)
	require.NoError(t, err)
	assert.Equal(t, "353912110000001", admin.IMEI)

	listing, err := svc.List(ctx, Filter{}, false)
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)
	assert.Empty(t, listing.Items[0].IMEI)

	// Masking must not leak into the stored item.
	stored, _ := repo.GetItem(ctx, "one")
	assert.Equal(t, "353912110000001", stored.IMEI)
}
