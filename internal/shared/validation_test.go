package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type saleInput struct {
	Method string      `json:"paymentMethod" validate:"required,oneof=cash pin"`
	Lines  []lineInput `json:"lines" validate:"required,min=1,dive"`
}

func TestValidateUsesJSONPaths(t *testing.T) {
	err := Validate(saleInput{Method: "card", Lines: []lineInput{{ProductID: "p1", Quantity: 1}, {Quantity: 0}}})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "must be one of: cash pin", valErr.Fields["paymentMethod"])
	assert.Equal(t, "is required", valErr.Fields["lines[1].productId"])
	assert.Equal(t, "must be greater than 0", valErr.Fields["lines[1].quantity"])
	assert.ErrorIs(t, err, ErrValidation)

	assert.NoError(t, Validate(saleInput{Method: "pin", Lines: []lineInput{{ProductID: "p1", Quantity: 2}}}))
}

func TestTypedErrorsMatchCategories(t *testing.T) {
	assert.ErrorIs(t, &ProductNotFoundError{ProductID: "p9", Line: 2}, ErrNotFound)
	assert.ErrorIs(t, &DeviceNotFoundError{IMEI: "999999999999999"}, ErrNotFound)
	assert.ErrorIs(t, &InsufficientStockError{ProductID: "p1", Available: 1, Requested: 3}, ErrInsufficientStock)
	assert.ErrorIs(t, &DuplicateKeyError{Field: "imei"}, ErrDuplicate)
	assert.ErrorIs(t, &MissingImeiError{}, ErrMissingIMEI)

	cause := errors.New("40001")
	txErr := &TransactionError{Op: "sales: create", Err: cause}
	assert.ErrorIs(t, txErr, ErrTransaction)
	assert.ErrorIs(t, txErr, cause)

	assert.Equal(t, `product "p9" not found (line 2)`, (&ProductNotFoundError{ProductID: "p9", Line: 2}).Error())
	assert.Equal(t, "validation failed: a: x; b: y", (&ValidationError{Fields: map[string]string{"b": "y", "a": "x"}}).Error())
}
