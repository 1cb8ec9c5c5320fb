package validation_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/pkg/validation"
)

type lineRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
}

type docRequest struct {
	ClientID string        `json:"client_id" validate:"required"`
	Currency string        `json:"currency" validate:"omitempty,len=3"`
	Lines    []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func TestStruct_Valido(t *testing.T) {
	req := docRequest{
		ClientID: "c-1",
		Lines:    []lineRequest{{ProductID: "p-1", Quantity: decimal.NewFromInt(2)}},
	}
	assert.NoError(t, validation.Struct(req))
}

func TestStruct_CamposInvalidos(t *testing.T) {
	req := docRequest{
		Currency: "EURO",
		Lines:    []lineRequest{{ProductID: "p-1", Quantity: decimal.Zero}},
	}
	err := validation.Struct(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	fields := map[string]string{}
	for _, f := range validation.Details(err) {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "campo requerido", fields["client_id"])
	assert.Equal(t, "debe tener 3 caracteres", fields["currency"])
	assert.Equal(t, "debe ser mayor que 0", fields["lines[0].quantity"])
}

func TestStruct_DecimalNegativo(t *testing.T) {
	req := lineRequest{ProductID: "p-1", Quantity: decimal.RequireFromString("-0.5")}
	err := validation.Struct(req)
	require.Error(t, err)
	details := validation.Details(err)
	require.Len(t, details, 1)
	assert.Equal(t, "quantity", details[0].Field)
}
