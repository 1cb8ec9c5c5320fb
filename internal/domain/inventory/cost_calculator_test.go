package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/docledger/internal/domain/inventory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestWeightedAverageCost(t *testing.T) {
	cases := []struct {
		name                       string
		stock, cost, qty, unitCost string
		want                       string
	}{
		{"promedio simple", "10", "5", "10", "7", "6.000"},
		{"sin stock previo toma el costo de entrada", "0", "99", "4", "2.5", "2.500"},
		{"entrada cero no cambia el costo", "10", "5", "0", "100", "5.000"},
		{"redondeo a 3 decimales", "3", "1", "1", "2", "1.250"},
		{"periodico", "2", "1", "1", "2", "1.333"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := inventory.WeightedAverageCost(d(tc.stock), d(tc.cost), d(tc.qty), d(tc.unitCost))
			assert.Equal(t, tc.want, got.StringFixed(3))
		})
	}
}
