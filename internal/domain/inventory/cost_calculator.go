// Package inventory contiene la lógica pura de valoración de inventario.
package inventory

import (
	"github.com/jhoicas/docledger/internal/domain/money"
	"github.com/shopspring/decimal"
)

// WeightedAverageCost costo promedio ponderado tras una entrada de stock.
// nuevo = (stock * costo + entrada * costoEntrada) / (stock + entrada), redondeado a 3 decimales.
// Con stock previo no positivo el costo pasa a ser el de la entrada.
func WeightedAverageCost(currentStock, currentCost, qtyIn, unitCostIn decimal.Decimal) decimal.Decimal {
	if !qtyIn.IsPositive() {
		return currentCost
	}
	if !currentStock.IsPositive() {
		return money.RoundMoney(unitCostIn)
	}
	sum := currentStock.Add(qtyIn)
	num := currentStock.Mul(currentCost).Add(qtyIn.Mul(unitCostIn))
	return money.RoundMoney(num.Div(sum))
}
