package stockfolio

import (
	"github.com/shopspring/decimal"
)

// lot is a single purchase of an instrument, kept for FIFO cost basis.
type lot struct {
	Date     Date
	Quantity Quantity
	Cost     Money // total cost of the lot in reporting currency
}

type lots []lot

// fifoCostOfSelling computes the cost basis consumed by selling a quantity,
// oldest lots first.
func (l lots) fifoCostOfSelling(quantityToSell Quantity) Money {
	var costOfSoldShares Money

	for _, currentLot := range l {
		if currentLot.Quantity.GreaterThan(quantityToSell) {
			// Partial sale from this lot.
			costOfSoldPortion := currentLot.Cost.Mul(quantityToSell).Div(currentLot.Quantity)
			costOfSoldShares = costOfSoldShares.Add(costOfSoldPortion)
			return costOfSoldShares
		}
		// Full consumption of this lot.
		costOfSoldShares = costOfSoldShares.Add(currentLot.Cost)
		quantityToSell = quantityToSell.Sub(currentLot.Quantity)
	}
	return costOfSoldShares
}

// sell returns the lots remaining after selling a quantity, oldest first.
func (l lots) sell(quantityToSell Quantity) lots {
	var remaining lots

	for _, currentLot := range l {
		if quantityToSell.IsZero() {
			remaining = append(remaining, currentLot)
			continue
		}

		if currentLot.Quantity.GreaterThan(quantityToSell) {
			costOfSoldPortion := currentLot.Cost.Mul(quantityToSell).Div(currentLot.Quantity)
			remaining = append(remaining, lot{
				Date:     currentLot.Date,
				Quantity: currentLot.Quantity.Sub(quantityToSell),
				Cost:     currentLot.Cost.Sub(costOfSoldPortion),
			})
			quantityToSell = Q(decimal.Zero)
		} else {
			quantityToSell = quantityToSell.Sub(currentLot.Quantity)
		}
	}
	return remaining
}
