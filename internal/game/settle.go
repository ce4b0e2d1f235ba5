package game

import "github.com/shopspring/decimal"

// applyBuy settles a buy against a cash balance and an optional existing
// position (nil when the user holds none of the symbol). It returns the
// new balance and the post-trade position. Validation failures leave the
// inputs untouched and return a sentinel error.
//
// Cost basis is the weighted average of the old basis and the fill:
//
//	newAvg = (oldAvg*oldQty + price*qty) / (oldQty + qty)
func applyBuy(balance decimal.Decimal, pos *Position, qty int64, price decimal.Decimal) (decimal.Decimal, Position, error) {
	if qty <= 0 {
		return balance, Position{}, ErrInvalidQuantity
	}
	qtyDec := decimal.NewFromInt(qty)
	total := price.Mul(qtyDec)
	if balance.LessThan(total) {
		return balance, Position{}, ErrInsufficientFunds
	}

	next := Position{Quantity: qty, AvgPrice: price}
	if pos != nil {
		next.UserID = pos.UserID
		next.Symbol = pos.Symbol
		oldQtyDec := decimal.NewFromInt(pos.Quantity)
		next.Quantity = pos.Quantity + qty
		oldCost := pos.AvgPrice.Mul(oldQtyDec)
		next.AvgPrice = oldCost.Add(total).Div(decimal.NewFromInt(next.Quantity))
	}
	return balance.Sub(total), next, nil
}

// applySell settles a sell against a cash balance and the existing
// position. The average price never moves on a sell; selling the final
// share closes the position (closed=true, and the returned position is
// the zero value).
func applySell(balance decimal.Decimal, pos *Position, qty int64, price decimal.Decimal) (decimal.Decimal, Position, bool, error) {
	if qty <= 0 {
		return balance, Position{}, false, ErrInvalidQuantity
	}
	if pos == nil || pos.Quantity < qty {
		return balance, Position{}, false, ErrInsufficientShares
	}
	total := price.Mul(decimal.NewFromInt(qty))
	newBalance := balance.Add(total)

	remaining := pos.Quantity - qty
	if remaining == 0 {
		return newBalance, Position{}, true, nil
	}
	next := *pos
	next.Quantity = remaining
	return newBalance, next, false, nil
}
