package game

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyBuyOpensPosition(t *testing.T) {
	balance, pos, err := applyBuy(dec("100000"), nil, 10, dec("50"))
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("99500")), "balance %s", balance)
	assert.Equal(t, int64(10), pos.Quantity)
	assert.True(t, pos.AvgPrice.Equal(dec("50")))
}

func TestApplyBuyWeightedAverage(t *testing.T) {
	existing := &Position{Symbol: "RELI", Quantity: 10, AvgPrice: dec("100")}
	balance, pos, err := applyBuy(dec("10000"), existing, 10, dec("200"))
	require.NoError(t, err)

	// (100*10 + 200*10) / 20 = 150
	assert.True(t, pos.AvgPrice.Equal(dec("150")), "avg %s", pos.AvgPrice)
	assert.Equal(t, int64(20), pos.Quantity)
	assert.True(t, balance.Equal(dec("8000")))
}

func TestApplyBuyInsufficientFunds(t *testing.T) {
	before := dec("99")
	balance, _, err := applyBuy(before, nil, 1, dec("100"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, balance.Equal(before), "balance must not move on rejection")
}

func TestApplyBuyRejectsNonPositiveQuantity(t *testing.T) {
	_, _, err := applyBuy(dec("1000"), nil, 0, dec("10"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, _, err = applyBuy(dec("1000"), nil, -5, dec("10"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestApplySellLeavesAvgPrice(t *testing.T) {
	existing := &Position{Symbol: "TCS", Quantity: 10, AvgPrice: dec("120")}
	balance, pos, closed, err := applySell(dec("0"), existing, 4, dec("150"))
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, int64(6), pos.Quantity)
	assert.True(t, pos.AvgPrice.Equal(dec("120")), "sell must not touch the cost basis")
	assert.True(t, balance.Equal(dec("600")))
}

func TestApplySellToZeroClosesPosition(t *testing.T) {
	existing := &Position{Symbol: "TCS", Quantity: 5, AvgPrice: dec("80")}
	balance, _, closed, err := applySell(dec("100"), existing, 5, dec("90"))
	require.NoError(t, err)
	assert.True(t, closed)
	assert.True(t, balance.Equal(dec("550")))
}

func TestApplySellInsufficientShares(t *testing.T) {
	existing := &Position{Symbol: "TCS", Quantity: 3, AvgPrice: dec("80")}
	before := dec("100")
	balance, _, _, err := applySell(before, existing, 4, dec("90"))
	assert.ErrorIs(t, err, ErrInsufficientShares)
	assert.True(t, balance.Equal(before))

	_, _, _, err = applySell(before, nil, 1, dec("90"))
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestBuyThenSellAtSamePriceConservesBalance(t *testing.T) {
	start := dec("100000")
	price := dec("333.33")

	balance, pos, err := applyBuy(start, nil, 7, price)
	require.NoError(t, err)
	balance, _, closed, err := applySell(balance, &pos, 7, price)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.True(t, balance.Equal(start), "got %s", balance)
}
