package book_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
	"fenrir/internal/model"
)

func order(trader uint64, side model.Side, price, amount, ts uint64) model.Order {
	return model.Order{TraderID: trader, Side: side, Price: price, Amount: amount, Timestamp: ts}
}

func TestCrossAtMakerPrice(t *testing.T) {
	b := book.New()
	b.AddOrder(order(2, model.Ask, 100, 5, 1))
	b.AddOrder(order(1, model.Bid, 110, 3, 2))

	trades := b.DrainTrades()
	require.Len(t, trades, 1)
	assert.Equal(t, model.Trade{BuyerID: 1, SellerID: 2, Price: 100, Amount: 3, Timestamp: 2}, trades[0])

	askPrice, ok := b.BestAskPrice()
	require.True(t, ok)
	assert.Equal(t, uint64(100), askPrice)

	_, ok = b.BestBidPrice()
	assert.False(t, ok)

	level, ok := b.Asks.Get(&book.PriceLevel{Price: 100})
	require.True(t, ok)
	require.Len(t, level.Orders, 1)
	assert.Equal(t, uint64(2), level.Orders[0].Amount)
}

func TestPartialSweepAcrossPrices(t *testing.T) {
	b := book.New()
	b.AddOrder(order(2, model.Ask, 100, 2, 1))
	b.AddOrder(order(3, model.Ask, 101, 2, 2))

	b.AddOrder(order(1, model.Bid, 101, 3, 3))

	trades := b.DrainTrades()
	require.Len(t, trades, 2)
	assert.Equal(t, model.Trade{BuyerID: 1, SellerID: 2, Price: 100, Amount: 2, Timestamp: 3}, trades[0])
	assert.Equal(t, model.Trade{BuyerID: 1, SellerID: 3, Price: 101, Amount: 1, Timestamp: 3}, trades[1])

	askPrice, ok := b.BestAskPrice()
	require.True(t, ok)
	assert.Equal(t, uint64(101), askPrice)
}

func TestTimePriorityAtEqualPrice(t *testing.T) {
	b := book.New()
	b.AddOrder(order(10, model.Bid, 100, 1, 1))
	b.AddOrder(order(11, model.Bid, 100, 1, 2))

	b.AddOrder(order(20, model.Ask, 100, 1, 3))

	trades := b.DrainTrades()
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(10), trades[0].BuyerID)

	level, ok := b.Bids.Get(&book.PriceLevel{Price: 100})
	require.True(t, ok)
	require.Len(t, level.Orders, 1)
	assert.Equal(t, uint64(11), level.Orders[0].TraderID)
}

func TestExactFillRemovesBothLevels(t *testing.T) {
	b := book.New()
	b.AddOrder(order(2, model.Ask, 100, 5, 1))
	b.AddOrder(order(1, model.Bid, 100, 5, 2))

	trades := b.DrainTrades()
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(5), trades[0].Amount)

	_, ok := b.BestAskPrice()
	assert.False(t, ok)
	_, ok = b.BestBidPrice()
	assert.False(t, ok)
}

func TestSelfTradeIsNotElided(t *testing.T) {
	b := book.New()
	b.AddOrder(order(7, model.Ask, 100, 5, 1))
	b.AddOrder(order(7, model.Bid, 100, 5, 2))

	trades := b.DrainTrades()
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(7), trades[0].BuyerID)
	assert.Equal(t, uint64(7), trades[0].SellerID)
}

func TestZeroAmountOrderIgnored(t *testing.T) {
	b := book.New()
	b.AddOrder(order(1, model.Bid, 100, 0, 1))

	_, ok := b.BestBidPrice()
	assert.False(t, ok)
	assert.Empty(t, b.DrainTrades())
}

func TestDrainTradesIsIdempotent(t *testing.T) {
	b := book.New()
	b.AddOrder(order(2, model.Ask, 100, 5, 1))
	b.AddOrder(order(1, model.Bid, 110, 3, 2))

	require.Len(t, b.DrainTrades(), 1)
	assert.Empty(t, b.DrainTrades())
}

func TestEmptyOppositeSideRests(t *testing.T) {
	b := book.New()
	b.AddOrder(order(1, model.Bid, 100, 5, 1))

	price, ok := b.BestBidPrice()
	require.True(t, ok)
	assert.Equal(t, uint64(100), price)
	assert.Empty(t, b.DrainTrades())
}
