package agent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/agent"
	"fenrir/internal/model"
)

func feed(a *agent.Agent, prices ...uint64) {
	for _, p := range prices {
		a.UpdateMarketData(p)
	}
}

func TestMeanReverterTriggersAskWhenAboveBand(t *testing.T) {
	a := agent.New(1, "mr", 1_000_000, 1_000, agent.Strategy{
		Kind: agent.MeanReverter, WindowSize: 3, StdDevMultiplier: 1.0,
	}, 1)
	feed(a, 100, 100, 100)

	order, ok := a.Act(200)
	require.True(t, ok)
	assert.Equal(t, model.Ask, order.Side)
	assert.Equal(t, uint64(200), order.Price)
}

func TestMeanReverterNoTriggerAtMean(t *testing.T) {
	a := agent.New(1, "mr", 1_000_000, 1_000, agent.Strategy{
		Kind: agent.MeanReverter, WindowSize: 3, StdDevMultiplier: 1.0,
	}, 1)
	feed(a, 100, 100, 100)

	_, ok := a.Act(100)
	assert.False(t, ok)
}

func TestMeanReverterSkipsBelowWindow(t *testing.T) {
	a := agent.New(1, "mr", 1_000_000, 1_000, agent.Strategy{
		Kind: agent.MeanReverter, WindowSize: 3, StdDevMultiplier: 1.0,
	}, 1)
	feed(a, 100, 100)

	_, ok := a.Act(500)
	assert.False(t, ok)
}

func TestTrendFollowerBidsOnUptrend(t *testing.T) {
	a := agent.New(1, "tf", 1_000_000, 1_000, agent.Strategy{Kind: agent.TrendFollower, WindowSize: 2}, 1)
	feed(a, 100, 100)

	order, ok := a.Act(110)
	require.True(t, ok)
	assert.Equal(t, model.Bid, order.Side)
	assert.Equal(t, uint64(110), order.Price)
}

func TestTrendFollowerAsksOnDowntrend(t *testing.T) {
	a := agent.New(1, "tf", 1_000_000, 1_000, agent.Strategy{Kind: agent.TrendFollower, WindowSize: 2}, 1)
	feed(a, 100, 100)

	order, ok := a.Act(90)
	require.True(t, ok)
	assert.Equal(t, model.Ask, order.Side)
}

func TestTrendFollowerSkipsOnFlat(t *testing.T) {
	a := agent.New(1, "tf", 1_000_000, 1_000, agent.Strategy{Kind: agent.TrendFollower, WindowSize: 2}, 1)
	feed(a, 100, 100)

	_, ok := a.Act(100)
	assert.False(t, ok)
}

func TestRandomWalkerNeverExceedsFunds(t *testing.T) {
	a := agent.New(1, "rw", 50, 0, agent.Strategy{Kind: agent.RandomWalker}, 42)

	for i := 0; i < 200; i++ {
		order, ok := a.Act(10_000)
		if !ok {
			continue
		}
		if order.Side == model.Bid {
			t.Fatalf("agent with cash 50 should never bid at price ~10000")
		}
	}
}

func TestMarketMakerQuotesAroundMidWithFloorSpread(t *testing.T) {
	a := agent.New(1, "mm", 1_000_000, 1_000, agent.Strategy{Kind: agent.MarketMaker, SpreadBps: 1}, 7)

	order, ok := a.Act(1_000)
	require.True(t, ok)
	// spread_bps=1 -> floor(1000*1/10000)=0, clamp to 10
	if order.Side == model.Bid {
		assert.Equal(t, uint64(990), order.Price)
	} else {
		assert.Equal(t, uint64(1010), order.Price)
	}
}

func TestZeroPriceShortCircuits(t *testing.T) {
	a := agent.New(1, "rw", 1_000_000, 1_000, agent.Strategy{Kind: agent.RandomWalker}, 1)
	_, ok := a.Act(0)
	assert.False(t, ok)
}

func TestOnTradeAppliesBuyerAndSeller(t *testing.T) {
	buyer := agent.New(1, "b", 1_000, 0, agent.Strategy{}, 1)
	seller := agent.New(2, "s", 0, 10, agent.Strategy{}, 1)

	trade := model.Trade{BuyerID: 1, SellerID: 2, Price: 100, Amount: 2}
	buyer.OnTrade(trade)
	seller.OnTrade(trade)

	assert.Equal(t, uint64(800), buyer.Cash)
	assert.Equal(t, uint64(2), buyer.Inventory)
	assert.Equal(t, uint64(200), seller.Cash)
	assert.Equal(t, uint64(8), seller.Inventory)
}

func TestOnTradeDefensiveNoOpOnInsufficientFunds(t *testing.T) {
	buyer := agent.New(1, "b", 50, 0, agent.Strategy{}, 1)
	trade := model.Trade{BuyerID: 1, SellerID: 2, Price: 100, Amount: 2}

	buyer.OnTrade(trade)

	assert.Equal(t, uint64(50), buyer.Cash)
	assert.Equal(t, uint64(0), buyer.Inventory)
}

func TestPriceHistoryBounded(t *testing.T) {
	a := agent.New(1, "rw", 1_000_000, 1_000, agent.Strategy{Kind: agent.RandomWalker}, 1)
	for i := uint64(1); i <= 60; i++ {
		a.UpdateMarketData(i)
	}
	assert.Len(t, a.PriceHistory, 50)
	assert.Equal(t, uint64(60), a.PriceHistory[len(a.PriceHistory)-1])
}
