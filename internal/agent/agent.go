// Package agent implements the trading population: per-agent balance state
// plus the four strategy variants (noise, trend, mean-revert, market-maker)
// that decide what, if anything, to order each tick.
//
// Strategies are represented as a single tagged struct rather than an
// interface hierarchy, per the spec's re-architecture guidance: state
// unique to a strategy (window sizes, multipliers, spread) lives inside the
// variant and Act switches on Kind.
package agent

import (
	"math"
	"math/rand"

	"fenrir/internal/model"
)

// Kind discriminates the strategy variant an Agent runs.
type Kind int

const (
	RandomWalker Kind = iota
	TrendFollower
	MeanReverter
	MarketMaker
)

// Strategy carries the Kind plus whatever parameters that Kind needs. Only
// the fields relevant to Kind are meaningful.
type Strategy struct {
	Kind             Kind
	WindowSize       int     // TrendFollower, MeanReverter
	StdDevMultiplier float64 // MeanReverter
	SpreadBps        uint64  // MarketMaker
}

const maxHistory = 50
const orderAmount = 1

// Agent is one simulated trader. Cash and Inventory are never negative; an
// agent never places an order it could not fully fund or deliver.
type Agent struct {
	ID           uint64
	Name         string
	Cash         uint64
	Inventory    uint64
	Strategy     Strategy
	PriceHistory []uint64 // oldest first, bounded to maxHistory

	rng *rand.Rand
}

// New creates an agent with its own seeded PRNG so strategy draws are
// reproducible in tests without a shared global source.
func New(id uint64, name string, cash, inventory uint64, strategy Strategy, seed int64) *Agent {
	return &Agent{
		ID:        id,
		Name:      name,
		Cash:      cash,
		Inventory: inventory,
		Strategy:  strategy,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Reset restores the agent's cash and inventory to the simulation's initial
// per-agent endowment. PriceHistory is intentionally left untouched; see
// DESIGN.md for why Reset does not clear it.
func (a *Agent) Reset(cash, inventory uint64) {
	a.Cash = cash
	a.Inventory = inventory
}

// UpdateMarketData appends an observed price, evicting the oldest entry
// once the history exceeds maxHistory. A zero price is not observable and
// is ignored.
func (a *Agent) UpdateMarketData(price uint64) {
	if price == 0 {
		return
	}
	a.PriceHistory = append(a.PriceHistory, price)
	if len(a.PriceHistory) > maxHistory {
		a.PriceHistory = a.PriceHistory[1:]
	}
}

// OnTrade settles a trade the agent was a party to. The debit side is
// defensive: act() is expected to have pre-checked affordability, but a
// mismatch here silently no-ops the debit rather than going negative. In a
// self-trade the agent is both buyer and seller, so both sides apply and
// cancel out.
func (a *Agent) OnTrade(trade model.Trade) {
	if trade.BuyerID == a.ID {
		cost := trade.Price * trade.Amount
		if a.Cash >= cost {
			a.Cash -= cost
			a.Inventory += trade.Amount
		}
	}
	if trade.SellerID == a.ID {
		a.Cash += trade.Price * trade.Amount
		if a.Inventory >= trade.Amount {
			a.Inventory -= trade.Amount
		}
	}
}

// Act asks the agent's strategy whether to place an order this tick. The
// returned order always has Amount 1 and Timestamp 0 — the scheduler stamps
// the real tick and trader id before submitting to the book.
func (a *Agent) Act(currentPrice uint64) (model.Order, bool) {
	if currentPrice == 0 {
		return model.Order{}, false
	}
	switch a.Strategy.Kind {
	case RandomWalker:
		return a.actRandomWalker(currentPrice)
	case TrendFollower:
		return a.actTrendFollower(currentPrice)
	case MeanReverter:
		return a.actMeanReverter(currentPrice)
	case MarketMaker:
		return a.actMarketMaker(currentPrice)
	}
	return model.Order{}, false
}

func (a *Agent) noisyQuote(currentPrice uint64) uint64 {
	noise := a.rng.Intn(41) - 20 // U{-20..20}
	quote := int64(currentPrice) + int64(noise)
	if quote < 1 {
		quote = 1
	}
	return uint64(quote)
}

func (a *Agent) actRandomWalker(currentPrice uint64) (model.Order, bool) {
	if a.rng.Float64() < 0.5 {
		if a.Cash >= currentPrice {
			return a.bid(a.noisyQuote(currentPrice)), true
		}
		return model.Order{}, false
	}
	if a.Inventory >= orderAmount {
		return a.ask(a.noisyQuote(currentPrice)), true
	}
	return model.Order{}, false
}

func (a *Agent) actTrendFollower(currentPrice uint64) (model.Order, bool) {
	w := a.Strategy.WindowSize
	if len(a.PriceHistory) < w {
		return model.Order{}, false
	}
	old := a.PriceHistory[len(a.PriceHistory)-w]

	switch {
	case currentPrice > old:
		if a.Cash >= currentPrice {
			return a.bid(currentPrice), true
		}
	case currentPrice < old:
		if a.Inventory >= orderAmount {
			return a.ask(currentPrice), true
		}
	}
	return model.Order{}, false
}

func (a *Agent) actMeanReverter(currentPrice uint64) (model.Order, bool) {
	w := a.Strategy.WindowSize
	if len(a.PriceHistory) < w {
		return model.Order{}, false
	}

	mean, stdDev := moments(a.PriceHistory)
	upper := mean + a.Strategy.StdDevMultiplier*stdDev
	lower := mean - a.Strategy.StdDevMultiplier*stdDev
	price := float64(currentPrice)

	switch {
	case price > upper:
		if a.Inventory >= orderAmount {
			return a.ask(currentPrice), true
		}
	case price < lower:
		if a.Cash >= currentPrice {
			return a.bid(currentPrice), true
		}
	}
	return model.Order{}, false
}

// moments computes the mean and population standard deviation over the
// entire slice, per spec.md's note that the MeanReverter threshold check
// uses WindowSize but the moments are taken over all stored history.
func moments(history []uint64) (mean, stdDev float64) {
	var sum float64
	for _, p := range history {
		sum += float64(p)
	}
	mean = sum / float64(len(history))

	var variance float64
	for _, p := range history {
		diff := float64(p) - mean
		variance += diff * diff
	}
	variance /= float64(len(history))
	return mean, math.Sqrt(variance)
}

func (a *Agent) actMarketMaker(currentPrice uint64) (model.Order, bool) {
	spread := currentPrice * a.Strategy.SpreadBps / 10_000
	if spread < 10 {
		spread = 10
	}

	if a.rng.Float64() < 0.5 {
		bidPrice := int64(currentPrice) - int64(spread)
		if bidPrice < 1 {
			bidPrice = 1
		}
		if a.Cash >= uint64(bidPrice) {
			return a.bid(uint64(bidPrice)), true
		}
		return model.Order{}, false
	}
	if a.Inventory >= orderAmount {
		return a.ask(currentPrice + spread), true
	}
	return model.Order{}, false
}

func (a *Agent) bid(price uint64) model.Order {
	return model.Order{TraderID: a.ID, Side: model.Bid, Price: price, Amount: orderAmount}
}

func (a *Agent) ask(price uint64) model.Order {
	return model.Order{TraderID: a.ID, Side: model.Ask, Price: price, Amount: orderAmount}
}
