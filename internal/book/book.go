// Package book implements the price-time priority central limit order book.
// Price levels are kept in two tidwall/btree indices the way the teacher
// exchange engine keeps its PriceLevels, one sorted descending for bids and
// one ascending for asks, with each level holding its resting orders in
// arrival order so FIFO-within-a-level falls out of ordinary slice append.
package book

import (
	"github.com/tidwall/btree"

	"fenrir/internal/model"
)

// PriceLevel groups every resting order at a single price, oldest first.
type PriceLevel struct {
	Price  uint64
	Orders []*model.Order
}

type priceLevels = btree.BTreeG[*PriceLevel]

// OrderBook is the matching engine for a single instrument.
type OrderBook struct {
	Bids *priceLevels
	Asks *priceLevels

	trades []model.Trade
}

// New returns an empty order book.
func New() *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price // highest bid first
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price // lowest ask first
	})
	return &OrderBook{Bids: bids, Asks: asks}
}

// BestBidPrice peeks the top of the bid side.
func (b *OrderBook) BestBidPrice() (uint64, bool) {
	level, ok := b.Bids.Min()
	if !ok {
		return 0, false
	}
	return level.Price, true
}

// BestAskPrice peeks the top of the ask side.
func (b *OrderBook) BestAskPrice() (uint64, bool) {
	level, ok := b.Asks.Min()
	if !ok {
		return 0, false
	}
	return level.Price, true
}

// AddOrder attempts to match order against the opposite side immediately;
// any residual rests on its own side. Zero-amount orders are ignored. The
// book never fails: every input is matched, rested or ignored.
func (b *OrderBook) AddOrder(order model.Order) {
	if order.Amount == 0 {
		return
	}
	switch order.Side {
	case model.Bid:
		b.matchBid(order)
	case model.Ask:
		b.matchAsk(order)
	}
}

func (b *OrderBook) matchBid(bid model.Order) {
	for bid.Amount > 0 {
		level, ok := b.Asks.MinMut()
		if !ok || bid.Price < level.Price {
			break
		}
		b.fillAgainst(level, &bid, bid.TraderID, true)
		if len(level.Orders) == 0 {
			b.Asks.Delete(level)
		}
	}
	if bid.Amount > 0 {
		b.rest(b.Bids, bid)
	}
}

func (b *OrderBook) matchAsk(ask model.Order) {
	for ask.Amount > 0 {
		level, ok := b.Bids.MinMut()
		if !ok || ask.Price > level.Price {
			break
		}
		b.fillAgainst(level, &ask, ask.TraderID, false)
		if len(level.Orders) == 0 {
			b.Bids.Delete(level)
		}
	}
	if ask.Amount > 0 {
		b.rest(b.Asks, ask)
	}
}

// fillAgainst consumes resting orders at level, oldest first, against the
// incoming order until either side is exhausted. takerIsBuyer tells us how
// to orient the emitted trade's buyer/seller fields.
func (b *OrderBook) fillAgainst(level *PriceLevel, incoming *model.Order, takerTraderID uint64, takerIsBuyer bool) {
	for len(level.Orders) > 0 && incoming.Amount > 0 {
		maker := level.Orders[0]
		qty := min(incoming.Amount, maker.Amount)

		var trade model.Trade
		if takerIsBuyer {
			trade = model.Trade{
				BuyerID:   takerTraderID,
				SellerID:  maker.TraderID,
				Price:     level.Price,
				Amount:    qty,
				Timestamp: incoming.Timestamp,
			}
		} else {
			trade = model.Trade{
				BuyerID:   maker.TraderID,
				SellerID:  takerTraderID,
				Price:     level.Price,
				Amount:    qty,
				Timestamp: incoming.Timestamp,
			}
		}
		b.trades = append(b.trades, trade)

		incoming.Amount -= qty
		maker.Amount -= qty
		if maker.Amount == 0 {
			level.Orders = level.Orders[1:]
		}
	}
}

func (b *OrderBook) rest(levels *priceLevels, order model.Order) {
	level, ok := levels.GetMut(&PriceLevel{Price: order.Price})
	if ok {
		level.Orders = append(level.Orders, &order)
		return
	}
	levels.Set(&PriceLevel{Price: order.Price, Orders: []*model.Order{&order}})
}

// DrainTrades returns and clears all trades produced since the last drain,
// oldest match first. A second call with no intervening AddOrder returns
// an empty slice.
func (b *OrderBook) DrainTrades() []model.Trade {
	if len(b.trades) == 0 {
		return nil
	}
	trades := b.trades
	b.trades = nil
	return trades
}
