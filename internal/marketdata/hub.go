// Package marketdata implements the SPMC broadcast of ticker/trade
// messages out of the simulation worker. The hub is the single writer;
// any number of subscriber goroutines (the WebSocket fan-out) may read.
// A slow subscriber drops messages rather than stalling the worker, since
// the next ticker message always re-establishes state.
package marketdata

import "sync"

// MessageType discriminates the two wire message shapes.
type MessageType string

const (
	TypeTicker MessageType = "ticker"
	TypeTrade  MessageType = "trade"
)

// Message is the JSON shape written to each WebSocket frame, discriminated
// by Type. Price is shared; the other fields belong to one variant. The
// ticker fields are always encoded, so a trade frame also carries tick,
// best_bid and best_ask as 0, and a trade field whose value is 0 is omitted.
type Message struct {
	Type MessageType `json:"type"`

	// ticker fields
	Price   uint64 `json:"price"`
	Tick    uint64 `json:"tick"`
	BestBid uint64 `json:"best_bid"`
	BestAsk uint64 `json:"best_ask"`

	// trade fields (Quantity, BuyerID, SellerID only set on trade messages)
	Quantity uint64 `json:"quantity,omitempty"`
	BuyerID  uint64 `json:"buyer_id,omitempty"`
	SellerID uint64 `json:"seller_id,omitempty"`
}

// Ticker builds a ticker message.
func Ticker(price, tick, bestBid, bestAsk uint64) Message {
	return Message{Type: TypeTicker, Price: price, Tick: tick, BestBid: bestBid, BestAsk: bestAsk}
}

// TradeMsg builds a trade message.
func TradeMsg(price, quantity, buyerID, sellerID uint64) Message {
	return Message{Type: TypeTrade, Price: price, Quantity: quantity, BuyerID: buyerID, SellerID: sellerID}
}

const defaultRingCapacity = 100

// Hub fans Messages out to any number of subscribers. The zero value is not
// usable; construct with NewHub.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan Message]struct{}
	capacity    int
}

// NewHub returns a Hub whose per-subscriber channel has the given ring
// capacity (spec suggests 100).
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = defaultRingCapacity
	}
	return &Hub{
		subscribers: make(map[chan Message]struct{}),
		capacity:    capacity,
	}
}

// Subscribe registers a new listener. Callers must Unsubscribe when done.
func (h *Hub) Subscribe() chan Message {
	ch := make(chan Message, h.capacity)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (h *Hub) Unsubscribe(ch chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[ch]; !ok {
		return
	}
	delete(h.subscribers, ch)
	close(ch)
}

// Publish sends msg to every current subscriber. The producer never blocks:
// a subscriber whose buffer is full simply misses the message.
func (h *Hub) Publish(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// SubscriberCount reports the current number of listeners, mainly for
// metrics and tests.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
