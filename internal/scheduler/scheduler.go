// Package scheduler runs the discrete-time tick loop: it drains the
// control-plane queue, shuffles and advances the agent population, submits
// their orders to the book, settles resulting trades, and emits market
// data. It is the single owner of all engine state; nothing else may touch
// the book, the agents or SimulationState concurrently.
package scheduler

import (
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/agent"
	"fenrir/internal/book"
	"fenrir/internal/control"
	"fenrir/internal/marketdata"
	"fenrir/internal/metrics"
	"fenrir/internal/model"
	"fenrir/internal/tradelog"
)

const (
	initialPrice      = 10_000
	initialCash       = 1_000_000
	initialInventory  = 1_000
	syntheticEarnings = 999_999
	syntheticTariffs  = 999_998
	syntheticRugPull  = 999_997
	syntheticWhale    = 999_996
)

// Config carries the timing parameters the scheduler needs that are not
// themselves simulation state. BroadcastCap is not read by the scheduler;
// the hub's capacity is fixed when the hub is constructed.
type Config struct {
	TickInterval time.Duration
	DrainWindow  time.Duration
	PollYield    time.Duration
	BroadcastCap int
}

// Scheduler owns the book, the agent population and SimulationState, and
// drives the tick loop described in spec.md §4.2.
type Scheduler struct {
	cfg   Config
	queue *control.Queue
	hub   *marketdata.Hub
	log   tradelog.Sink
	mx    *metrics.Collector
	rng   *rand.Rand

	book     *book.OrderBook
	agents   map[uint64]*agent.Agent
	agentIDs []uint64

	currentPrice uint64
	tick         uint64
	paused       bool
}

// New constructs a scheduler with its starting population already seeded.
// seed controls both the shuffle PRNG and is a convenience for determinism
// in tests; individual agents carry their own derived seeds.
func New(cfg Config, queue *control.Queue, hub *marketdata.Hub, sink tradelog.Sink, mx *metrics.Collector, agents []*agent.Agent, seed int64) *Scheduler {
	s := &Scheduler{
		cfg:          cfg,
		queue:        queue,
		hub:          hub,
		log:          sink,
		mx:           mx,
		rng:          rand.New(rand.NewSource(seed)),
		book:         book.New(),
		agents:       make(map[uint64]*agent.Agent, len(agents)),
		agentIDs:     make([]uint64, 0, len(agents)),
		currentPrice: initialPrice,
	}
	for _, a := range agents {
		s.agents[a.ID] = a
		s.agentIDs = append(s.agentIDs, a.ID)
	}
	return s
}

// Run drives the tick loop until t is dying or the command queue is
// disconnected. It is launched under the same tomb it watches, as
// t.Go(func() error { return s.Run(t) }).
func (s *Scheduler) Run(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		default:
		}

		if disconnected := s.DrainCommands(t); disconnected {
			return nil
		}

		if s.paused {
			continue
		}

		s.Step()

		time.Sleep(s.cfg.TickInterval)
	}
}

// Step advances the simulation by exactly one tick: agent round, settlement
// and ticker emission. It is the unit the tick loop repeats once unpaused,
// exported so tests can drive the scheduler deterministically without the
// inter-tick sleep.
func (s *Scheduler) Step() {
	s.tick++
	s.runAgentRound()
	s.settle()
	s.emitTicker()
}

// DrainCommands pops and applies commands for up to DrainWindow of wall
// time, yielding PollYield whenever the queue is momentarily empty. It
// returns true if the queue has disconnected and the scheduler should
// terminate. Exported so tests can drive command application deterministically.
func (s *Scheduler) DrainCommands(t *tomb.Tomb) bool {
	deadline := time.Now().Add(s.cfg.DrainWindow)
	for time.Now().Before(deadline) {
		select {
		case <-t.Dying():
			return true
		default:
		}

		cmd, ok := s.queue.Pop()
		if !ok {
			if s.queue.Closed() {
				return true
			}
			time.Sleep(s.cfg.PollYield)
			continue
		}
		s.apply(cmd)
	}
	return false
}

func (s *Scheduler) runAgentRound() {
	shuffled := make([]uint64, len(s.agentIDs))
	copy(shuffled, s.agentIDs)
	s.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	for _, id := range shuffled {
		a := s.agents[id]
		a.UpdateMarketData(s.currentPrice)
		order, ok := a.Act(s.currentPrice)
		if !ok {
			continue
		}
		order.TraderID = a.ID
		order.Timestamp = s.tick
		s.book.AddOrder(order)
	}
}

func (s *Scheduler) settle() {
	trades := s.book.DrainTrades()
	if len(trades) == 0 {
		return
	}

	s.currentPrice = trades[len(trades)-1].Price
	for _, tr := range trades {
		if buyer, ok := s.agents[tr.BuyerID]; ok {
			buyer.OnTrade(tr)
		}
		if seller, ok := s.agents[tr.SellerID]; ok {
			seller.OnTrade(tr)
		}
		if err := s.log.Append(tr); err != nil {
			log.Error().Err(err).Msg("failed to append trade to log")
		}
		s.hub.Publish(marketdata.TradeMsg(tr.Price, tr.Amount, tr.BuyerID, tr.SellerID))
		if s.mx != nil {
			s.mx.TradesSettled.Inc()
		}
	}
}

func (s *Scheduler) emitTicker() {
	bestBid, _ := s.book.BestBidPrice()
	bestAsk, _ := s.book.BestAskPrice()
	s.hub.Publish(marketdata.Ticker(s.currentPrice, s.tick, bestBid, bestAsk))
	s.publishTickerMetrics()
}

func (s *Scheduler) publishTickerMetrics() {
	if s.mx == nil {
		return
	}
	bestBid, _ := s.book.BestBidPrice()
	bestAsk, _ := s.book.BestAskPrice()
	s.mx.TicksProcessed.Inc()
	s.mx.CurrentPrice.Set(float64(s.currentPrice))
	s.mx.BestBid.Set(float64(bestBid))
	s.mx.BestAsk.Set(float64(bestAsk))
	s.mx.BookDepthBids.Set(float64(s.book.Bids.Len()))
	s.mx.BookDepthAsks.Set(float64(s.book.Asks.Len()))
	s.mx.BroadcastLag.Set(float64(s.hub.SubscriberCount()))
}

func floorU(x float64) uint64 {
	if x < 0 {
		return 0
	}
	return uint64(math.Floor(x))
}

func saturatingSub(base uint64, sub uint64) uint64 {
	if sub >= base {
		return 1
	}
	v := base - sub
	if v < 1 {
		return 1
	}
	return v
}

func (s *Scheduler) apply(cmd control.Command) {
	if s.mx != nil {
		s.mx.CommandsApplied.Inc()
	}
	switch c := cmd.(type) {
	case control.InjectOrder:
		s.book.AddOrder(c.Order)
	case control.SetPaused:
		s.paused = c.Paused
		log.Info().Bool("paused", c.Paused).Msg("simulation pause state changed")
	case control.Reset:
		s.applyReset()
	case control.FlashCrash:
		s.book.AddOrder(model.Order{TraderID: c.SellerID, Side: model.Ask, Price: c.Price, Amount: c.Quantity, Timestamp: s.tick})
		log.Info().Uint64("seller_id", c.SellerID).Uint64("quantity", c.Quantity).Uint64("price", c.Price).Msg("flash crash injected")
	case control.Pump:
		s.applyPump(c)
	case control.Dump:
		s.applyDump(c)
	case control.Earnings:
		s.applyEarnings(c)
	case control.Tariffs:
		s.applyTariffs(c)
	case control.RugPull:
		s.applyRugPull(c)
	case control.WhaleAccumulation:
		s.applyWhale(c)
	case control.UpdateVolatility:
		log.Info().Float64("multiplier", c.Multiplier).Msg("update volatility received (reserved, no effect)")
	}
}

func (s *Scheduler) applyReset() {
	s.book = book.New()
	s.currentPrice = initialPrice
	s.tick = 0
	for _, a := range s.agents {
		a.Reset(initialCash, initialInventory)
	}
	log.Info().Msg("simulation reset")
}

func (s *Scheduler) applyPump(c control.Pump) {
	start := c.BasePrice
	if start == 0 {
		start = s.currentPrice + 200
	}
	qty := floorU(2000 * c.Magnitude)
	for i := uint64(0); i < 5; i++ {
		s.book.AddOrder(model.Order{
			TraderID: c.BuyerID, Side: model.Bid, Price: start + i*50, Amount: qty, Timestamp: s.tick,
		})
	}
	log.Info().Uint64("buyer_id", c.BuyerID).Float64("magnitude", c.Magnitude).Msg("pump injected")
}

func (s *Scheduler) applyDump(c control.Dump) {
	start := c.BasePrice
	if start == 0 {
		if s.currentPrice > 200 {
			start = s.currentPrice - 200
		} else {
			start = 1
		}
	}
	qty := floorU(2000 * c.Magnitude)
	for i := uint64(0); i < 5; i++ {
		price := saturatingSub(start, i*50)
		s.book.AddOrder(model.Order{
			TraderID: c.SellerID, Side: model.Ask, Price: price, Amount: qty, Timestamp: s.tick,
		})
	}
	log.Info().Uint64("seller_id", c.SellerID).Float64("magnitude", c.Magnitude).Msg("dump injected")
}

func (s *Scheduler) applyEarnings(c control.Earnings) {
	if c.SurprisePct == 0 {
		log.Info().Msg("earnings announced with zero surprise, no-op")
		return
	}
	m := floorU(math.Abs(c.SurprisePct) * 30)
	qty := min(uint64(5000), 1500+10*m)

	if c.SurprisePct > 0 {
		for i := uint64(1); i <= 5; i++ {
			s.book.AddOrder(model.Order{
				TraderID: syntheticEarnings, Side: model.Bid, Price: s.currentPrice + 200 + i*100, Amount: qty, Timestamp: s.tick,
			})
		}
	} else {
		for i := uint64(1); i <= 5; i++ {
			price := saturatingSub(s.currentPrice, 200+i*100)
			s.book.AddOrder(model.Order{
				TraderID: syntheticEarnings, Side: model.Ask, Price: price, Amount: qty, Timestamp: s.tick,
			})
		}
	}
	log.Info().Float64("surprise_pct", c.SurprisePct).Msg("earnings announced")
}

func (s *Scheduler) applyTariffs(c control.Tariffs) {
	qty := floorU(1000 + 500*c.Severity)
	p := floorU(100 * c.Severity)
	for i := uint64(0); i < 7; i++ {
		price := saturatingSub(s.currentPrice, p+i*50)
		s.book.AddOrder(model.Order{
			TraderID: syntheticTariffs, Side: model.Ask, Price: price, Amount: qty, Timestamp: s.tick,
		})
	}
	log.Info().Float64("severity", c.Severity).Msg("tariffs announced")
}

func (s *Scheduler) applyRugPull(c control.RugPull) {
	crashPrice := floorU(float64(s.currentPrice) * (1 - 0.15*c.Magnitude))
	qty := floorU(3000 * c.Magnitude)
	for i := uint64(0); i < 10; i++ {
		price := saturatingSub(crashPrice, i*20)
		s.book.AddOrder(model.Order{
			TraderID: syntheticRugPull, Side: model.Ask, Price: price, Amount: qty, Timestamp: s.tick,
		})
	}
	log.Info().Float64("magnitude", c.Magnitude).Msg("rug pull injected")
}

func (s *Scheduler) applyWhale(c control.WhaleAccumulation) {
	premium := floorU(50 * c.Magnitude)
	qty := floorU(2000 * c.Magnitude)
	for i := uint64(0); i < 8; i++ {
		s.book.AddOrder(model.Order{
			TraderID: syntheticWhale, Side: model.Bid, Price: s.currentPrice + premium + i*20, Amount: qty, Timestamp: s.tick,
		})
	}
	log.Info().Float64("magnitude", c.Magnitude).Msg("whale accumulation injected")
}

// CurrentPrice, Tick and Paused expose read-only snapshots of simulation
// state, used by tests. They are only safe
// to call from the scheduler's own goroutine or after it has stopped.
func (s *Scheduler) CurrentPrice() uint64  { return s.currentPrice }
func (s *Scheduler) Tick() uint64          { return s.tick }
func (s *Scheduler) Paused() bool          { return s.paused }
func (s *Scheduler) Book() *book.OrderBook { return s.book }
