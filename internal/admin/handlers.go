// Package admin implements the HTTP admin surface: it translates validated
// JSON requests into control-plane commands and enqueues them. The spec
// treats this surface as an external collaborator specified only as "a
// source of typed commands" — this is a concrete, minimal implementation of
// that source so the simulation is runnable end to end.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fenrir/internal/control"
	"fenrir/internal/model"
)

var validate = validator.New()

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Server wires the admin routes onto a gin engine, publishing commands onto
// queue.
type Server struct {
	queue *control.Queue
}

// New returns an admin Server backed by queue.
func New(queue *control.Queue) *Server {
	return &Server{queue: queue}
}

// RegisterRoutes mounts every /api/admin/* route from spec.md §6 onto r.
func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/admin/order", s.injectOrder)
	r.POST("/api/admin/crash", s.flashCrash)
	r.POST("/api/admin/control", s.control)
	r.POST("/api/admin/pump", s.pump)
	r.POST("/api/admin/dump", s.dump)
	r.POST("/api/admin/earnings", s.earnings)
	r.POST("/api/admin/tariffs", s.tariffs)
	r.POST("/api/admin/rugpull", s.rugPull)
	r.POST("/api/admin/whale", s.whale)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, response{Success: false, Message: message})
}

func (s *Server) enqueue(c *gin.Context, cmd control.Command, okMessage string) {
	if s.queue.Closed() {
		c.JSON(http.StatusInternalServerError, response{
			Success: false,
			Message: "simulation worker is no longer accepting commands",
		})
		return
	}
	s.queue.Push(cmd)
	c.JSON(http.StatusOK, response{Success: true, Message: okMessage})
}

type injectOrderRequest struct {
	Side     string `json:"side" validate:"required"`
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
	TraderID uint64 `json:"trader_id"`
}

func (s *Server) injectOrder(c *gin.Context) {
	var req injectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var side model.Side
	switch strings.ToLower(req.Side) {
	case "bid":
		side = model.Bid
	case "ask":
		side = model.Ask
	default:
		badRequest(c, "side must be 'bid' or 'ask'")
		return
	}

	order := model.Order{
		UUID:     uuid.New().String(),
		TraderID: req.TraderID,
		Side:     side,
		Price:    req.Price,
		Amount:   req.Quantity,
	}
	log.Info().Str("side", req.Side).Uint64("price", req.Price).Uint64("quantity", req.Quantity).Msg("admin: order injected")
	s.enqueue(c, control.InjectOrder{Order: order}, "order injected")
}

func (s *Server) flashCrash(c *gin.Context) {
	log.Info().Msg("admin: flash crash triggered")
	s.enqueue(c, control.FlashCrash{SellerID: 999, Quantity: 20_000, Price: 4_000}, "flash crash triggered")
}

type controlRequest struct {
	Action string `json:"action" validate:"required"`
}

func (s *Server) control(c *gin.Context) {
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	switch strings.ToLower(req.Action) {
	case "pause":
		s.enqueue(c, control.SetPaused{Paused: true}, "simulation paused")
	case "resume":
		s.enqueue(c, control.SetPaused{Paused: false}, "simulation resumed")
	default:
		badRequest(c, "action must be 'pause' or 'resume'")
	}
}

func (s *Server) pump(c *gin.Context) {
	log.Info().Msg("admin: pump triggered")
	s.enqueue(c, control.Pump{BuyerID: 888, BasePrice: 0, Magnitude: 1.0}, "pump activated")
}

func (s *Server) dump(c *gin.Context) {
	log.Info().Msg("admin: dump triggered")
	s.enqueue(c, control.Dump{SellerID: 888, BasePrice: 0, Magnitude: 1.0}, "dump activated")
}

type earningsRequest struct {
	SurprisePct float64 `json:"surprise_pct" validate:"gte=-50,lte=50"`
}

func (s *Server) earnings(c *gin.Context) {
	var req earningsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		badRequest(c, "surprise_pct must be between -50% and +50%")
		return
	}
	s.enqueue(c, control.Earnings{SurprisePct: req.SurprisePct}, "earnings announced")
}

type tariffsRequest struct {
	Severity float64 `json:"severity" validate:"gte=0,lte=10"`
}

func (s *Server) tariffs(c *gin.Context) {
	var req tariffsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		badRequest(c, "severity must be between 0 and 10")
		return
	}
	s.enqueue(c, control.Tariffs{Severity: req.Severity}, "tariffs announced")
}

type magnitudeRequest struct {
	Magnitude float64 `json:"magnitude" validate:"gte=0.5,lte=5"`
}

func (s *Server) rugPull(c *gin.Context) {
	var req magnitudeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		badRequest(c, "magnitude must be between 0.5 and 5.0")
		return
	}
	s.enqueue(c, control.RugPull{Magnitude: req.Magnitude}, "rug pull triggered")
}

func (s *Server) whale(c *gin.Context) {
	var req magnitudeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		badRequest(c, "magnitude must be between 0.5 and 5.0")
		return
	}
	s.enqueue(c, control.WhaleAccumulation{Magnitude: req.Magnitude}, "whale accumulation triggered")
}
