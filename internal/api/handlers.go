// internal/api/handlers.go
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/letscook/internal/cook"
	"github.com/rovshanmuradov/letscook/internal/launch"
	"github.com/rovshanmuradov/letscook/internal/market"
)

// LaunchSummary is one directory entry.
type LaunchSummary struct {
	Page        string          `json:"page"`
	Address     string          `json:"address"`
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Icon        string          `json:"icon"`
	State       string          `json:"state"`
	Badge       string          `json:"badge"`
	LaunchDate  uint64          `json:"launch_date"`
	EndDate     uint64          `json:"end_date"`
	TicketsSold uint32          `json:"tickets_sold"`
	NumMints    uint32          `json:"num_mints"`
	TicketPrice decimal.Decimal `json:"ticket_price"`
}

// LaunchDetail is the public view of one launch page.
type LaunchDetail struct {
	LaunchSummary
	Description            string          `json:"description"`
	Header                 string          `json:"header"`
	Liquidity              string          `json:"liquidity"`
	WinProbability         float64         `json:"win_probability"`
	TokensPerWinningTicket decimal.Decimal `json:"tokens_per_winning_ticket"`
	LiquidityRaised        decimal.Decimal `json:"liquidity_raised"`
	LiquidityTarget        decimal.Decimal `json:"liquidity_target"`
	Progress               float64         `json:"progress"`
	Distribution           []cook.Share    `json:"distribution"`
	Socials                []string        `json:"socials"`
}

func summarize(l launch.Listing, snap launch.Snapshot) LaunchSummary {
	return LaunchSummary{
		Page:        l.Launch.PageName,
		Address:     l.Address.String(),
		Name:        l.Launch.Name,
		Symbol:      l.Launch.Symbol,
		Icon:        l.Launch.Icon,
		State:       snap.State.String(),
		Badge:       snap.Badge,
		LaunchDate:  l.Launch.LaunchDate,
		EndDate:     l.Launch.EndDate,
		TicketsSold: l.Launch.TicketsSold,
		NumMints:    l.Launch.NumMints,
		TicketPrice: cook.SOL(l.Launch.TicketPrice),
	}
}

func (s *Server) health(c *gin.Context) {
	_, refreshed := s.snapshot()
	body := gin.H{"status": "ok"}
	if !refreshed.IsZero() {
		body["refreshed_at"] = refreshed.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) listLaunches(c *gin.Context) {
	listings, refreshed := s.snapshot()
	if refreshed.IsZero() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrNotLoaded.Error()})
		return
	}
	now := s.now()
	out := make([]LaunchSummary, 0, len(listings))
	for _, l := range listings {
		snap := launch.Build(l.Launch.PageName, now, l.Launch, nil, s.cfg.CheckIn)
		out = append(out, summarize(l, snap))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) find(c *gin.Context) (launch.Listing, bool) {
	listings, refreshed := s.snapshot()
	if refreshed.IsZero() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrNotLoaded.Error()})
		return launch.Listing{}, false
	}
	l, ok := launch.Find(listings, c.Param("page"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": launch.ErrLaunchNotFound.Error()})
		return launch.Listing{}, false
	}
	return l, true
}

func (s *Server) getLaunch(c *gin.Context) {
	l, ok := s.find(c)
	if !ok {
		return
	}
	snap := launch.Build(l.Launch.PageName, s.now(), l.Launch, nil, s.cfg.CheckIn)
	c.JSON(http.StatusOK, LaunchDetail{
		LaunchSummary:          summarize(l, snap),
		Description:            l.Launch.Description,
		Header:                 snap.Header,
		Liquidity:              snap.Liquidity.String(),
		WinProbability:         snap.WinProbability,
		TokensPerWinningTicket: snap.TokensPerWinningTicket,
		LiquidityRaised:        snap.LiquidityRaised,
		LiquidityTarget:        snap.LiquidityTarget,
		Progress:               snap.Progress,
		Distribution:           snap.Distribution,
		Socials:                l.Launch.Socials,
	})
}

func (s *Server) getCandles(c *gin.Context) {
	if s.candles == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "candles disabled"})
		return
	}
	l, ok := s.find(c)
	if !ok {
		return
	}
	candles, err := s.candles(c.Request.Context(), l.Launch.PageName)
	switch {
	case errors.Is(err, market.ErrMarketNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if c.Query("interval") == "1d" {
		candles = market.Daily(candles)
	}
	if candles == nil {
		candles = []market.Candle{}
	}
	c.JSON(http.StatusOK, candles)
}
