// internal/launch/directory.go
package launch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
	"github.com/rovshanmuradov/letscook/internal/cook"
	"github.com/rovshanmuradov/letscook/internal/layout"
	"github.com/rovshanmuradov/letscook/internal/metrics"
	"github.com/rovshanmuradov/letscook/internal/program"
)

// multipleAccountsLimit is the most accounts one getMultipleAccounts call takes.
const multipleAccountsLimit = 100

// Listing is one decoded launch account.
type Listing struct {
	Address solana.PublicKey
	Launch  *layout.LaunchData
}

// Row is a launch the user holds tickets in.
type Row struct {
	Listing
	Join    *layout.JoinData
	State   cook.State
	Badge   string
	WinRate string
}

// Directory lists launches and the user's tickets across them.
type Directory struct {
	reader  blockchain.Reader
	addrs   program.Addresses
	checkIn time.Duration
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewDirectory создает каталог запусков.
func NewDirectory(reader blockchain.Reader, addrs program.Addresses, checkIn time.Duration, m *metrics.Collector, logger *zap.Logger) *Directory {
	return &Directory{
		reader:  reader,
		addrs:   addrs,
		checkIn: checkIn,
		metrics: m,
		logger:  logger.Named("directory"),
	}
}

// Launches returns every launch account the program owns. Accounts that do
// not decode are skipped.
func (d *Directory) Launches(ctx context.Context) ([]Listing, error) {
	accounts, err := d.reader.GetProgramAccounts(ctx, d.addrs.Program, blockchain.Filter{
		Offset: layout.TypeOffset,
		Bytes:  []byte{byte(layout.AccountLaunch)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list launches: %w", err)
	}

	out := make([]Listing, 0, len(accounts))
	for _, acc := range accounts {
		l, err := layout.DecodeLaunch(acc.Data)
		if err != nil {
			d.metrics.DecodeFailure("launch")
			d.logger.Debug("Skipping launch", zap.String("address", acc.Address.String()), zap.Error(err))
			continue
		}
		out = append(out, Listing{Address: acc.Address, Launch: l})
	}
	return out, nil
}

// Find returns the listing for page.
func Find(listings []Listing, page string) (Listing, bool) {
	for _, l := range listings {
		if l.Launch.PageName == page {
			return l, true
		}
	}
	return Listing{}, false
}

// Tickets returns a row for every launch user has joined, evaluated at now.
func (d *Directory) Tickets(ctx context.Context, now time.Time, user solana.PublicKey, listings []Listing) ([]Row, error) {
	joinAddrs := make([]solana.PublicKey, len(listings))
	for i, l := range listings {
		addr, err := d.addrs.Join(user, l.Launch.GameID)
		if err != nil {
			return nil, err
		}
		joinAddrs[i] = addr
	}

	joins := make([]*layout.JoinData, len(listings))
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(joinAddrs); start += multipleAccountsLimit {
		start := start
		end := start + multipleAccountsLimit
		if end > len(joinAddrs) {
			end = len(joinAddrs)
		}
		g.Go(func() error {
			accounts, err := d.reader.GetMultipleAccounts(gctx, joinAddrs[start:end])
			if err != nil {
				return err
			}
			for i, acc := range accounts {
				if acc == nil || len(acc.Data) == 0 {
					continue
				}
				j, err := layout.DecodeJoin(acc.Data)
				if err != nil {
					d.metrics.DecodeFailure("join")
					continue
				}
				joins[start+i] = j
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read join accounts: %w", err)
	}

	var rows []Row
	for i, l := range listings {
		j := joins[i]
		if j == nil {
			continue
		}
		state := cook.Derive(now, l.Launch, j)
		rows = append(rows, Row{
			Listing: l,
			Join:    j,
			State:   state,
			Badge:   cook.Badge(state),
			WinRate: cook.WinRate(state, j),
		})
	}
	return rows, nil
}

// Action returns what the row offers at now.
func (d *Directory) Action(now time.Time, r Row) cook.Action {
	phase := cook.LiquidityPhase(r.State, now, r.Launch, d.checkIn)
	return cook.ActionFor(r.State, phase, r.Join)
}

// SortField selects the column rows are sorted by.
type SortField string

const (
	SortDate    SortField = "date"
	SortTickets SortField = "tickets"
	SortSymbol  SortField = "symbol"
)

// ParseSortField accepts the column names shown in tables.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(s)); f {
	case SortDate, SortTickets, SortSymbol:
		return f, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// SortRows orders rows by field, ascending unless reverse. Ties keep their
// order.
func SortRows(rows []Row, field SortField, reverse bool) {
	less := func(a, b Row) bool {
		switch field {
		case SortTickets:
			return a.Join.NumTickets < b.Join.NumTickets
		case SortSymbol:
			return a.Launch.Symbol < b.Launch.Symbol
		default:
			return a.Launch.LaunchDate < b.Launch.LaunchDate
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if reverse {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

// SortListings orders listings by launch date, newest first.
func SortListings(listings []Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].Launch.LaunchDate > listings[j].Launch.LaunchDate
	})
}
