package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/export"
	"github.com/rovshanmuradov/letscook/internal/launch"
	"github.com/rovshanmuradov/letscook/internal/txn"
)

type launchAction func(ctx context.Context, v *launch.View, now time.Time) (*txn.Result, error)

func actionCheck(ctx context.Context, v *launch.View, now time.Time) (*txn.Result, error) {
	return v.CheckTickets(ctx, now)
}

func actionClaim(ctx context.Context, v *launch.View, now time.Time) (*txn.Result, error) {
	return v.ClaimTokens(ctx, now)
}

func actionRefund(ctx context.Context, v *launch.View, now time.Time) (*txn.Result, error) {
	return v.RefundTickets(ctx, now)
}

// withLaunch opens page, runs fn and closes the view.
func (a *app) withLaunch(ctx context.Context, page string, fn func(v *launch.View) error) error {
	v, err := a.session.OpenLaunch(ctx, page)
	if err != nil {
		return err
	}
	defer v.Close()
	return fn(v)
}

func (a *app) stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <page>",
		Short: "Show the state of a launch page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLaunch(cmd.Context(), args[0], func(v *launch.View) error {
				printSnapshot(cmd.OutOrStdout(), v.Snapshot(time.Now()))
				return nil
			})
		},
	}
}

var journalHeader = []string{"time", "page", "state", "action", "tickets_sold", "num_mints", "my_tickets"}

func (a *app) watchCmd() *cobra.Command {
	var journalPath string
	cmd := &cobra.Command{
		Use:   "watch <page>",
		Short: "Follow a launch page until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var journal *export.Journal
			if journalPath != "" {
				j, err := export.NewJournal(journalPath, journalHeader, 5*time.Second, a.log.Logger)
				if err != nil {
					return err
				}
				defer j.Close()
				journal = j
			}

			return a.withLaunch(ctx, args[0], func(v *launch.View) error {
				out := cmd.OutOrStdout()
				show := func() {
					s := v.Snapshot(time.Now())
					fmt.Fprintf(out, "%s  %-32s %-6s %s\n", time.Now().Format("15:04:05"), s.State, s.Action, s.Header)
					if journal == nil || s.Launch == nil {
						return
					}
					var mine uint16
					if s.Join != nil {
						mine = s.Join.NumTickets
					}
					record := []string{
						time.Now().UTC().Format(time.RFC3339),
						s.Page,
						s.State.String(),
						s.Action.String(),
						strconv.FormatUint(uint64(s.Launch.TicketsSold), 10),
						strconv.FormatUint(uint64(s.Launch.NumMints), 10),
						strconv.FormatUint(uint64(mine), 10),
					}
					if err := journal.Write(record); err != nil {
						a.log.Warn("Failed to write journal", zap.Error(err))
					}
				}

				sub := a.session.Bus.SubscribeFunc(events.SnapshotUpdated, func(context.Context, events.Event) error {
					show()
					return nil
				})
				defer sub.Unsubscribe()

				show()
				<-ctx.Done()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&journalPath, "journal", "", "append every change to this CSV file")
	return cmd
}

func (a *app) buyCmd() *cobra.Command {
	var tickets int
	cmd := &cobra.Command{
		Use:   "buy <page>",
		Short: "Buy raffle tickets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLaunch(cmd.Context(), args[0], func(v *launch.View) error {
				res, err := v.BuyTickets(cmd.Context(), time.Now(), tickets)
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), "buy", res)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&tickets, "tickets", "n", 1, "number of tickets (1-100)")
	return cmd
}

func (a *app) simpleActionCmd(name, short string, do launchAction) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <page>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLaunch(cmd.Context(), args[0], func(v *launch.View) error {
				res, err := do(cmd.Context(), v, time.Now())
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), name, res)
				return nil
			})
		},
	}
}

func (a *app) actCmd() *cobra.Command {
	var tickets int
	cmd := &cobra.Command{
		Use:   "act <page>",
		Short: "Run whatever the launch page offers now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLaunch(cmd.Context(), args[0], func(v *launch.View) error {
				now := time.Now()
				action := v.Snapshot(now).Action
				res, err := v.Do(cmd.Context(), now, tickets)
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), action.String(), res)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&tickets, "tickets", "n", 1, "tickets to buy when the launch is active")
	return cmd
}

func (a *app) ticketsCmd() *cobra.Command {
	var (
		sortBy  string
		reverse bool
	)
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List the launches the wallet holds tickets in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			field, err := launch.ParseSortField(sortBy)
			if err != nil {
				return err
			}
			owner := a.session.Owner()
			if owner.IsZero() {
				return fmt.Errorf("a wallet is required to list tickets")
			}

			ctx := cmd.Context()
			dir := a.session.Directory()
			listings, err := dir.Launches(ctx)
			if err != nil {
				return err
			}
			now := time.Now()
			rows, err := dir.Tickets(ctx, now, owner, listings)
			if err != nil {
				return err
			}
			launch.SortRows(rows, field, reverse)

			data := make([][]string, len(rows))
			for i, r := range rows {
				data[i] = []string{
					r.Launch.PageName,
					r.Launch.Symbol,
					time.UnixMilli(int64(r.Launch.LaunchDate)).UTC().Format("2006-01-02 15:04"),
					strconv.Itoa(int(r.Join.NumTickets)),
					r.WinRate,
					r.Badge,
					dir.Action(now, r).String(),
				}
			}
			printTable(cmd.OutOrStdout(), []string{"Page", "Token", "Date", "Tickets", "Win Rate", "Status", "Action"}, data)
			return nil
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", string(launch.SortDate), "sort by date, tickets or symbol")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "reverse the sort order")
	return cmd
}
