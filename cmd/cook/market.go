package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/letscook/internal/market"
	"github.com/rovshanmuradov/letscook/internal/program"
)

func (a *app) candlesCmd() *cobra.Command {
	var (
		daily bool
		last  int
	)
	cmd := &cobra.Command{
		Use:   "candles <page>",
		Short: "Print the price candles of a launched token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.session.OpenMarket(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer v.Close()

			candles := v.Candles()
			if daily {
				candles = market.Daily(candles)
			}
			if last > 0 && len(candles) > last {
				candles = candles[len(candles)-last:]
			}

			stats := v.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "price %s SOL, 24h volume %.4f, supply %s\n",
				stats.Price.String(), stats.Volume24h, stats.Supply.String())

			rows := make([][]string, len(candles))
			for i, c := range candles {
				rows[i] = []string{
					time.Unix(c.Time, 0).UTC().Format("2006-01-02 15:04"),
					formatPrice(c.Open),
					formatPrice(c.High),
					formatPrice(c.Low),
					formatPrice(c.Close),
					strconv.FormatFloat(c.Volume, 'f', 2, 64),
				}
			}
			printTable(out, []string{"Time", "Open", "High", "Low", "Close", "Volume"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&daily, "daily", false, "aggregate into daily candles")
	cmd.Flags().IntVar(&last, "last", 48, "show only the last N candles (0 for all)")
	return cmd
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'g', 6, 64)
}

func (a *app) swapCmd() *cobra.Command {
	var (
		side   string
		amount uint64
	)
	cmd := &cobra.Command{
		Use:   "swap <page>",
		Short: "Swap on a launched token's Cook AMM pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var s uint8
			switch side {
			case "buy":
				s = program.SideBuy
			case "sell":
				s = program.SideSell
			default:
				return fmt.Errorf("unknown side %q, want buy or sell", side)
			}

			v, err := a.session.OpenMarket(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer v.Close()

			res, err := v.Swap(cmd.Context(), s, amount)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "swap", res)
			return nil
		},
	}
	cmd.Flags().StringVar(&side, "side", "buy", "buy or sell")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "input amount in base units")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
