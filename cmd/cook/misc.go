package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/letscook/internal/export"
)

func (a *app) claimNFTCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim-nft <page>",
		Short: "Claim an NFT from a hybrid collection, or mint the assigned one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.session.OpenCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer v.Close()

			res, err := v.ClaimNFT(cmd.Context())
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "claim-nft", res)
			return nil
		},
	}
}

func (a *app) validateLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-launch <draft.yaml>",
		Short: "Validate a launch draft before creating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.session.LoadDraft(args[0])
			if err != nil {
				return err
			}
			if err := a.session.ValidateDraft(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "draft %q is valid\n", d.PageName)
			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var (
		limit     int
		format    string
		outputDir string
		opts      export.Options
		report    bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or export the wallet's submitted actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actions, err := a.session.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			exporter := export.NewExporter(a.log.Logger)

			if report {
				path, err := exporter.ExportDailyReport(actions, time.Now(), outputDir)
				if err != nil {
					return err
				}
				if path == "" {
					fmt.Fprintln(out, "no actions today")
				} else {
					fmt.Fprintln(out, "report written to", path)
				}
				return nil
			}

			if format != "" {
				if opts.Format, err = export.ParseFormat(format); err != nil {
					return err
				}
				opts.OutputDir = outputDir
				path, err := exporter.Export(actions, opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "exported to", path)
				return nil
			}

			rows := make([][]string, len(actions))
			for i, act := range actions {
				rows[i] = []string{
					act.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					act.Action,
					act.PageName,
					act.Status,
					strconv.FormatUint(act.PriorityFee, 10),
					act.Signature,
				}
			}
			printTable(out, []string{"Time", "Action", "Page", "Status", "Fee", "Signature"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "most recent actions to load")
	cmd.Flags().StringVar(&format, "export", "", "export as csv or json instead of printing")
	cmd.Flags().StringVar(&outputDir, "out", "exports", "export directory")
	cmd.Flags().StringVar(&opts.ActionFilter, "action", "", "only this action")
	cmd.Flags().StringVar(&opts.PageFilter, "page", "", "only this launch page")
	cmd.Flags().BoolVar(&opts.OnlyConfirmed, "confirmed", false, "only confirmed actions")
	cmd.Flags().BoolVar(&report, "daily-report", false, "write today's JSON report")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the launch directory over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.session.Server().Run(cmd.Context())
		},
	}
}
