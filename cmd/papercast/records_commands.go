package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"PaperCast/internal/domain"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show processed papers from the record log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.storageApp()
			if err != nil {
				return err
			}
			records, err := application.Records(cmd.Context(), 0)
			if err != nil {
				return err
			}
			if limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}

			if asJSON {
				if records == nil {
					records = []domain.Record{}
				}
				return writeJSON(cmd, records)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No papers recorded yet")
				return nil
			}

			now := time.Now()
			rows := make([][]string, 0, len(records))
			for _, r := range records {
				audio := "-"
				if size, ok := application.AudioSize(r); ok {
					audio = humanize.Bytes(uint64(size))
				}
				processed := r.Timestamp
				if at := r.ProcessedAt(); !at.IsZero() {
					processed = humanize.RelTime(at, now, "ago", "from now")
				}
				title := r.TitleZh
				if r.Degraded {
					title += " (fallback)"
				}
				rows = append(rows, []string{r.ID, r.Query, truncate(title, 40), processed, audio})
			}
			fmt.Fprint(out, renderTable(
				[]string{"ID", "Topic", "Title", "Processed", "Audio"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "\n%s papers\n", humanize.Comma(int64(len(records))))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show the newest N records (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <paper-id>",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.storageApp()
			if err != nil {
				return err
			}
			record, ok, err := application.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("paper %s not found in record log", args[0])
			}
			return writeJSON(cmd, record)
		},
	}
}

func newBackupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copy the record log to a timestamped backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.storageApp()
			if err != nil {
				return err
			}
			path, err := application.Backup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
			return nil
		},
	}
}

func newRebuildIDsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-ids",
		Short: "Regenerate the processed id file from the record log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.storageApp()
			if err != nil {
				return err
			}
			n, err := application.RebuildIDs(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt processed ids (%d entries)\n", n)
			return nil
		},
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
