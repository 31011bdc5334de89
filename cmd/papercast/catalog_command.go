package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Maintain and query the SQLite catalog of processed papers",
	}
	cmd.AddCommand(newCatalogSyncCommand(ctx))
	cmd.AddCommand(newCatalogRecentCommand(ctx))
	return cmd
}

func newCatalogSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upsert every record of the log into the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.storageApp()
			if err != nil {
				return err
			}
			n, err := application.CatalogSync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog synced: %d records\n", n)
			return nil
		},
	}
}

func newCatalogRecentCommand(ctx *commandContext) *cobra.Command {
	var (
		topic  string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the newest catalog entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.storageApp()
			if err != nil {
				return err
			}
			records, err := application.CatalogRecent(cmd.Context(), topic, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{r.ID, r.Query, r.Timestamp, truncate(r.Title, 50)})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"ID", "Topic", "Processed", "Title"}, rows, nil))
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Restrict to one topic")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
