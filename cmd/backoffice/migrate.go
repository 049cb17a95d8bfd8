package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func migrateCmd(load loader) *cobra.Command {
	var showStatus bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply pending SQLite migrations. With the dynamodb store, missing
event and estimate tables are created as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			return withBackend(cmd.Context(), rt, func(b *backend) error {
				if showStatus {
					if b.sqlite == nil {
						fmt.Fprintf(out, "store %s has no schema migrations\n", rt.cfg.Store)
						return nil
					}
					status, err := b.sqlite.MigrationStatus(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "current version: %s\n", status.CurrentVersion)
					for _, m := range status.Applied {
						fmt.Fprintf(out, "  %s %s\n", color.New(color.FgGreen).Sprint("applied"), m.Version)
					}
					for _, m := range status.Pending {
						fmt.Fprintf(out, "  %s %s\n", color.New(color.FgYellow).Sprint("pending"), m.Version)
					}
					return nil
				}

				applied, err := b.migrate(cmd.Context())
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					success(out, "schema is up to date")
					return nil
				}
				for _, version := range applied {
					success(out, "applied %s", version)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showStatus, "status", false, "list applied and pending migrations without applying")
	return cmd
}
