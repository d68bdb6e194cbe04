package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telekom/account-recovery/pkg/recovery"
)

func NewValidateCommand() *cobra.Command {
	var csvPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Dry-run a CSV file without updating or mailing anyone",
		Long: `Parses the CSV file and resolves each row against the account store.
Nothing is persisted, no messages are sent and no audit events are
recorded. Rows that would fail are listed with the failure kind.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			rows, err := recovery.LoadRows(csvPath)
			if err != nil {
				return err
			}

			deps, err := buildBatchDeps(cmd.Context(), rt)
			if err != nil {
				return err
			}
			defer deps.Close()

			result := deps.runner.DryRun(cmd.Context(), csvPath, rows)

			w := rt.Writer()
			for _, rowErr := range result.Errors {
				fmt.Fprintf(w, "UNRESOLVED %s (%s): %s\n", rowErr.Row.Username, rowErr.Row.Email, rowErr.Kind)
			}
			fmt.Fprintf(w, "%d of %d rows resolve to exactly one account\n", len(result.Succeeded), len(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv-file-path", "", "Path to the recovery CSV file (username,email,new_email)")
	_ = cmd.MarkFlagRequired("csv-file-path")

	return cmd
}
