package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every table to JSONL files in dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			if err := backend.Export(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "exported to", args[0])
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load JSONL files from dir into an empty store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			if err := backend.Import(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "imported from", args[0])
			return nil
		},
	}
}
