package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize qadesk configuration and storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nand create the database schema.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.dirs.Ensure(); err != nil {
				return fmt.Errorf("create directories: %w", err)
			}
			backend, err := a.attach()
			if err != nil {
				return err
			}
			if err := backend.Detach(); err != nil {
				return fmt.Errorf("finalize storage: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "qadesk initialized successfully")
			fmt.Fprintln(out, "  config:", a.dirs.ConfigFile())
			fmt.Fprintln(out, "  data:  ", a.dirs.Data)
			return nil
		},
	}
}
