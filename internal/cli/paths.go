package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewPathsCommand creates the paths command.
func NewPathsCommand(rootOpts *RootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the primary snapshot path and enabled backup paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			when := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at %q: %w", at, err)
				}
				when = parsed
			}

			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "primary: %s\n", s.persister.Path())
			backups := s.persister.BackupPaths(when)
			for _, path := range backups {
				fmt.Fprintf(out, "backup:  %s\n", path)
			}
			if len(backups) == 0 && rootOpts.Verbose {
				fmt.Fprintln(out, "backups: disabled")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "compute backup names for this RFC3339 time instead of now")
	return cmd
}
