package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	persist "github.com/goliatone/go-persistfile"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored snapshot as indented JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			state, result, err := s.persister.Load(cmd.Context())
			if err != nil {
				return err
			}
			switch result.Status {
			case persist.RestoreMissing:
				return fmt.Errorf("no snapshot at %s", result.Path)
			case persist.RestoreDecodeFailed:
				return result.Err
			}
			return writeJSON(cmd.OutOrStdout(), state)
		},
	}
}
