package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DefaultSaveOperation is the mutation name reported when --operation is not
// given.
const DefaultSaveOperation = "cli.save"

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		statePath string
		operation string
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Persist a JSON state file as if a mutation had been committed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := readStateFile(statePath)
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.persister.Save(cmd.Context(), operation, state)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Skipped {
				fmt.Fprintf(out, "skipped: operation %q is not allowed\n", operation)
				return nil
			}
			for _, path := range result.Paths {
				fmt.Fprintf(out, "wrote %s (%d bytes)\n", path, result.Bytes)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statePath, "state", "", "JSON file holding the state to save")
	cmd.Flags().StringVar(&operation, "operation", DefaultSaveOperation, "mutation name checked against the allow-list")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}
