package cli

import (
	"github.com/spf13/cobra"

	persist "github.com/goliatone/go-persistfile"
	"github.com/goliatone/go-persistfile/pkg/store"
)

// NewRestoreCommand creates the restore command. It previews what a store
// seeded with --defaults would hold after attaching persistence.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	var defaultsPath string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Merge the stored snapshot over defaults and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := persist.State{}
			if defaultsPath != "" {
				loaded, err := readStateFile(defaultsPath)
				if err != nil {
					return err
				}
				defaults = loaded
			}

			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			target := store.New(defaults)
			if _, err := s.persister.Restore(cmd.Context(), target); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), target.State())
		},
	}

	cmd.Flags().StringVar(&defaultsPath, "defaults", "", "JSON file with the store's initial state")
	return cmd
}
