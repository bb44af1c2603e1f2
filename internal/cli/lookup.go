package cli

import (
	"slices"

	"github.com/spf13/cobra"
)

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <index> <value>",
		Short: "Fetch the collection and list resources by an indexed attribute",
		Long: `Fetch the collection and print the resources whose attribute equals
value. Numbers and their string form match the same resources.

Example:
  resourcectl lookup owner alice`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runLookup(opts *RootOptions, index, value string, cmd *cobra.Command) error {
	if index != "id" && !slices.Contains(opts.Config.Indexes, index) {
		opts.Config.Indexes = append(opts.Config.Indexes, index)
	}

	s := newSession(opts, cmd)
	ctx := cmd.Context()

	if err := s.fetch(ctx); err != nil {
		_ = s.out.Error(err)
		return err
	}
	return s.out.Resources(s.store.State().Lookup(index, value))
}
