package cli

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/erauner12/toolbridge-resources/internal/syncx"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Params map[string]string
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the whole collection and print it",
		Long: `Fetch every page of the collection, replace the local state with it and
print the result.

Example:
  resourcectl fetch --collection todos --param status=open`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, cmd)
		},
	}

	cmd.Flags().StringToStringVar(&opts.Params, "param", nil, "query parameter sent with every page request (key=value)")

	return cmd
}

func runFetch(opts *FetchOptions, cmd *cobra.Command) error {
	s := newSession(opts.RootOptions, cmd)
	ctx := cmd.Context()

	params := url.Values{}
	for k, v := range opts.Params {
		params.Set(k, v)
	}

	if err := s.settle(ctx, s.coord.FetchAll(ctx, syncx.WithParams(params))); err != nil {
		_ = s.out.Error(err)
		return err
	}
	return s.out.Resources(s.store.State().Resources)
}
