package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erauner12/toolbridge-resources/internal/syncx"
)

// DestroyOptions holds flags for the destroy command.
type DestroyOptions struct {
	*RootOptions
	Optimistic bool
}

// NewDestroyCommand creates the destroy command.
func NewDestroyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DestroyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "destroy <id>",
		Short: "Delete a resource by its server id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDestroy(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Optimistic, "optimistic", false, "remove the resource locally before the server confirms")

	return cmd
}

func runDestroy(opts *DestroyOptions, id string, cmd *cobra.Command) error {
	s := newSession(opts.RootOptions, cmd)
	ctx := cmd.Context()

	if err := s.fetch(ctx); err != nil {
		_ = s.out.Error(err)
		return err
	}
	target, err := s.find(id)
	if err != nil {
		return err
	}

	task := s.coord.Destroy(ctx, target.Address(), syncx.Optimistic(opts.Optimistic))
	if err := s.settle(ctx, task); err != nil {
		_ = s.out.Error(err)
		return err
	}
	return s.out.Message(fmt.Sprintf("destroyed %s (%d remaining)", id, len(s.store.State().Resources)))
}
