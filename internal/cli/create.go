package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/erauner12/toolbridge-resources/internal/resource"
	"github.com/erauner12/toolbridge-resources/internal/syncx"
)

// maxConcurrentCreates bounds the number of create calls in flight
const maxConcurrentCreates = 4

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Optimistic bool
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <json>...",
		Short: "Create one or more resources",
		Long: `Create one resource per JSON object argument. Creates run concurrently;
a failed create does not cancel the others.

Example:
  resourcectl create '{"title":"a"}' '{"title":"b"}' --optimistic`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Optimistic, "optimistic", false, "add resources locally before the server confirms")

	return cmd
}

func runCreate(opts *CreateOptions, args []string, cmd *cobra.Command) error {
	inputs := make([]resource.Attributes, len(args))
	for i, arg := range args {
		attrs, err := parseAttributes(arg)
		if err != nil {
			return err
		}
		inputs[i] = attrs
	}

	s := newSession(opts.RootOptions, cmd)
	ctx := cmd.Context()

	tasks := make([]*syncx.Task, len(inputs))
	var g errgroup.Group
	g.SetLimit(maxConcurrentCreates)
	for i, attrs := range inputs {
		g.Go(func() error {
			tasks[i] = s.coord.Create(ctx, attrs, syncx.Optimistic(opts.Optimistic))
			return s.settle(ctx, tasks[i])
		})
	}
	if err := g.Wait(); err != nil {
		_ = s.out.Error(err)
		return err
	}

	state := s.store.State()
	created := make([]*resource.Resource, 0, len(tasks))
	for _, t := range tasks {
		if r, _ := state.Find(t.Address()); r != nil {
			created = append(created, r)
		}
	}
	return s.out.Resources(created)
}
