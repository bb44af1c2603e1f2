package cli

import (
	"github.com/spf13/cobra"

	"github.com/erauner12/toolbridge-resources/internal/resource"
	"github.com/erauner12/toolbridge-resources/internal/syncx"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Optimistic bool
	Patch      bool
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id> <json>",
		Short: "Update a resource by its server id",
		Long: `Update a resource. Without --patch the attributes replace the stored
ones (PUT); with --patch they are merged (PATCH).

Example:
  resourcectl update 12 '{"done":true}' --patch --optimistic`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Optimistic, "optimistic", false, "apply the change locally before the server confirms")
	cmd.Flags().BoolVar(&opts.Patch, "patch", false, "merge attributes instead of replacing them")

	return cmd
}

func runUpdate(opts *UpdateOptions, id, arg string, cmd *cobra.Command) error {
	attrs, err := parseAttributes(arg)
	if err != nil {
		return err
	}

	s := newSession(opts.RootOptions, cmd)
	s.transport.PatchUpdates = opts.Patch
	ctx := cmd.Context()

	if err := s.fetch(ctx); err != nil {
		_ = s.out.Error(err)
		return err
	}
	target, err := s.find(id)
	if err != nil {
		return err
	}

	task := s.coord.Update(ctx, attrs, target.Address(),
		syncx.Optimistic(opts.Optimistic),
		syncx.PatchMode(opts.Patch),
	)
	if err := s.settle(ctx, task); err != nil {
		_ = s.out.Error(err)
		return err
	}

	updated, _ := s.store.State().Find(task.Address())
	if updated == nil {
		return s.out.Resources(nil)
	}
	return s.out.Resources([]*resource.Resource{updated})
}
