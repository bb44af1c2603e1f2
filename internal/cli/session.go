package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/erauner12/toolbridge-resources/internal/auth"
	"github.com/erauner12/toolbridge-resources/internal/client"
	"github.com/erauner12/toolbridge-resources/internal/config"
	"github.com/erauner12/toolbridge-resources/internal/resource"
	"github.com/erauner12/toolbridge-resources/internal/store"
	"github.com/erauner12/toolbridge-resources/internal/syncx"
)

// session wires one command run: HTTP client, transport, store and coordinator
type session struct {
	cfg       *config.Config
	transport *client.Transport
	store     *store.Store
	coord     *syncx.Coordinator
	out       *OutputFormatter
}

func newSession(opts *RootOptions, cmd *cobra.Command) *session {
	cfg := opts.Config

	var (
		tp       client.TokenProvider
		debugSub string
	)
	if cfg.DevMode {
		debugSub = cfg.Subject
	} else {
		tp = auth.NewSigner(cfg.JWTSecret, cfg.Subject, 0)
	}

	httpClient := client.NewHTTPClient(cfg.APIBaseURL, tp, debugSub, cfg.RequestTimeout.Std())
	transport := client.NewTransport(client.NewCollectionClient(httpClient, cfg.Collection))
	st := store.New(resource.NewReducer(cfg.Indexes...),
		store.WithName(cfg.Collection),
		store.WithLogger(log.Logger),
	)

	return &session{
		cfg:       cfg,
		transport: transport,
		store:     st,
		coord:     syncx.New(transport, st, syncx.WithLogger(log.Logger)),
		out:       &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
	}
}

// fetch loads the whole collection into the store
func (s *session) fetch(ctx context.Context) error {
	return s.settle(ctx, s.coord.FetchAll(ctx))
}

// settle waits for t and turns a remote failure into ExitFailure
func (s *session) settle(ctx context.Context, t *syncx.Task) error {
	err := t.Wait(ctx)
	if err == nil {
		return nil
	}

	var (
		remote   *resource.RemoteError
		notFound *resource.NotFoundError
	)
	switch {
	case errors.As(err, &remote):
		return WrapExitError(ExitFailure, string(t.Workflow())+" failed", err)
	case errors.As(err, &notFound), errors.Is(err, syncx.ErrNotPersisted):
		return WrapExitError(ExitCommandError, string(t.Workflow())+" rejected", err)
	default:
		return err
	}
}

// find resolves a persisted id given on the command line
func (s *session) find(id string) (*resource.Resource, error) {
	r, _ := s.store.State().Find(resource.Persisted(id))
	if r == nil {
		return nil, WrapExitError(ExitCommandError, "unknown resource",
			&resource.NotFoundError{Op: resource.KindRequest, Address: resource.Persisted(id)})
	}
	return r, nil
}

// parseAttributes decodes a JSON object argument
func parseAttributes(arg string) (resource.Attributes, error) {
	var attrs resource.Attributes
	if err := json.Unmarshal([]byte(arg), &attrs); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid JSON object %q", arg), err)
	}
	if attrs == nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid JSON object %q", arg), errors.New("null"))
	}
	return attrs, nil
}
