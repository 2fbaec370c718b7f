package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dropfarm/internal/api"
	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/model"
)

// now is swapped in tests for stable relative times.
var now = time.Now

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// report prints a daemon rejection and converts it to an exit error.
func report(out *OutputFormatter, err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	_ = out.Error(apiErr.Code, apiErr.Message, map[string]int{"status": apiErr.Status})
	return WrapExitError(ExitFailure, "daemon rejected command", err)
}

// clientCommand builds a command whose RunE receives a ready client and
// formatter.
func clientCommand(opts *RootOptions, use, short string, args cobra.PositionalArgs,
	run func(c *Client, out *OutputFormatter, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          args,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			out.VerboseLog("control api: %s", opts.Addr)
			return report(out, run(NewClient(opts.Addr, opts.Timeout), out, args))
		},
	}
}

func stateResult(out *OutputFormatter, st model.FarmingState) error {
	return out.Success(st, func(w io.Writer) error {
		return renderStatus(w, st, now())
	})
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return clientCommand(opts, "status", "Show farming state", cobra.NoArgs,
		func(c *Client, out *OutputFormatter, _ []string) error {
			var st model.FarmingState
			if err := c.Get("/state", &st); err != nil {
				return err
			}
			return stateResult(out, st)
		})
}

// NewCampaignsCommand creates the campaigns command.
func NewCampaignsCommand(opts *RootOptions) *cobra.Command {
	var force bool
	cmd := clientCommand(opts, "campaigns", "List campaigns with drops", cobra.NoArgs,
		func(c *Client, out *OutputFormatter, _ []string) error {
			path := "/campaigns"
			if force {
				path += "?force=true"
			}
			var games []model.Campaign
			if err := c.Get(path, &games); err != nil {
				return err
			}
			return out.Success(games, func(w io.Writer) error {
				return renderCampaigns(w, games, now())
			})
		})
	cmd.Flags().BoolVar(&force, "force", false, "bypass the campaign cache")
	return cmd
}

// NewSelectCommand creates the select command.
func NewSelectCommand(opts *RootOptions) *cobra.Command {
	var id string
	cmd := clientCommand(opts, "select [name]", "Select the campaign to farm", cobra.MaximumNArgs(1),
		func(c *Client, out *OutputFormatter, args []string) error {
			target := model.Campaign{ID: id}
			if len(args) == 1 {
				target.Name = args[0]
			}
			if target.Name == "" && target.ID == "" {
				return NewExitError(ExitCommandError, "select needs a campaign name or --id")
			}
			var picked model.Campaign
			if err := c.Post("/campaigns/select", target, &picked); err != nil {
				return err
			}
			return out.Success(picked, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Selected %s\n", campaignLine(picked, now()))
				return err
			})
		})
	cmd.Flags().StringVar(&id, "id", "", "game id of the campaign")
	return cmd
}

// NewQueueCommand creates the queue command group.
func NewQueueCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the campaign queue",
	}

	queueResult := func(out *OutputFormatter, queue []model.Campaign) error {
		return out.Success(queue, func(w io.Writer) error {
			return renderQueue(w, queue, now())
		})
	}

	var id string
	add := clientCommand(opts, "add [name]", "Append a campaign to the queue", cobra.MaximumNArgs(1),
		func(c *Client, out *OutputFormatter, args []string) error {
			target := model.Campaign{ID: id}
			if len(args) == 1 {
				target.Name = args[0]
			}
			if target.Name == "" && target.ID == "" {
				return NewExitError(ExitCommandError, "queue add needs a campaign name or --id")
			}
			var queue []model.Campaign
			if err := c.Post("/queue", target, &queue); err != nil {
				return err
			}
			return queueResult(out, queue)
		})
	add.Flags().StringVar(&id, "id", "", "game id of the campaign")

	remove := clientCommand(opts, "remove <key>", "Remove a campaign by id or name", cobra.ExactArgs(1),
		func(c *Client, out *OutputFormatter, args []string) error {
			var queue []model.Campaign
			if err := c.Delete("/queue/"+escape(args[0]), &queue); err != nil {
				return err
			}
			return queueResult(out, queue)
		})

	clearCmd := clientCommand(opts, "clear", "Empty the queue", cobra.NoArgs,
		func(c *Client, out *OutputFormatter, _ []string) error {
			if err := c.Delete("/queue", nil); err != nil {
				return err
			}
			return queueResult(out, []model.Campaign{})
		})

	list := clientCommand(opts, "list", "Show the queue", cobra.NoArgs,
		func(c *Client, out *OutputFormatter, _ []string) error {
			var queue []model.Campaign
			if err := c.Get("/queue", &queue); err != nil {
				return err
			}
			return queueResult(out, queue)
		})

	cmd.AddCommand(add, remove, clearCmd, list)
	return cmd
}

// NewFarmingCommands creates start, pause, resume and stop.
func NewFarmingCommands(opts *RootOptions) []*cobra.Command {
	verbs := []struct{ use, short string }{
		{"start", "Start farming the selected campaign or the queue head"},
		{"pause", "Pause farming without releasing the viewer"},
		{"resume", "Resume paused farming"},
		{"stop", "Stop farming and release the viewer"},
	}
	cmds := make([]*cobra.Command, 0, len(verbs))
	for _, v := range verbs {
		path := "/farming/" + v.use
		cmds = append(cmds, clientCommand(opts, v.use, v.short, cobra.NoArgs,
			func(c *Client, out *OutputFormatter, _ []string) error {
				var st model.FarmingState
				if err := c.Post(path, nil, &st); err != nil {
					return err
				}
				return stateResult(out, st)
			}))
	}
	return cmds
}

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(opts *RootOptions) *cobra.Command {
	return clientCommand(opts, "refresh", "Force a full drop refresh", cobra.NoArgs,
		func(c *Client, out *OutputFormatter, _ []string) error {
			var st model.FarmingState
			if err := c.Post("/drops/refresh", nil, &st); err != nil {
				return err
			}
			return stateResult(out, st)
		})
}

// NewSessionCommand creates the session command, which hands a token to
// the daemon.
func NewSessionCommand(opts *RootOptions) *cobra.Command {
	var userID string
	cmd := clientCommand(opts, "session <oauth-token>", "Push a session token to the daemon", cobra.ExactArgs(1),
		func(c *Client, out *OutputFormatter, args []string) error {
			var resp api.SessionResponse
			req := api.SessionRequest{OAuthToken: args[0], UserID: userID}
			if err := c.Post("/session", req, &resp); err != nil {
				return err
			}
			return out.Success(resp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Session accepted for user %s (token %s)\n", resp.UserID, resp.Token)
				return err
			})
		})
	cmd.Flags().StringVar(&userID, "user-id", "", "user id, resolved from the token when empty")
	return cmd
}

// NewClaimsCommand creates the claims command.
func NewClaimsCommand(opts *RootOptions) *cobra.Command {
	var limit int
	cmd := clientCommand(opts, "claims", "Show recent claim attempts", cobra.NoArgs,
		func(c *Client, out *OutputFormatter, _ []string) error {
			var recs []engine.ClaimRecord
			if err := c.Get("/claims?limit="+strconv.Itoa(limit), &recs); err != nil {
				return err
			}
			return out.Success(recs, func(w io.Writer) error {
				return renderClaims(w, recs)
			})
		})
	cmd.Flags().IntVar(&limit, "limit", 20, "number of records")
	return cmd
}
