package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"jobchat/internal/api"
	"jobchat/internal/chat"
	"jobchat/internal/render"
)

func (a *app) askCmd() *cobra.Command {
	var dryRun, raw bool
	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send one prompt and print the answer",
		Example: `  jobchat ask "show all jobs"
  jobchat ask --dry-run "update my profile headline to Go developer"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var exec chat.Executor = a.client
			if dryRun {
				exec = chat.ExecutorFunc(a.client.Generate)
			}
			ctl := chat.NewController(exec, chat.WithGreeting(""), chat.WithLogger(a.log))

			reply, err := ctl.Submit(a.requestContext(cmd.Context()), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if raw {
				fmt.Fprintln(a.streams.Out, reply.Content)
			} else {
				fmt.Fprintln(a.streams.Out, render.Plain(reply, a.colorOutput()))
			}
			if reply.IsError() {
				return errSilent
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only generate the GraphQL, do not run it")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the markdown reply as received")
	return cmd
}

func (a *app) queryCmd() *cobra.Command {
	var vars []string
	cmd := &cobra.Command{
		Use:   "query <graphql>",
		Short: "Run a GraphQL operation with the saved session",
		Example: `  jobchat query 'query { jobs { id title } }'
  jobchat query 'query Job($id: Int!) { job(id: $id) { title } }' --var id=3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variables, err := parseVars(vars)
			if err != nil {
				return err
			}
			res, err := a.client.GraphQL(a.requestContext(cmd.Context()), args[0], variables)
			if err != nil {
				return err
			}

			body := struct {
				Data   json.RawMessage    `json:"data,omitempty"`
				Errors []api.GraphQLError `json:"errors,omitempty"`
			}{Data: res.Data, Errors: res.Errors}
			out, err := json.MarshalIndent(body, "", "  ")
			if err != nil {
				return fmt.Errorf("encode response: %w", err)
			}
			if a.colorOutput() {
				fmt.Fprintln(a.streams.Out, strings.TrimRight(render.Code(string(out), "json"), "\n"))
			} else {
				fmt.Fprintln(a.streams.Out, string(out))
			}
			if len(res.Errors) > 0 {
				return errSilent
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&vars, "var", nil, "variable as name=value; JSON values are decoded (repeatable)")
	return cmd
}

// parseVars turns name=value pairs into GraphQL variables. Values that parse
// as JSON keep their type; anything else is a string.
func parseVars(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: want name=value", p)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			out[name] = decoded
		} else {
			out[name] = value
		}
	}
	return out, nil
}

func (a *app) colorOutput() bool {
	f, ok := a.streams.Out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
