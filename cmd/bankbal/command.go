package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/matsen/bankbal/internal/dispatch"
	"github.com/spf13/cobra"
)

// command adapts a cobra command constructor to a dispatch handler. Each
// invocation gets a fresh command so flag state never leaks between runs.
// Flag and positional-argument errors become usage errors.
func (a *app) command(newCmd func() *cobra.Command) dispatch.Handler {
	return func(ctx context.Context, args []string) error {
		cmd := newCmd()
		if args == nil {
			// cobra falls back to os.Args on nil
			args = []string{}
		}
		cmd.SetArgs(args)
		cmd.SetOut(a.stdout)
		cmd.SetErr(a.stderr)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
			return dispatch.Usage(err)
		})

		validate := cmd.Args
		if validate == nil {
			validate = cobra.NoArgs
		}
		cmd.Args = func(c *cobra.Command, args []string) error {
			if err := validate(c, args); err != nil {
				return dispatch.Usage(err)
			}
			return nil
		}
		return cmd.ExecuteContext(ctx)
	}
}

// requireFlags returns a usage error naming every listed flag left empty.
func requireFlags(cmd *cobra.Command, names ...string) error {
	var missing []string
	for _, name := range names {
		f := cmd.Flags().Lookup(name)
		if f == nil || f.Value.String() == "" {
			missing = append(missing, `"`+name+`"`)
		}
	}
	if len(missing) > 0 {
		return dispatch.Usage(fmt.Errorf("required flag(s) %s not set", strings.Join(missing, ", ")))
	}
	return nil
}
