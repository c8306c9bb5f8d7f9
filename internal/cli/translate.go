package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fragio/internal/harness"
	"github.com/roach88/fragio/internal/query"
)

// TranslateOptions holds flags for the translate command.
type TranslateOptions struct {
	*RootOptions
	Driver string
	Binds  []string
}

// PlanOutput describes a translated plan.
type PlanOutput struct {
	Driver       string `json:"driver"`
	Operation    string `json:"operation"`
	Kind         string `json:"kind"`
	SQL          string `json:"sql"`
	Placeholders int    `json:"placeholders"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate <query>",
		Short: "Translate a submission query without executing it",
		Long: `Parse a submission query and print the statement the driver would run.

Bind arguments make the plan prepared; each --bind is TYPE=VALUE, or NULL.

Examples:
  fragio translate --driver relational:mysql "operation=select;field=a|b;from=t;"
  fragio translate --driver relational:postgres --bind LONG=1 --bind NULL \
    "operation=insert;frag_name=f;field=a|b;value=?|?;"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Driver, "driver", "", "driver identifier TYPE:SUBTYPE")
	cmd.Flags().StringArrayVar(&opts.Binds, "bind", nil, "bind argument TYPE=VALUE (repeatable)")

	return cmd
}

func runTranslate(opts *TranslateOptions, text string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	identifier := opts.serverIdentifier(opts.Driver)

	binds, err := parseBinds(opts.Binds)
	if err != nil {
		return out.Fail(ExitCommandError, "invalid bind", err)
	}

	h, err := opts.openHandle(identifier)
	if err != nil {
		return out.Fail(ExitCommandError, "failed to set up driver", err)
	}
	defer h.Cleanup()

	plan, err := h.Driver().SetupQuery(text, binds)
	if err != nil {
		return out.Fail(ExitFailure, "translation failed", err)
	}
	defer h.Driver().FreeQuery(plan)

	result := PlanOutput{
		Driver:       identifier,
		Operation:    plan.Operation.String(),
		Kind:         plan.Kind.String(),
		SQL:          plan.SQL,
		Placeholders: len(plan.Args),
	}

	if opts.Format == "json" {
		return out.Success(result)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, result.SQL)
	out.VerboseLog("driver=%s operation=%s kind=%s placeholders=%d",
		result.Driver, result.Operation, result.Kind, result.Placeholders)
	return nil
}

// parseBinds converts TYPE=VALUE flags into bind arguments.
func parseBinds(flags []string) ([]query.BindArg, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	binds := make([]query.BindArg, len(flags))
	for i, f := range flags {
		typ, value, _ := strings.Cut(f, "=")
		arg, err := harness.Bind{Type: typ, Value: value}.Arg()
		if err != nil {
			return nil, err
		}
		binds[i] = arg
	}
	return binds, nil
}
