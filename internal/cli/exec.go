package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/query"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Driver string
	Params driver.Params
	Binds  []string
}

// StatementOutput is the result of one executed query.
type StatementOutput struct {
	Query   string     `json:"query"`
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <query>...",
		Short: "Execute submission queries against a backend",
		Long: `Resolve the driver, connect, select the database and run each query in
order on one connection. Result rows are printed tab-separated; NULL fields
print as NULL.

Bind arguments apply to every query; each --bind is TYPE=VALUE, or NULL.

Connection settings come from the config file; flags override them.

Examples:
  fragio exec "operation=create_frag;frag_name=f1;" "operation=select;field=*;from=f1;"
  fragio exec --driver relational:mysql --host db --user fragio --db odb \
    "operation=function;func_name=size;arg='odb';"
  fragio exec --driver objstore:unix --socket /run/fragio/io.sock \
    "operation=select;field=id_dim;from=f1;"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Driver, "driver", "", "driver identifier TYPE:SUBTYPE")
	cmd.Flags().StringVar(&opts.Params.DSN, "dsn", "", "backend DSN, passed verbatim")
	cmd.Flags().StringVar(&opts.Params.Socket, "socket", "", "Unix socket path")
	cmd.Flags().StringVar(&opts.Params.Host, "host", "", "backend host")
	cmd.Flags().IntVar(&opts.Params.Port, "port", 0, "backend port")
	cmd.Flags().StringVar(&opts.Params.User, "user", "", "backend user")
	cmd.Flags().StringVar(&opts.Params.Password, "password", "", "backend password")
	cmd.Flags().StringVar(&opts.Params.Database, "db", "", "database to select after connecting")
	cmd.Flags().StringArrayVar(&opts.Binds, "bind", nil, "bind argument TYPE=VALUE (repeatable)")

	return cmd
}

// mergeParams overlays the flags the user set onto the configured params.
func mergeParams(base driver.Params, flags driver.Params, cmd *cobra.Command) driver.Params {
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if set("dsn") {
		base.DSN = flags.DSN
	}
	if set("socket") {
		base.Socket = flags.Socket
	}
	if set("host") {
		base.Host = flags.Host
	}
	if set("port") {
		base.Port = flags.Port
	}
	if set("user") {
		base.User = flags.User
	}
	if set("password") {
		base.Password = flags.Password
	}
	if set("db") {
		base.Database = flags.Database
	}
	return base
}

func runExec(opts *ExecOptions, queries []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	identifier := opts.serverIdentifier(opts.Driver)
	params := mergeParams(opts.Config.Params, opts.Params, cmd)

	binds, err := parseBinds(opts.Binds)
	if err != nil {
		return out.Fail(ExitCommandError, "invalid bind", err)
	}

	h, err := opts.openHandle(identifier)
	if err != nil {
		return out.Fail(ExitCommandError, "failed to set up driver", err)
	}
	defer h.Cleanup()

	out.VerboseLog("connecting %s %s", identifier, params)
	if err := h.Connect(cmd.Context(), params); err != nil {
		return out.Fail(ExitCommandError, "failed to connect", err)
	}

	results := make([]StatementOutput, 0, len(queries))
	for _, text := range queries {
		res, err := execOne(cmd, h, text, binds)
		if err != nil {
			return out.Fail(ExitFailure, "query failed", err)
		}
		results = append(results, res)
	}

	if opts.Format == "json" {
		return out.Success(results)
	}
	w := cmd.OutOrStdout()
	for _, res := range results {
		if len(res.Columns) == 0 {
			continue
		}
		fmt.Fprintln(w, strings.Join(res.Columns, "\t"))
		for _, row := range res.Rows {
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
	}
	return nil
}

func execOne(cmd *cobra.Command, h *driver.Handle, text string, binds []query.BindArg) (StatementOutput, error) {
	rs, err := h.Exec(cmd.Context(), text, binds)
	if err != nil {
		return StatementOutput{}, err
	}
	defer h.Driver().FreeResult(rs)

	res := StatementOutput{Query: text, Columns: rs.Columns, Rows: [][]string{}}
	for {
		row, err := h.Driver().FetchRow(rs)
		if err != nil {
			return StatementOutput{}, err
		}
		if row == nil {
			return res, nil
		}
		res.Rows = append(res.Rows, row.Strings())
	}
}
