package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/fragio/internal/config"
	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/driver/relational"

	// Registers the object-storage client driver.
	_ "github.com/roach88/fragio/internal/driver/objstore"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config is loaded before any subcommand runs; defaults when no
	// --config is given.
	Config *config.Config

	// Registry resolves driver identifiers. Defaults to driver.Default().
	Registry *driver.Registry
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the fragio CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fragio",
		Short: "fragio - pluggable fragment I/O server",
		Long: `fragio translates submission queries into backend statements and runs
them through pluggable drivers identified as TYPE:SUBTYPE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
			return opts.load()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	// Add subcommands
	cmd.AddCommand(NewTranslateCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewDriversCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setupLogging installs a text handler on w; debug level when verbose.
func setupLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// load reads the config file and the driver manifest it names.
func (o *RootOptions) load() error {
	if o.Registry == nil {
		o.Registry = driver.Default()
	}

	if o.Config == nil {
		if o.ConfigPath == "" {
			o.Config = config.Default()
		} else {
			c, err := config.Load(o.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			o.Config = c
		}
	}

	if o.Config.Manifest != "" {
		if err := loadManifest(o.Registry, o.Config.Manifest); err != nil {
			return err
		}
	}
	return nil
}

func loadManifest(reg *driver.Registry, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open manifest", err)
	}
	defer f.Close()
	if err := reg.LoadManifest(f); err != nil {
		return WrapExitError(ExitCommandError, "failed to load manifest", err)
	}
	return nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:  o.Format,
		Writer:  cmd.OutOrStdout(),
		Log:     cmd.ErrOrStderr(),
		Verbose: o.Verbose,
	}
}

// openHandle resolves identifier and sets the handle up without
// connecting. Relational drivers get the configured statement ceiling.
func (o *RootOptions) openHandle(identifier string) (*driver.Handle, error) {
	h, err := o.Registry.Resolve(identifier)
	if err != nil {
		return nil, err
	}
	if d, ok := h.Driver().(*relational.Driver); ok {
		d.MaxQueryLength = o.Config.MaxQueryLength
	}
	if err := h.Setup(); err != nil {
		h.Cleanup()
		return nil, err
	}
	return h, nil
}

// serverIdentifier picks the --driver flag, then the config file, then the
// in-memory sqlite3 backend.
func (o *RootOptions) serverIdentifier(flag string) string {
	switch {
	case flag != "":
		return flag
	case o.Config.Server != "":
		return o.Config.Server
	default:
		return relational.TypeName + driver.IdentifierSeparator + relational.SQLite
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
