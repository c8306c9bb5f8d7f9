package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/fragio/internal/translate"
)

// DriversOptions holds flags for the drivers command.
type DriversOptions struct {
	*RootOptions
	Manifest string
}

// DriversOutput lists what the registry can resolve.
type DriversOutput struct {
	Drivers  []string          `json:"drivers"`
	Aliases  map[string]string `json:"aliases"`
	Dialects []string          `json:"dialects"`
}

// NewDriversCommand creates the drivers command.
func NewDriversCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DriversOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "List registered drivers and manifest aliases",
		Long: `List the driver types compiled into fragio, the SQL dialects the
relational driver accepts as subtypes, and the TYPE aliases a manifest
installs.

A manifest has one "[TYPE]" line per entry followed by the path of the
implementation it maps to:

  [oph]
  /usr/lib/fragio/librelational.so`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrivers(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "driver manifest to load")

	return cmd
}

func runDrivers(opts *DriversOptions, cmd *cobra.Command) error {
	if opts.Manifest != "" {
		if err := loadManifest(opts.Registry, opts.Manifest); err != nil {
			return err
		}
	}

	result := DriversOutput{
		Drivers:  opts.Registry.Drivers(),
		Aliases:  opts.Registry.Aliases(),
		Dialects: translate.Dialects(),
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Drivers:")
	for _, name := range result.Drivers {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintln(w, "Dialects:")
	for _, name := range result.Dialects {
		fmt.Fprintf(w, "  %s\n", name)
	}
	if len(result.Aliases) > 0 {
		fmt.Fprintln(w, "Aliases:")
		types := make([]string, 0, len(result.Aliases))
		for typ := range result.Aliases {
			types = append(types, typ)
		}
		slices.Sort(types)
		for _, typ := range types {
			fmt.Fprintf(w, "  %s -> %s\n", typ, result.Aliases[typ])
		}
	}
	return nil
}
