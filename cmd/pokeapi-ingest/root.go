package main

import (
	"fmt"
	"os"

	"github.com/Sternrassler/pokeapi-ingest/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Without a subcommand it runs fetch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pokeapi-ingest",
		Short: "Ingest Pokémon data from PokéAPI into a CSV table",
		Long: `pokeapi-ingest fetches one listing page from PokéAPI, fetches the detail
document of every listed Pokémon, flattens them into rows and writes them
as CSV. Entries that fail are logged and skipped; a listing failure aborts
the run without writing a file.

Configuration is read from defaults, a YAML file (--config, ./.pokeapi-ingest.yaml
or the XDG config directory), POKEAPI_* environment variables and flags,
in increasing precedence.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runFetchCmd,
	}

	cmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error, disabled)")
	cmd.PersistentFlags().Bool("log-pretty", false, "Human-readable console logs instead of JSON")
	addFetchFlags(cmd)

	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
