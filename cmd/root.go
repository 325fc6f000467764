/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codervisor/devlog/internal/logger"
	"github.com/codervisor/devlog/store"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables verbose output.
	verbose bool
	// jsonOutput switches command output to JSON.
	jsonOutput bool
	// version is the application version.
	version = "0.3.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "devlog",
	Short: "devlog tracks your development work as structured journal entries.",
	Long: `devlog is a development log tracker. It stores entries (features, bugfixes,
tasks) as structured records with notes, decisions, and context, in one of
several backends: a single JSON file, SQLite, or a git-backed repository
that syncs across machines.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			_ = cmd.Help()
			os.Exit(0)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer logger.HandlePanic()

	logger.SetVersion(version)
	if len(os.Args) > 1 {
		logger.SetCommand(strings.Join(os.Args[1:], " "))
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(InitConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.devlog/.devlog.yaml or $HOME/.devlog.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func isVerbose() bool {
	return verbose || GetConfig().Verbose
}

func isJSON() bool {
	return jsonOutput
}

// GetProvider constructs the storage backend from the loaded configuration.
// Callers own the returned provider and must Dispose it.
func GetProvider() (store.Provider, error) {
	config := GetConfig()
	provider, err := store.NewProvider(config.Storage, config.Workspace, isVerbose())
	if err != nil {
		return nil, fmt.Errorf("failed to construct storage provider: %w", err)
	}
	return provider, nil
}

// parseEntryID converts a CLI argument into an entry id.
func parseEntryID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid entry id %q: expected a positive number", arg)
	}
	return id, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
