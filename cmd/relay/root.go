package main

import (
	"github.com/spf13/cobra"

	"github.com/pthm/relay/internal/cli"
	"github.com/pthm/relay/internal/logger"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string
	log        *logger.Logger

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Configuration tooling for the relay data gateway",
	Long: `relay - configuration tooling for the relay data gateway

Relay exposes database tables, views and stored procedures as REST and
GraphQL endpoints from a single runtime configuration. This tool validates
that configuration against the database and previews the statements the
gateway builds from it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			log = logger.Discard()
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		log, err = cfg.NewLogger()
		if err != nil {
			return cli.ConfigError("opening log file", err)
		}
		switch {
		case verbose > 0:
			log.SetLevel(logger.DEBUG)
		case quiet:
			log.SetLevel(logger.ERROR)
		}
		if configPath != "" {
			log.Debugf("using config file %s", configPath)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if log != nil {
			return log.Close()
		}
		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupConfig  = "config"
	groupQuery   = "query"
	groupUtility = "utility"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover relay.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupConfig, Title: "Runtime Config:"},
		&cobra.Group{ID: groupQuery, Title: "Query:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	validateCmd.GroupID = groupConfig
	introspectCmd.GroupID = groupConfig
	doctorCmd.GroupID = groupConfig
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(introspectCmd)
	rootCmd.AddCommand(doctorCmd)

	planCmd.GroupID = groupQuery
	rootCmd.AddCommand(planCmd)

	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
