package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/relay"
	"github.com/pthm/relay/internal/cli"
	"github.com/pthm/relay/pkg/metadata"
	"github.com/pthm/relay/pkg/validator"
)

var (
	validateRuntime  string
	validateDB       string
	validateSnapshot string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a runtime config",
	Long: `Validate a runtime config: data source, authentication, routes, entity
names and permissions. Relationships are validated too when schema metadata
is available from a database or a snapshot.`,
	Example: `  # Validate the runtime config named in relay.yaml
  relay validate

  # Validate against a recorded snapshot
  relay validate --runtime-config relay-config.json --snapshot schema.msgpack

  # Validate against a live database
  relay validate --db postgres://localhost/books`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, path, err := loadRuntimeConfig(validateRuntime)
		if err != nil {
			return err
		}

		// Nil unless metadata is available, so relationships are skipped.
		var provider metadata.Provider
		static, err := loadMetadata(cmd.Context(), rc, validateDB, validateSnapshot)
		switch {
		case errors.Is(err, errNoMetadata):
			log.Infof("no schema metadata available, skipping relationship validation")
		case err != nil:
			return err
		default:
			provider = static
		}

		v := validator.New(append(cfg.ValidatorOptions(), validator.WithLogger(log))...)
		if err := v.Validate(rc, provider); err != nil {
			if relay.IsConfigValidationErr(err) {
				return cli.ConfigValidationError(err)
			}
			return cli.GeneralError("validating runtime config", err)
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid. Found %d entities.\n", path, len(rc.Entities))
		}
		return nil
	},
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&validateRuntime, "runtime-config", "", "path to the runtime config")
	f.StringVar(&validateDB, "db", "", "database URL to introspect")
	f.StringVar(&validateSnapshot, "snapshot", "", "schema metadata snapshot file")
}
