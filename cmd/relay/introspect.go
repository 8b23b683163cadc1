package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/relay/internal/cli"
	"github.com/pthm/relay/pkg/metadata"
)

var (
	introspectRuntime string
	introspectDB      string
	introspectOut     string
	introspectWorkers int
)

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Record schema metadata to a snapshot",
	Long: `Read the columns, keys and foreign keys of every entity's database object
and write them to a snapshot file. Snapshots let validate, plan and doctor
run without a database connection.`,
	Example: `  # Record a snapshot using database.url and snapshot from relay.yaml
  relay introspect

  # Record from an explicit database
  relay introspect --db postgres://localhost/books --out schema.msgpack`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, _, err := loadRuntimeConfig(introspectRuntime)
		if err != nil {
			return err
		}

		out := resolveString(introspectOut, cfg.Snapshot)
		if out == "" {
			return cli.ConfigError("snapshot path is required (use --out or set snapshot in config)", nil)
		}

		dsn := introspectDB
		if dsn == "" {
			if dsn, err = cfg.DSN(rc); err != nil {
				return cli.ConfigError("database configuration", err)
			}
		}
		d, err := cfg.Dialect(rc)
		if err != nil {
			return cli.ConfigError("database dialect", err)
		}

		db, err := metadata.Open(cmd.Context(), d, dsn)
		if err != nil {
			return cli.DBConnectError("connecting to database", err)
		}
		defer func() { _ = db.Close() }()

		provider, err := metadata.Introspect(cmd.Context(), db, d, rc, metadata.IntrospectOptions{Workers: introspectWorkers})
		if err != nil {
			return introspectionError(err)
		}
		if err := metadata.SaveSnapshotFile(out, provider); err != nil {
			return cli.GeneralError("writing snapshot", err)
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d objects, %d foreign keys.\n",
				out, len(provider.EntityToDatabaseObject()), len(provider.ForeignKeys()))
		}
		return nil
	},
}

func init() {
	f := introspectCmd.Flags()
	f.StringVar(&introspectRuntime, "runtime-config", "", "path to the runtime config")
	f.StringVar(&introspectDB, "db", "", "database URL (default: database.url, then the runtime config connection string)")
	f.StringVar(&introspectOut, "out", "", "snapshot file to write")
	f.IntVar(&introspectWorkers, "workers", 4, "concurrent table loads")
}
