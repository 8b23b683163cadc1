package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/relay/internal/cli"
	"github.com/pthm/relay/internal/doctor"
	"github.com/pthm/relay/pkg/config"
	"github.com/pthm/relay/pkg/validator"
)

var (
	doctorRuntime  string
	doctorDB       string
	doctorSnapshot string
	doctorVerbose  bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks",
	Long:  `Run health checks on a relay deployment: runtime config, validation, schema metadata and entity objects.`,
	Example: `  # Run health checks
  relay doctor --db postgres://localhost/books

  # Check against a snapshot with verbose output
  relay doctor --snapshot schema.msgpack --details`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runtimePath := resolveString(doctorRuntime, cfg.RuntimeConfig)
		v := validator.New(append(cfg.ValidatorOptions(), validator.WithLogger(log))...)
		opts := []doctor.Option{doctor.WithValidator(v)}

		dsn := resolveString(doctorDB, cfg.Database.URL)
		if dsn != "" {
			// The doctor reports a bad runtime config itself; it is only
			// read here to pick the dialect.
			rc, _ := config.Load(runtimePath)
			d, err := cfg.Dialect(rc)
			if err != nil {
				return cli.ConfigError("database dialect", err)
			}
			db, err := sql.Open(d.DriverName(), dsn)
			if err != nil {
				return cli.DBConnectError("connecting to database", err)
			}
			defer func() { _ = db.Close() }()
			opts = append(opts, doctor.WithDatabase(db, d))
		} else if snapshot := resolveString(doctorSnapshot, cfg.Snapshot); snapshot != "" {
			opts = append(opts, doctor.WithSnapshot(snapshot))
		}

		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "relay doctor - Health Check")
		}

		report, err := doctor.New(runtimePath, opts...).Run(cmd.Context())
		if err != nil {
			return cli.GeneralError("running doctor", err)
		}

		report.Print(cmd.OutOrStdout(), doctorVerbose || verbose > 0)

		if report.HasErrors() {
			return cli.GeneralError("health checks failed", nil)
		}
		return nil
	},
}

func init() {
	f := doctorCmd.Flags()
	f.StringVar(&doctorRuntime, "runtime-config", "", "path to the runtime config")
	f.StringVar(&doctorDB, "db", "", "database URL")
	f.StringVar(&doctorSnapshot, "snapshot", "", "schema metadata snapshot file")
	f.BoolVar(&doctorVerbose, "details", false, "show check details")
}
