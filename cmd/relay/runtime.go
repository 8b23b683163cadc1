package main

import (
	"context"
	"errors"

	"github.com/pthm/relay"
	"github.com/pthm/relay/internal/cli"
	"github.com/pthm/relay/pkg/config"
	"github.com/pthm/relay/pkg/metadata"
)

// errNoMetadata is wrapped in the error loadMetadata returns when neither a
// database nor a snapshot is configured.
var errNoMetadata = errors.New("no schema metadata source: use --db or --snapshot")

// loadRuntimeConfig reads the runtime config named by the flag, or by
// runtime_config in relay.yaml.
func loadRuntimeConfig(flagPath string) (*config.RuntimeConfig, string, error) {
	path := resolveString(flagPath, cfg.RuntimeConfig)
	rc, err := config.Load(path)
	if err != nil {
		return nil, path, cli.RuntimeConfigError("loading runtime config", err)
	}
	log.Debugf("loaded runtime config %s with %d entities", path, len(rc.Entities))
	return rc, path, nil
}

// loadMetadata returns schema metadata for rc. An explicit --db wins over
// an explicit --snapshot; without flags database.url wins over snapshot.
func loadMetadata(ctx context.Context, rc *config.RuntimeConfig, dbFlag, snapshotFlag string) (*metadata.Static, error) {
	dsn := dbFlag
	if dsn == "" && snapshotFlag == "" {
		dsn = cfg.Database.URL
	}
	if dsn != "" {
		return introspectDatabase(ctx, rc, dsn)
	}

	snapshot := resolveString(snapshotFlag, cfg.Snapshot)
	if snapshot == "" {
		return nil, cli.ConfigError("schema metadata", errNoMetadata)
	}
	provider, err := metadata.LoadSnapshotFile(snapshot)
	if err != nil {
		return nil, cli.GeneralError("loading snapshot", err)
	}
	provider.UseMappings(rc)
	log.Debugf("loaded snapshot %s with %d objects", snapshot, len(provider.EntityToDatabaseObject()))
	return provider, nil
}

func introspectDatabase(ctx context.Context, rc *config.RuntimeConfig, dsn string) (*metadata.Static, error) {
	d, err := cfg.Dialect(rc)
	if err != nil {
		return nil, cli.ConfigError("database dialect", err)
	}
	db, err := metadata.Open(ctx, d, dsn)
	if err != nil {
		return nil, cli.DBConnectError("connecting to database", err)
	}
	defer func() { _ = db.Close() }()

	log.Debugf("introspecting %s database", d)
	provider, err := metadata.Introspect(ctx, db, d, rc, metadata.IntrospectOptions{})
	if err != nil {
		return nil, introspectionError(err)
	}
	return provider, nil
}

// introspectionError picks the exit code for an Introspect failure. Catalog
// reads that fail on the database side exit as connectivity errors.
func introspectionError(err error) error {
	if relay.IsInitializationErr(err) {
		return cli.DBConnectError("introspecting database", err)
	}
	return cli.GeneralError("introspecting database", err)
}
