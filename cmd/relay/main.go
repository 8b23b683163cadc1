// Command relay checks gateway runtime configurations against a database
// and previews the statements the gateway would issue.
//
// The CLI supports:
//   - validate: Check a runtime config, including relationships when schema metadata is available
//   - plan: Build an upsert for an entity and print the SQL it renders to
//   - introspect: Record database schema metadata to a snapshot file
//   - doctor: Run health checks on a deployment
//
// Usage:
//
//	relay [flags] <command>
//
// Commands that read schema metadata take --db or --snapshot, falling back
// to database.url and snapshot in relay.yaml.
package main

func main() {
	Execute()
}
