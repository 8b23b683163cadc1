package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pthm/relay/internal/cli"
	"github.com/pthm/relay/pkg/config"
	"github.com/pthm/relay/pkg/metadata"
	"github.com/pthm/relay/pkg/policy"
	"github.com/pthm/relay/pkg/query"
)

var (
	planRuntime      string
	planDB           string
	planSnapshot     string
	planEntity       string
	planValues       string
	planIncremental  bool
	planDialect      string
	planRole         string
	planPolicyAction string
	planClaims       map[string]string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the upsert an entity mutation renders to",
	Long: `Build the upsert for a set of field values and print the SQL statement
and arguments. With --role and --policy-action the role's database policy
for that action is resolved against --claim values and printed as well.`,
	Example: `  # Full replacement of a book
  relay plan --snapshot schema.msgpack --entity Book --values '{"id": 1, "title": "Dune"}'

  # Incremental update read from stdin
  echo '{"id": 1, "title": "Dune"}' | relay plan --entity Book --values - --incremental

  # Show the row filter for an update policy
  relay plan --entity Book --values '{"id": 1}' --role author --policy-action update --claim userId=42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if planEntity == "" {
			return cli.ConfigError("--entity is required", nil)
		}

		rc, _, err := loadRuntimeConfig(planRuntime)
		if err != nil {
			return err
		}
		if _, ok := rc.Entities[planEntity]; !ok {
			return cli.GeneralError(fmt.Sprintf("unknown entity %q", planEntity), nil)
		}

		values, err := parseValues(planValues, cmd.InOrStdin())
		if err != nil {
			return cli.GeneralError("parsing --values", err)
		}

		dialect, err := planDialectFor(rc)
		if err != nil {
			return cli.ConfigError("database dialect", err)
		}

		provider, err := loadMetadata(cmd.Context(), rc, planDB, planSnapshot)
		if err != nil {
			return err
		}

		u, err := query.NewUpsert(planEntity, provider, values, planIncremental)
		if err != nil {
			return cli.GeneralError("building upsert", err)
		}
		sql, sqlArgs, err := query.Render(u, dialect)
		if err != nil {
			return cli.GeneralError("rendering upsert", err)
		}

		out := cmd.OutOrStdout()
		printPlan(out, sql, sqlArgs)

		if planPolicyAction == "" {
			return nil
		}
		filter, err := resolvePolicy(rc.Entities[planEntity], planRole, planPolicyAction, planClaims, func(field string) string {
			if col, ok := provider.TryGetBackingColumn(planEntity, field); ok {
				return col
			}
			return field
		})
		if err != nil {
			return cli.GeneralError("resolving policy", err)
		}
		if filter == "" {
			fmt.Fprintf(out, "\nPolicy: none for role %q on %s\n", planRole, planPolicyAction)
		} else {
			fmt.Fprintf(out, "\nPolicy: %s\n", filter)
		}
		return nil
	},
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planRuntime, "runtime-config", "", "path to the runtime config")
	f.StringVar(&planDB, "db", "", "database URL to introspect")
	f.StringVar(&planSnapshot, "snapshot", "", "schema metadata snapshot file")
	f.StringVar(&planEntity, "entity", "", "entity to mutate")
	f.StringVar(&planValues, "values", "{}", "field values as a JSON object, or - for stdin")
	f.BoolVar(&planIncremental, "incremental", false, "keep unspecified fields instead of nulling them")
	f.StringVar(&planDialect, "dialect", "", "SQL dialect to render (postgresql or mysql)")
	f.StringVar(&planRole, "role", "anonymous", "role whose policy is resolved")
	f.StringVar(&planPolicyAction, "policy-action", "", "action whose database policy is resolved")
	f.StringToStringVar(&planClaims, "claim", nil, "claim value as type=value (repeatable)")
}

// parseValues decodes a JSON object of field values. Numbers keep their
// literal form so that large integers survive coercion.
func parseValues(raw string, stdin io.Reader) (map[string]any, error) {
	data := []byte(raw)
	if raw == "-" {
		var err error
		if data, err = io.ReadAll(stdin); err != nil {
			return nil, err
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	if values == nil {
		return nil, fmt.Errorf("values must be a JSON object")
	}
	return values, nil
}

func planDialectFor(rc *config.RuntimeConfig) (metadata.Dialect, error) {
	if planDialect == "" {
		return cfg.Dialect(rc)
	}
	switch d := metadata.Dialect(strings.ToLower(planDialect)); d {
	case metadata.DialectPostgres, metadata.DialectMySQL:
		return d, nil
	}
	return "", fmt.Errorf("unsupported dialect %q", planDialect)
}

// resolvePolicy finds the database policy role holds for action on entity
// and resolves it against claims. A role without a policy yields "".
func resolvePolicy(entity *config.Entity, role, action string, claims map[string]string, column func(string) string) (string, error) {
	want, ok := config.ParseOperation(action)
	if !ok || !want.Configurable() {
		return "", fmt.Errorf("unknown action %q", action)
	}

	for _, perm := range entity.Permissions {
		if !strings.EqualFold(perm.Role, role) {
			continue
		}
		for _, a := range perm.Actions {
			op, ok := a.Operation()
			if !ok || (op != want && op != config.OperationAll) {
				continue
			}
			raw, ok := a.DatabasePolicy()
			if !ok || raw == "" {
				return "", nil
			}
			expr, err := policy.Parse(raw)
			if err != nil {
				return "", err
			}
			return expr.Resolve(claims, column)
		}
		return "", fmt.Errorf("role %q has no %s permission", role, want)
	}
	return "", fmt.Errorf("role %q has no permissions", role)
}

func printPlan(w io.Writer, sql string, args []any) {
	fmt.Fprintln(w, sql)
	if len(args) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	for i, a := range args {
		fmt.Fprintf(w, "  %d: %v\n", i+1, a)
	}
}
