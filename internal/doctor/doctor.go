// Package doctor provides health checks for a relay deployment.
//
// The doctor command checks that the runtime configuration loads and
// validates, that schema metadata is available from a database or a
// snapshot, and that every entity maps to a usable database object.
//
// Example usage:
//
//	d := doctor.New("relay-config.json", doctor.WithDatabase(db, metadata.DialectPostgres))
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pthm/relay/pkg/config"
	"github.com/pthm/relay/pkg/metadata"
	"github.com/pthm/relay/pkg/validator"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical issue that will cause failures.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Runtime Config", "Entities").
	Category string

	// Name is a short identifier for the check.
	Name string

	Status  Status
	Message string

	// Details provides additional information for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Doctor performs health checks on a relay deployment.
type Doctor struct {
	runtimePath  string
	snapshotPath string
	db           *sql.DB
	dialect      metadata.Dialect
	validator    *validator.Validator

	// Populated during Run.
	cfg      *config.RuntimeConfig
	provider *metadata.Static
}

// Option configures a Doctor.
type Option func(*Doctor)

// WithDatabase checks and introspects a live database.
func WithDatabase(db *sql.DB, d metadata.Dialect) Option {
	return func(doc *Doctor) {
		doc.db = db
		doc.dialect = d
	}
}

// WithSnapshot reads schema metadata from a snapshot file when no
// database is configured.
func WithSnapshot(path string) Option {
	return func(doc *Doctor) {
		doc.snapshotPath = path
	}
}

// WithValidator sets the validator used for configuration checks.
func WithValidator(v *validator.Validator) Option {
	return func(doc *Doctor) {
		if v != nil {
			doc.validator = v
		}
	}
}

// New creates a Doctor for the runtime configuration at runtimePath.
func New(runtimePath string, opts ...Option) *Doctor {
	d := &Doctor{
		runtimePath: runtimePath,
		validator:   validator.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes all health checks and returns a report. Failed checks are
// recorded in the report; an error is returned only when the checks
// themselves cannot run.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	d.checkRuntimeConfig(report)
	if d.cfg == nil {
		return report, nil
	}
	d.checkValidation(report)
	if err := d.checkMetadata(ctx, report); err != nil {
		return nil, fmt.Errorf("checking schema metadata: %w", err)
	}
	if d.provider != nil {
		d.checkRelationships(report)
		d.checkEntities(report)
	}

	return report, nil
}

func (d *Doctor) checkRuntimeConfig(report *Report) {
	const category = "Runtime Config"

	if _, err := os.Stat(d.runtimePath); err != nil {
		report.AddCheck(CheckResult{
			Category: category,
			Name:     "exists",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Runtime config not found at %s", d.runtimePath),
			FixHint:  "Set runtime_config in relay.yaml or pass --runtime-config",
		})
		return
	}
	report.AddCheck(CheckResult{
		Category: category,
		Name:     "exists",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Runtime config exists at %s", d.runtimePath),
	})

	cfg, err := config.Load(d.runtimePath)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: category,
			Name:     "parses",
			Status:   StatusFail,
			Message:  "Runtime config cannot be parsed",
			Details:  err.Error(),
			FixHint:  "Check the document against the runtime config schema",
		})
		return
	}
	d.cfg = cfg

	report.AddCheck(CheckResult{
		Category: category,
		Name:     "parses",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Runtime config parses (%s, %d entities)", cfg.DataSource.DatabaseType, len(cfg.Entities)),
	})
}

func (d *Doctor) checkValidation(report *Report) {
	if err := d.validator.ValidateConfig(d.cfg); err != nil {
		report.AddCheck(CheckResult{
			Category: "Validation",
			Name:     "config",
			Status:   StatusFail,
			Message:  "Runtime config is invalid",
			Details:  err.Error(),
			FixHint:  "Run 'relay validate' for the failing rule",
		})
		return
	}
	report.AddCheck(CheckResult{
		Category: "Validation",
		Name:     "config",
		Status:   StatusPass,
		Message:  "Runtime config passes validation",
	})
}

func (d *Doctor) checkMetadata(ctx context.Context, report *Report) error {
	const category = "Schema Metadata"

	switch {
	case d.db != nil:
		if err := d.db.PingContext(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			report.AddCheck(CheckResult{
				Category: category,
				Name:     "connect",
				Status:   StatusFail,
				Message:  "Cannot connect to database",
				Details:  err.Error(),
				FixHint:  "Check database.url or the runtime config connection string",
			})
			return nil
		}
		report.AddCheck(CheckResult{
			Category: category,
			Name:     "connect",
			Status:   StatusPass,
			Message:  fmt.Sprintf("Connected to %s database", d.dialect),
		})

		provider, err := metadata.Introspect(ctx, d.db, d.dialect, d.cfg, metadata.IntrospectOptions{})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			report.AddCheck(CheckResult{
				Category: category,
				Name:     "introspect",
				Status:   StatusFail,
				Message:  "Schema introspection failed",
				Details:  err.Error(),
				FixHint:  "Check that every entity source exists and is readable",
			})
			return nil
		}
		d.provider = provider
		report.AddCheck(CheckResult{
			Category: category,
			Name:     "introspect",
			Status:   StatusPass,
			Message:  fmt.Sprintf("Introspected %d objects", len(provider.EntityToDatabaseObject())),
		})

	case d.snapshotPath != "":
		provider, err := metadata.LoadSnapshotFile(d.snapshotPath)
		if err != nil {
			report.AddCheck(CheckResult{
				Category: category,
				Name:     "snapshot",
				Status:   StatusFail,
				Message:  fmt.Sprintf("Cannot read snapshot %s", d.snapshotPath),
				Details:  err.Error(),
				FixHint:  "Run 'relay introspect --out " + d.snapshotPath + "' to record one",
			})
			return nil
		}
		provider.UseMappings(d.cfg)
		d.provider = provider
		report.AddCheck(CheckResult{
			Category: category,
			Name:     "snapshot",
			Status:   StatusPass,
			Message:  fmt.Sprintf("Loaded snapshot with %d objects", len(provider.EntityToDatabaseObject())),
		})

	default:
		report.AddCheck(CheckResult{
			Category: category,
			Name:     "available",
			Status:   StatusWarn,
			Message:  "No schema metadata available",
			Details:  "Relationship and entity checks were skipped",
			FixHint:  "Set database.url or snapshot in relay.yaml",
		})
	}
	return nil
}

func (d *Doctor) checkRelationships(report *Report) {
	if err := d.validator.ValidateRelationships(d.cfg, d.provider); err != nil {
		report.AddCheck(CheckResult{
			Category: "Relationships",
			Name:     "resolvable",
			Status:   StatusFail,
			Message:  "A relationship cannot be resolved",
			Details:  err.Error(),
			FixHint:  "Configure source/target fields or add the missing foreign key",
		})
		return
	}
	report.AddCheck(CheckResult{
		Category: "Relationships",
		Name:     "resolvable",
		Status:   StatusPass,
		Message:  "All relationships resolve",
	})
}

func (d *Doctor) checkEntities(report *Report) {
	const category = "Entities"

	var missing, keyless []string
	for _, name := range d.cfg.SortedEntityNames() {
		obj, ok := d.provider.DatabaseObject(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		if obj.SourceType == config.SourceTable && (obj.TableDefinition == nil || len(obj.TableDefinition.PrimaryKey) == 0) {
			keyless = append(keyless, name)
		}
	}

	if len(missing) > 0 {
		report.AddCheck(CheckResult{
			Category: category,
			Name:     "objects",
			Status:   StatusFail,
			Message:  fmt.Sprintf("%d entities have no database object", len(missing)),
			Details:  strings.Join(missing, "\n"),
			FixHint:  "Re-run introspection or fix the entity source",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: category,
			Name:     "objects",
			Status:   StatusPass,
			Message:  fmt.Sprintf("All %d entities map to database objects", len(d.cfg.Entities)),
		})
	}

	if len(keyless) > 0 {
		report.AddCheck(CheckResult{
			Category: category,
			Name:     "primary_keys",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d tables have no primary key", len(keyless)),
			Details:  strings.Join(keyless, "\n"),
			FixHint:  "Declare key-fields on the entity source; upserts need a key",
		})
	}
}
