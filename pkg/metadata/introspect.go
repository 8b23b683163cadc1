package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/relay"
	"github.com/pthm/relay/pkg/config"
)

// Dialect is a SQL database flavor that can be introspected.
type Dialect string

const (
	DialectPostgres Dialect = "postgresql"
	DialectMySQL    Dialect = "mysql"
)

// DialectFor maps a configured database type to a dialect.
func DialectFor(t config.DatabaseType) (Dialect, error) {
	switch t {
	case config.PostgreSQL:
		return DialectPostgres, nil
	case config.MySQL:
		return DialectMySQL, nil
	default:
		return "", fmt.Errorf("metadata: introspection not supported for database type %q", t)
	}
}

// DriverName returns the database/sql driver registered for d.
func (d Dialect) DriverName() string {
	if d == DialectMySQL {
		return "mysql"
	}
	return "pgx"
}

// Open opens a connection pool for d and verifies it with a ping.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", d, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging %s: %w", d, err)
	}
	return db, nil
}

// queries holds the catalog queries of one dialect. Every query takes
// (schema, table) or (schema) as positional arguments.
type queries struct {
	defaultSchema string
	columns       string
	primaryKey    string
	foreignKeys   string
}

var dialectQueries = map[Dialect]queries{
	DialectPostgres: {
		defaultSchema: `SELECT current_schema()`,
		columns: `SELECT
	            c.column_name,
	            c.data_type,
	            c.is_nullable,
	            c.column_default,
	            c.is_identity
	          FROM information_schema.columns c
	          WHERE c.table_schema = $1
	          AND c.table_name = $2
	          ORDER BY c.ordinal_position`,
		primaryKey: `SELECT kcu.column_name
	          FROM information_schema.table_constraints tc
	          JOIN information_schema.key_column_usage kcu
	            ON kcu.constraint_name = tc.constraint_name
	            AND kcu.table_schema = tc.table_schema
	            AND kcu.table_name = tc.table_name
	          WHERE tc.constraint_type = 'PRIMARY KEY'
	          AND tc.table_schema = $1
	          AND tc.table_name = $2
	          ORDER BY kcu.ordinal_position`,
		foreignKeys: `SELECT
	            tc.constraint_name,
	            kcu.table_schema,
	            kcu.table_name,
	            kcu.column_name,
	            ccu.table_schema,
	            ccu.table_name,
	            ccu.column_name
	          FROM information_schema.table_constraints tc
	          JOIN information_schema.key_column_usage kcu
	            ON kcu.constraint_name = tc.constraint_name
	            AND kcu.table_schema = tc.table_schema
	          JOIN information_schema.constraint_column_usage ccu
	            ON ccu.constraint_name = tc.constraint_name
	            AND ccu.constraint_schema = tc.constraint_schema
	          WHERE tc.constraint_type = 'FOREIGN KEY'
	          AND tc.table_schema = $1
	          ORDER BY tc.constraint_name, kcu.ordinal_position`,
	},
	DialectMySQL: {
		defaultSchema: `SELECT DATABASE()`,
		columns: `SELECT
	            COLUMN_NAME,
	            DATA_TYPE,
	            IS_NULLABLE,
	            COLUMN_DEFAULT,
	            EXTRA
	          FROM information_schema.COLUMNS
	          WHERE TABLE_SCHEMA = ?
	          AND TABLE_NAME = ?
	          ORDER BY ORDINAL_POSITION`,
		primaryKey: `SELECT COLUMN_NAME
	          FROM information_schema.KEY_COLUMN_USAGE
	          WHERE TABLE_SCHEMA = ?
	          AND TABLE_NAME = ?
	          AND CONSTRAINT_NAME = 'PRIMARY'
	          ORDER BY ORDINAL_POSITION`,
		foreignKeys: `SELECT
	            CONSTRAINT_NAME,
	            TABLE_SCHEMA,
	            TABLE_NAME,
	            COLUMN_NAME,
	            REFERENCED_TABLE_SCHEMA,
	            REFERENCED_TABLE_NAME,
	            REFERENCED_COLUMN_NAME
	          FROM information_schema.KEY_COLUMN_USAGE
	          WHERE TABLE_SCHEMA = ?
	          AND REFERENCED_TABLE_NAME IS NOT NULL
	          ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`,
	},
}

// IntrospectOptions tunes Introspect.
type IntrospectOptions struct {
	// DefaultSchema overrides the schema unqualified names resolve to.
	// When empty it is read from the connection.
	DefaultSchema string

	// Workers bounds concurrent table loads. Defaults to 4.
	Workers int
}

// Introspect builds a Static provider for every entity in cfg by reading
// the database catalog: columns, primary keys, auto-generation, defaults,
// nullability, and the foreign keys of every schema the entities and their
// linking objects live in.
//
// Catalog failures are returned as relay ErrorInInitialization errors.
func Introspect(ctx context.Context, db *sql.DB, d Dialect, cfg *config.RuntimeConfig, opts IntrospectOptions) (*Static, error) {
	s, err := introspect(ctx, db, d, cfg, opts)
	if err != nil {
		return nil, relay.NewInitializationError("introspecting schema metadata", err)
	}
	return s, nil
}

func introspect(ctx context.Context, db *sql.DB, d Dialect, cfg *config.RuntimeConfig, opts IntrospectOptions) (*Static, error) {
	q, ok := dialectQueries[d]
	if !ok {
		return nil, fmt.Errorf("metadata: unknown dialect %q", d)
	}

	schema := opts.DefaultSchema
	if schema == "" {
		if err := db.QueryRowContext(ctx, q.defaultSchema).Scan(&schema); err != nil {
			return nil, fmt.Errorf("reading default schema: %w", err)
		}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	s := NewStatic(schema)
	names := cfg.SortedEntityNames()
	objects := make([]*DatabaseObject, len(names))

	for i, name := range names {
		entity := cfg.Entities[name]
		ref, err := s.ParseSchemaAndTable(entity.Source.Object)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", name, err)
		}
		objects[i] = &DatabaseObject{SchemaName: ref.Schema, Name: ref.Name, SourceType: entity.Source.Type}
		if objects[i].SourceType == "" {
			objects[i].SourceType = config.SourceTable
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, name := range names {
		obj, keyFields := objects[i], cfg.Entities[name].Source.KeyFields
		if obj.SourceType == config.SourceStoredProcedure {
			continue
		}
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}
			def, err := loadTable(egCtx, db, d, q, obj.Ref())
			if err != nil {
				return fmt.Errorf("entity %s: %w", name, err)
			}
			if len(keyFields) > 0 {
				def.PrimaryKey = append([]string(nil), keyFields...)
			}
			obj.TableDefinition = def
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	schemas := []string{}
	seen := map[string]bool{}
	addSchema := func(name string) {
		if !seen[name] {
			seen[name] = true
			schemas = append(schemas, name)
		}
	}
	for i, name := range names {
		s.AddObject(name, objects[i])
		addSchema(objects[i].SchemaName)
		for _, rel := range cfg.Entities[name].Relationships {
			if rel.HasLinkingObject() {
				if ref, err := s.ParseSchemaAndTable(rel.LinkingObject); err == nil {
					addSchema(ref.Schema)
				}
			}
		}
	}

	for _, sc := range schemas {
		fks, err := loadForeignKeys(ctx, db, q, sc)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", sc, err)
		}
		for _, fk := range fks {
			s.AddForeignKey(fk)
		}
	}

	s.UseMappings(cfg)
	return s, nil
}

func loadTable(ctx context.Context, db *sql.DB, d Dialect, q queries, ref TableRef) (*TableDefinition, error) {
	rows, err := db.QueryContext(ctx, q.columns, ref.Schema, ref.Name)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", ref, err)
	}
	defer func() { _ = rows.Close() }()

	def := &TableDefinition{}
	for rows.Next() {
		var (
			name, dataType, nullable string
			dflt                     sql.NullString
			extra                    sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &nullable, &dflt, &extra); err != nil {
			return nil, err
		}
		col := &ColumnDefinition{
			Name:       name,
			SystemType: SystemTypeOf(dataType),
			IsNullable: strings.EqualFold(nullable, "YES"),
			HasDefault: dflt.Valid,
		}
		if dflt.Valid {
			v := dflt.String
			col.DefaultValue = &v
		}
		switch d {
		case DialectMySQL:
			col.IsAutoGenerated = strings.Contains(strings.ToLower(extra.String), "auto_increment")
		default:
			col.IsAutoGenerated = strings.EqualFold(extra.String, "YES") ||
				strings.HasPrefix(strings.ToLower(dflt.String), "nextval(")
		}
		def.AddColumn(col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(def.Columns) == 0 {
		return nil, fmt.Errorf("object %s not found or has no columns", ref)
	}

	pkRows, err := db.QueryContext(ctx, q.primaryKey, ref.Schema, ref.Name)
	if err != nil {
		return nil, fmt.Errorf("reading primary key of %s: %w", ref, err)
	}
	defer func() { _ = pkRows.Close() }()
	for pkRows.Next() {
		var col string
		if err := pkRows.Scan(&col); err != nil {
			return nil, err
		}
		def.PrimaryKey = append(def.PrimaryKey, col)
	}
	return def, pkRows.Err()
}

func loadForeignKeys(ctx context.Context, db *sql.DB, q queries, schema string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, q.foreignKeys, schema)
	if err != nil {
		return nil, fmt.Errorf("reading foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		fks   []ForeignKey
		byKey = map[string]int{}
	)
	for rows.Next() {
		var (
			name                 string
			from, to             TableRef
			fromColumn, toColumn string
		)
		if err := rows.Scan(&name, &from.Schema, &from.Name, &fromColumn, &to.Schema, &to.Name, &toColumn); err != nil {
			return nil, err
		}
		key := from.String() + "|" + name
		i, ok := byKey[key]
		if !ok {
			i = len(fks)
			byKey[key] = i
			fks = append(fks, ForeignKey{Name: name, Referencing: from, Referenced: to})
		}
		fks[i].ReferencingColumns = append(fks[i].ReferencingColumns, fromColumn)
		fks[i].ReferencedColumns = append(fks[i].ReferencedColumns, toColumn)
	}
	return fks, rows.Err()
}

// SystemTypeOf maps a catalog data type name to a SystemType.
func SystemTypeOf(dataType string) SystemType {
	t := strings.ToLower(strings.TrimSpace(dataType))
	switch t {
	case "smallint", "int2", "smallserial":
		return TypeInt16
	case "integer", "int", "int4", "mediumint", "serial":
		return TypeInt32
	case "bigint", "int8", "bigserial":
		return TypeInt64
	case "tinyint":
		return TypeByte
	case "real", "float4", "float":
		return TypeSingle
	case "double precision", "double", "float8":
		return TypeDouble
	case "numeric", "decimal", "money", "smallmoney":
		return TypeDecimal
	case "boolean", "bool", "bit":
		return TypeBoolean
	case "date", "datetime", "datetime2", "smalldatetime", "timestamp", "timestamp without time zone":
		return TypeDateTime
	case "timestamp with time zone", "timestamptz", "datetimeoffset":
		return TypeDateTimeOffset
	case "uuid", "uniqueidentifier":
		return TypeGuid
	case "bytea", "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary":
		return TypeByteArray
	default:
		return TypeString
	}
}
