package metadata

import (
	"fmt"
	"strings"

	"github.com/pthm/relay/pkg/config"
)

// Static is an in-memory Provider. It backs both introspected metadata and
// snapshots, and is convenient to assemble by hand in tests.
type Static struct {
	defaultSchema string
	objects       map[string]*DatabaseObject
	mappings      map[string]map[string]string
	foreignKeys   []ForeignKey
}

var _ Provider = (*Static)(nil)

// NewStatic returns an empty provider. Unqualified object names resolve to
// defaultSchema.
func NewStatic(defaultSchema string) *Static {
	return &Static{
		defaultSchema: defaultSchema,
		objects:       make(map[string]*DatabaseObject),
		mappings:      make(map[string]map[string]string),
	}
}

// DefaultSchema returns the schema unqualified names resolve to.
func (s *Static) DefaultSchema() string {
	return s.defaultSchema
}

// AddObject registers the object behind entity.
func (s *Static) AddObject(entity string, obj *DatabaseObject) {
	s.objects[entity] = obj
}

// AddForeignKey registers a foreign key.
func (s *Static) AddForeignKey(fk ForeignKey) {
	s.foreignKeys = append(s.foreignKeys, fk)
}

// ForeignKeys returns every registered foreign key.
func (s *Static) ForeignKeys() []ForeignKey {
	return s.foreignKeys
}

// SetMappings sets the backing-column to exposed-name map of entity.
func (s *Static) SetMappings(entity string, mappings map[string]string) {
	if len(mappings) == 0 {
		delete(s.mappings, entity)
		return
	}
	s.mappings[entity] = mappings
}

// UseMappings takes the column mappings of every entity in cfg.
func (s *Static) UseMappings(cfg *config.RuntimeConfig) {
	for name, e := range cfg.Entities {
		s.SetMappings(name, e.Mappings)
	}
}

func (s *Static) GetTableDefinition(entity string) (*TableDefinition, error) {
	obj, ok := s.objects[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	if obj.TableDefinition == nil {
		return nil, fmt.Errorf("metadata: %s (%s) has no table definition", entity, obj.SourceType)
	}
	return obj.TableDefinition, nil
}

func (s *Static) DatabaseObject(entity string) (*DatabaseObject, bool) {
	obj, ok := s.objects[entity]
	return obj, ok
}

func (s *Static) EntityToDatabaseObject() map[string]*DatabaseObject {
	out := make(map[string]*DatabaseObject, len(s.objects))
	for k, v := range s.objects {
		out[k] = v
	}
	return out
}

func (s *Static) ParseSchemaAndTable(name string) (TableRef, error) {
	return ParseSchemaAndTable(name, s.defaultSchema)
}

func (s *Static) VerifyForeignKeyExists(referencing, referenced TableRef) bool {
	for _, fk := range s.foreignKeys {
		if fk.Referencing == referencing && fk.Referenced == referenced {
			return true
		}
	}
	return false
}

func (s *Static) TryGetBackingColumn(entity, field string) (string, bool) {
	for backing, exposed := range s.mappings[entity] {
		if exposed == field {
			return backing, true
		}
	}
	obj, ok := s.objects[entity]
	if !ok || obj.TableDefinition == nil {
		return "", false
	}
	if col := obj.TableDefinition.Column(field); col != nil {
		// A mapped column is only reachable through its exposed name.
		if _, mapped := s.mappings[entity][field]; mapped {
			return "", false
		}
		return col.Name, true
	}
	return "", false
}

func (s *Static) TryGetExposedColumnName(entity, column string) (string, bool) {
	if exposed, ok := s.mappings[entity][column]; ok {
		return exposed, true
	}
	obj, ok := s.objects[entity]
	if !ok || obj.TableDefinition == nil {
		return "", false
	}
	if obj.TableDefinition.Column(column) != nil {
		return column, true
	}
	return "", false
}

// ParseSchemaAndTable splits "schema.name" into its parts. Unqualified
// names get defaultSchema. Quoting with [], "" or `` is stripped.
func ParseSchemaAndTable(name, defaultSchema string) (TableRef, error) {
	if strings.TrimSpace(name) == "" {
		return TableRef{}, fmt.Errorf("metadata: empty object name")
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = unquote(strings.TrimSpace(p))
		if parts[i] == "" {
			return TableRef{}, fmt.Errorf("metadata: malformed object name %q", name)
		}
	}
	switch len(parts) {
	case 1:
		return TableRef{Schema: defaultSchema, Name: parts[0]}, nil
	case 2:
		return TableRef{Schema: parts[0], Name: parts[1]}, nil
	default:
		return TableRef{}, fmt.Errorf("metadata: malformed object name %q", name)
	}
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case s[0] == '[' && s[len(s)-1] == ']',
		s[0] == '"' && s[len(s)-1] == '"',
		s[0] == '`' && s[len(s)-1] == '`':
		return s[1 : len(s)-1]
	}
	return s
}
