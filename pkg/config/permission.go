package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Operation is an action a role may be granted on an entity.
type Operation int

const (
	OperationNone Operation = iota
	OperationCreate
	OperationRead
	OperationUpdate
	OperationDelete
	OperationExecute
	// OperationAll is the "*" wildcard. It is resolved against the entity's
	// source type with Expand at the point of use.
	OperationAll

	// Internal operations. They name mutation variants and are never legal
	// in configuration.
	OperationInsert
	OperationUpsert
	OperationUpsertIncremental
)

var operationNames = map[Operation]string{
	OperationCreate:            "Create",
	OperationRead:              "Read",
	OperationUpdate:            "Update",
	OperationDelete:            "Delete",
	OperationExecute:           "Execute",
	OperationAll:               "All",
	OperationInsert:            "Insert",
	OperationUpsert:            "Upsert",
	OperationUpsertIncremental: "UpsertIncremental",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "None"
}

// Configurable reports whether o may appear in a permission setting.
func (o Operation) Configurable() bool {
	switch o {
	case OperationCreate, OperationRead, OperationUpdate, OperationDelete, OperationExecute, OperationAll:
		return true
	}
	return false
}

// ParseOperation resolves an operation name case-insensitively. "*" is the
// wildcard. Internal operation names parse too, so callers must still check
// Configurable before accepting a configured action.
func ParseOperation(s string) (Operation, bool) {
	if s == "*" {
		return OperationAll, true
	}
	for op, name := range operationNames {
		if op == OperationAll {
			continue
		}
		if strings.EqualFold(s, name) {
			return op, true
		}
	}
	return OperationNone, false
}

// Expand resolves o against a source type. The wildcard becomes the full
// CRUD set for tables and views, and Execute for stored procedures.
func (o Operation) Expand(source SourceType) []Operation {
	if o != OperationAll {
		return []Operation{o}
	}
	if source == SourceStoredProcedure {
		return []Operation{OperationExecute}
	}
	return []Operation{OperationCreate, OperationRead, OperationUpdate, OperationDelete}
}

// PermissionSetting grants a role a list of actions.
type PermissionSetting struct {
	Role    string                `json:"role" validate:"required"`
	Actions []PermissionOperation `json:"actions" validate:"dive"`
}

// PermissionOperation is a single granted action with optional field
// restrictions and policies. In JSON it is either the bare action name or
// an object.
type PermissionOperation struct {
	// Action is the name as written in configuration.
	Action string    `json:"action" validate:"required"`
	Fields *FieldSet `json:"fields,omitempty"`
	Policy *Policy   `json:"policy,omitempty"`
}

// Operation resolves the configured action name.
func (p PermissionOperation) Operation() (Operation, bool) {
	return ParseOperation(p.Action)
}

// DatabasePolicy returns the database policy and whether one is present.
// An empty string still counts as present.
func (p PermissionOperation) DatabasePolicy() (string, bool) {
	if p.Policy == nil || p.Policy.Database == nil {
		return "", false
	}
	return *p.Policy.Database, true
}

func (p *PermissionOperation) UnmarshalJSON(data []byte) error {
	var action string
	if err := json.Unmarshal(data, &action); err == nil {
		*p = PermissionOperation{Action: action}
		return nil
	}
	type plain PermissionOperation
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("action: %w", err)
	}
	*p = PermissionOperation(v)
	return nil
}

// FieldSet restricts which fields an action can touch. A nil slice means
// the set was not declared; an empty slice is a declared empty set.
type FieldSet struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// Policy holds row-level predicates over claims and item fields.
// A nil pointer means absent; a pointer to "" is present but empty.
type Policy struct {
	Database *string `json:"database,omitempty"`
	Request  *string `json:"request,omitempty"`
}
