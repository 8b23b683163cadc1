package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperation(t *testing.T) {
	tests := []struct {
		in           string
		want         Operation
		ok           bool
		configurable bool
	}{
		{"read", OperationRead, true, true},
		{"READ", OperationRead, true, true},
		{"cReAtE", OperationCreate, true, true},
		{"update", OperationUpdate, true, true},
		{"delete", OperationDelete, true, true},
		{"execute", OperationExecute, true, true},
		{"*", OperationAll, true, true},
		{"inseRt", OperationInsert, true, false},
		{"upsert", OperationUpsert, true, false},
		{"UpsertIncremental", OperationUpsertIncremental, true, false},
		{"remove", OperationNone, false, false},
		{"", OperationNone, false, false},
		{"all", OperationNone, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseOperation(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.configurable, got.Configurable())
		})
	}
}

func TestOperation_Expand(t *testing.T) {
	assert.Equal(t, []Operation{OperationExecute}, OperationAll.Expand(SourceStoredProcedure))
	assert.Equal(t,
		[]Operation{OperationCreate, OperationRead, OperationUpdate, OperationDelete},
		OperationAll.Expand(SourceTable))
	assert.Equal(t, []Operation{OperationRead}, OperationRead.Expand(SourceView))
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "Create", OperationCreate.String())
	assert.Equal(t, "All", OperationAll.String())
	assert.Equal(t, "None", OperationNone.String())
}

func TestPermissionOperation_Unmarshal(t *testing.T) {
	var ops []PermissionOperation
	err := json.Unmarshal([]byte(`["read", {"action": "create", "policy": {"database": ""}}]`), &ops)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	assert.Equal(t, "read", ops[0].Action)
	assert.Nil(t, ops[0].Fields)
	_, ok := ops[0].DatabasePolicy()
	assert.False(t, ok)

	op, ok := ops[1].Operation()
	require.True(t, ok)
	assert.Equal(t, OperationCreate, op)
	policy, ok := ops[1].DatabasePolicy()
	assert.True(t, ok, "empty policy still counts as present")
	assert.Empty(t, policy)
}
