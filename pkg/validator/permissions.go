package validator

import (
	"slices"
	"strings"

	"github.com/pthm/relay"
	"github.com/pthm/relay/pkg/config"
	"github.com/pthm/relay/pkg/policy"
)

const (
	msgInvalidActionFmt      = "action:%s specified for entity:%s, role:%s is not valid."
	msgStoredProcedureFmt    = "Invalid operation for Entity: %s. Stored procedures can only be configured with the 'execute' operation."
	msgWildcardFieldsFmt     = "No other field can be present with wildcard in the %s set for: entity:%s, role:%s, action:%s"
	MsgInvalidClaimsInPolicy = "One or more claim types supplied in the database policy are not supported."
	MsgCreatePolicy          = "Database Policy and Actions cannot be mixed for action:Create. Database policies are not supported for the create action."
)

// ValidatePermissions checks every (entity, role, action) triple. Entities
// are visited in sorted order and roles and actions in declared order.
// For each action the checks are, in order: the action name, the
// stored-procedure restriction, wildcard exclusivity in the include then
// exclude set, the database policy (claim syntax, field accessibility,
// provider claim restriction), and finally the ban on Create policies.
func (v *Validator) ValidatePermissions(cfg *config.RuntimeConfig) error {
	limited := v.isLimitedClaimsProvider(cfg.AuthenticationProvider())

	for _, name := range cfg.SortedEntityNames() {
		entity := cfg.Entities[name]
		for _, perm := range entity.Permissions {
			if entity.IsStoredProcedure() && len(perm.Actions) > 1 {
				if err := checkActionNames(name, perm); err != nil {
					return err
				}
				return relay.ConfigValidationErrorf(msgStoredProcedureFmt, name)
			}
			for _, action := range perm.Actions {
				if err := v.validateAction(name, entity, perm.Role, action, limited); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkActionNames(entity string, perm config.PermissionSetting) error {
	for _, action := range perm.Actions {
		if op, ok := action.Operation(); !ok || !op.Configurable() {
			return relay.ConfigValidationErrorf(msgInvalidActionFmt, action.Action, entity, perm.Role)
		}
	}
	return nil
}

func (v *Validator) validateAction(entityName string, entity *config.Entity, role string, action config.PermissionOperation, limitedClaims bool) error {
	op, ok := action.Operation()
	if !ok || !op.Configurable() {
		return relay.ConfigValidationErrorf(msgInvalidActionFmt, action.Action, entityName, role)
	}

	for _, granted := range op.Expand(entity.Source.Type) {
		switch {
		case entity.IsStoredProcedure() && granted != config.OperationExecute:
			return relay.ConfigValidationErrorf(msgStoredProcedureFmt, entityName)
		case !entity.IsStoredProcedure() && granted == config.OperationExecute:
			return relay.ConfigValidationErrorf(msgInvalidActionFmt, action.Action, entityName, role)
		}
	}

	var include, exclude []string
	if action.Fields != nil {
		include, exclude = action.Fields.Include, action.Fields.Exclude
		if hasWildcardWithOthers(include) {
			return relay.ConfigValidationErrorf(msgWildcardFieldsFmt, "included", entityName, role, op)
		}
		if hasWildcardWithOthers(exclude) {
			return relay.ConfigValidationErrorf(msgWildcardFieldsFmt, "excluded", entityName, role, op)
		}
	}

	dbPolicy, hasPolicy := action.DatabasePolicy()
	if hasPolicy {
		expr, err := policy.Parse(dbPolicy)
		if err != nil {
			return err
		}
		if err := policy.CheckFieldAccess(include, exclude, expr.Fields); err != nil {
			return err
		}
		if limitedClaims {
			for _, claim := range expr.Claims {
				if !slices.Contains(v.reservedClaims, claim) {
					return relay.NewConfigValidationError(MsgInvalidClaimsInPolicy)
				}
			}
		}
		if op == config.OperationCreate {
			return relay.NewConfigValidationError(MsgCreatePolicy)
		}
	}

	return nil
}

func hasWildcardWithOthers(fields []string) bool {
	return len(fields) > 1 && slices.Contains(fields, "*")
}

func (v *Validator) isLimitedClaimsProvider(provider string) bool {
	for _, p := range v.limitedClaimsProviders {
		if strings.EqualFold(p, provider) {
			return true
		}
	}
	return false
}
