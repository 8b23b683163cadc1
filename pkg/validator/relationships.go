package validator

import (
	"github.com/pthm/relay"
	"github.com/pthm/relay/pkg/config"
	"github.com/pthm/relay/pkg/metadata"
)

const (
	msgUndefinedTargetFmt    = "entity: %s used for relationship is not defined in the config."
	msgTargetGraphQLFmt      = "entity: %s is disabled for GraphQL."
	msgNoLinkingRelationFmt  = "Could not find relationship between Linking Object: %s and entity: %s."
	msgNoDirectRelationFmt   = "Could not find relationship between entities: %s and %s."
	msgLinkingObjectParseFmt = "Could not parse linking object %s for relationship %s of entity %s."
)

// ValidateRelationships checks every relationship of every entity against
// the configuration and the schema metadata. For each relationship the
// target must exist, must be GraphQL-enabled when the source is, and a join
// path must be resolvable from configured fields or foreign keys. Linking
// objects are checked source side first.
func (v *Validator) ValidateRelationships(cfg *config.RuntimeConfig, provider metadata.Provider) error {
	if !cfg.DataSource.DatabaseType.IsRelational() {
		return nil
	}

	for _, name := range cfg.SortedEntityNames() {
		entity := cfg.Entities[name]
		if len(entity.Relationships) == 0 {
			continue
		}
		relNames := make([]string, 0, len(entity.Relationships))
		for rel := range entity.Relationships {
			relNames = append(relNames, rel)
		}
		config.SortNames(relNames)

		for _, relName := range relNames {
			v.log.Debugf("validating relationship %s of entity %s", relName, name)
			if err := validateRelationship(cfg, provider, name, entity, relName, entity.Relationships[relName]); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateRelationship(cfg *config.RuntimeConfig, provider metadata.Provider, sourceName string, source *config.Entity, relName string, rel *config.Relationship) error {
	target, ok := cfg.Entities[rel.TargetEntity]
	if !ok {
		return relay.ConfigValidationErrorf(msgUndefinedTargetFmt, rel.TargetEntity)
	}
	if source.GraphQL.Enabled() && !target.GraphQL.Enabled() {
		return relay.ConfigValidationErrorf(msgTargetGraphQLFmt, rel.TargetEntity)
	}

	sourceRef, sourceKnown := tableRef(provider, sourceName)
	targetRef, targetKnown := tableRef(provider, rel.TargetEntity)

	if rel.HasLinkingObject() {
		linkRef, err := provider.ParseSchemaAndTable(rel.LinkingObject)
		if err != nil {
			return relay.ConfigValidationErrorf(msgLinkingObjectParseFmt, rel.LinkingObject, relName, sourceName)
		}

		sourceOK := (rel.LinkingSourceFields != nil && rel.SourceFields != nil) ||
			(sourceKnown && provider.VerifyForeignKeyExists(linkRef, sourceRef))
		if !sourceOK {
			return relay.ConfigValidationErrorf(msgNoLinkingRelationFmt, rel.LinkingObject, sourceName)
		}

		targetOK := (rel.LinkingTargetFields != nil && rel.TargetFields != nil) ||
			(targetKnown && provider.VerifyForeignKeyExists(linkRef, targetRef))
		if !targetOK {
			return relay.ConfigValidationErrorf(msgNoLinkingRelationFmt, rel.LinkingObject, rel.TargetEntity)
		}
		return nil
	}

	if rel.SourceFields != nil && rel.TargetFields != nil {
		return nil
	}
	if sourceKnown && targetKnown &&
		(provider.VerifyForeignKeyExists(sourceRef, targetRef) || provider.VerifyForeignKeyExists(targetRef, sourceRef)) {
		return nil
	}
	return relay.ConfigValidationErrorf(msgNoDirectRelationFmt, sourceName, rel.TargetEntity)
}

func tableRef(provider metadata.Provider, entity string) (metadata.TableRef, bool) {
	obj, ok := provider.DatabaseObject(entity)
	if !ok {
		return metadata.TableRef{}, false
	}
	return obj.Ref(), true
}
