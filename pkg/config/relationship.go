package config

// Cardinality is the multiplicity of a relationship's target side.
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// Relationship links an entity to a target entity, either directly or
// through a linking (junction) object. Nil field slices mean the fields were
// not configured, in which case the join is inferred from foreign keys.
type Relationship struct {
	Cardinality         Cardinality `json:"cardinality" validate:"omitempty,oneof=one many"`
	TargetEntity        string      `json:"target.entity" validate:"required"`
	SourceFields        []string    `json:"source.fields,omitempty"`
	TargetFields        []string    `json:"target.fields,omitempty"`
	LinkingObject       string      `json:"linking.object,omitempty"`
	LinkingSourceFields []string    `json:"linking.source.fields,omitempty"`
	LinkingTargetFields []string    `json:"linking.target.fields,omitempty"`
}

// HasLinkingObject reports whether the relationship goes through a junction object.
func (r *Relationship) HasLinkingObject() bool {
	return r.LinkingObject != ""
}
