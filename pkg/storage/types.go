package storage

import (
	"fmt"
	"time"
)

// EntityType is the closed set of architecture artifact kinds ("cards").
type EntityType string

const (
	TypeBusinessCapability    EntityType = "BusinessCapability"
	TypeApplication           EntityType = "Application"
	TypeInterface             EntityType = "Interface"
	TypeITComponent           EntityType = "ITComponent"
	TypePlatform              EntityType = "Platform"
	TypeArchitecturePrinciple EntityType = "ArchitecturePrinciple"
	TypeTechnologyStandard    EntityType = "TechnologyStandard"
	TypeArchitecturePolicy    EntityType = "ArchitecturePolicy"
	TypeException             EntityType = "Exception"
	TypeInitiative            EntityType = "Initiative"
	TypeRisk                  EntityType = "Risk"
	TypeComplianceRequirement EntityType = "ComplianceRequirement"
)

// EntityTypes lists every entity type in declaration order.
var EntityTypes = []EntityType{
	TypeBusinessCapability,
	TypeApplication,
	TypeInterface,
	TypeITComponent,
	TypePlatform,
	TypeArchitecturePrinciple,
	TypeTechnologyStandard,
	TypeArchitecturePolicy,
	TypeException,
	TypeInitiative,
	TypeRisk,
	TypeComplianceRequirement,
}

// IsValid reports whether t is a known entity type.
func (t EntityType) IsValid() bool {
	switch t {
	case TypeBusinessCapability, TypeApplication, TypeInterface, TypeITComponent,
		TypePlatform, TypeArchitecturePrinciple, TypeTechnologyStandard,
		TypeArchitecturePolicy, TypeException, TypeInitiative, TypeRisk,
		TypeComplianceRequirement:
		return true
	}
	return false
}

// Entity is one persisted architecture artifact. The engine never mutates it;
// per-request values such as traversal level live in separate result records.
type Entity struct {
	ID              string     `json:"id" yaml:"id"`
	Name            string     `json:"name" yaml:"name"`
	Type            EntityType `json:"type" yaml:"type"`
	CriticalityBase float64    `json:"criticalityBase" yaml:"criticalityBase"` // 0-100
	UpdatedAt       time.Time  `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Validate checks the entity invariants.
func (e *Entity) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entity id is required")
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("entity %s: unknown type %q", e.ID, e.Type)
	}
	if e.CriticalityBase < 0 || e.CriticalityBase > 100 {
		return fmt.Errorf("entity %s: criticalityBase %.2f outside [0,100]", e.ID, e.CriticalityBase)
	}
	return nil
}

// RelationshipType is the closed, ordered set of edge kinds. The numeric
// order is the tie-break order used by aggregations.
type RelationshipType uint8

const (
	DependsOn RelationshipType = iota
	Implements
	SimilarTo
	ConflictsWith

	// NumRelationshipTypes is the size of the enumeration, not a type.
	NumRelationshipTypes
)

// RelationshipTypes lists every relationship type in enumeration order.
var RelationshipTypes = []RelationshipType{DependsOn, Implements, SimilarTo, ConflictsWith}

// RelationshipTypeInfo is the semantic table entry for a relationship type.
type RelationshipTypeInfo struct {
	Name        string
	Description string
	// Dependency marks types that propagate failure along source -> target.
	Dependency bool
}

var relationshipTypeTable = [NumRelationshipTypes]RelationshipTypeInfo{
	DependsOn: {
		Name:        "depends_on",
		Description: "Source requires target to function",
		Dependency:  true,
	},
	Implements: {
		Name:        "implements",
		Description: "Source realises the capability, standard or interface described by target",
		Dependency:  true,
	},
	SimilarTo: {
		Name:        "similar_to",
		Description: "Source overlaps functionally with target (consolidation candidate)",
	},
	ConflictsWith: {
		Name:        "conflicts_with",
		Description: "Source contradicts target (policy or standard conflict)",
	},
}

// Info returns the semantic table entry for t.
func (t RelationshipType) Info() RelationshipTypeInfo {
	if t >= NumRelationshipTypes {
		return RelationshipTypeInfo{Name: fmt.Sprintf("unknown(%d)", uint8(t))}
	}
	return relationshipTypeTable[t]
}

func (t RelationshipType) String() string {
	return t.Info().Name
}

// IsValid reports whether t is a known relationship type.
func (t RelationshipType) IsValid() bool {
	return t < NumRelationshipTypes
}

// ParseRelationshipType converts a wire name such as "depends_on".
func ParseRelationshipType(s string) (RelationshipType, error) {
	for _, t := range RelationshipTypes {
		if relationshipTypeTable[t].Name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown relationship type %q", s)
}

// DependencyTypes returns the types that carry failure-propagation semantics.
func DependencyTypes() []RelationshipType {
	out := make([]RelationshipType, 0, len(RelationshipTypes))
	for _, t := range RelationshipTypes {
		if relationshipTypeTable[t].Dependency {
			out = append(out, t)
		}
	}
	return out
}

func (t RelationshipType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid relationship type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *RelationshipType) UnmarshalText(text []byte) error {
	parsed, err := ParseRelationshipType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Relationship is a directed, typed, weighted edge between two entities.
type Relationship struct {
	ID       string           `json:"id" yaml:"id"`
	SourceID string           `json:"sourceId" yaml:"sourceId"`
	TargetID string           `json:"targetId" yaml:"targetId"`
	Type     RelationshipType `json:"type" yaml:"type"`
	Strength float64          `json:"strength" yaml:"strength"` // [0,1]
}

// Validate checks the relationship invariants.
func (r *Relationship) Validate() error {
	if r.SourceID == "" || r.TargetID == "" {
		return fmt.Errorf("relationship %s: source and target are required", r.ID)
	}
	if r.SourceID == r.TargetID {
		return fmt.Errorf("relationship %s: self-loop on %s", r.ID, r.SourceID)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("relationship %s: invalid type", r.ID)
	}
	if r.Strength < 0 || r.Strength > 1 {
		return fmt.Errorf("relationship %s: strength %.3f outside [0,1]", r.ID, r.Strength)
	}
	return nil
}
