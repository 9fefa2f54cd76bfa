package storage

import (
	"encoding/json"
	"testing"
)

func TestRelationshipType_RoundTripNames(t *testing.T) {
	tests := []struct {
		name string
		want RelationshipType
	}{
		{"depends_on", DependsOn},
		{"implements", Implements},
		{"similar_to", SimilarTo},
		{"conflicts_with", ConflictsWith},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRelationshipType(tt.name)
			if err != nil {
				t.Fatalf("ParseRelationshipType(%q) failed: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseRelationshipType(%q) = %v, want %v", tt.name, got, tt.want)
			}
			if got.String() != tt.name {
				t.Errorf("String() = %q, want %q", got.String(), tt.name)
			}
		})
	}
}

func TestRelationshipType_EnumerationOrder(t *testing.T) {
	if !(DependsOn < Implements && Implements < SimilarTo && SimilarTo < ConflictsWith) {
		t.Fatal("relationship types must be ordered depends_on < implements < similar_to < conflicts_with")
	}
	if len(RelationshipTypes) != int(NumRelationshipTypes) {
		t.Errorf("RelationshipTypes has %d entries, want %d", len(RelationshipTypes), NumRelationshipTypes)
	}
}

func TestParseRelationshipType_Unknown(t *testing.T) {
	if _, err := ParseRelationshipType("owns"); err == nil {
		t.Error("Expected error for unknown relationship type")
	}
}

func TestDependencyTypes(t *testing.T) {
	deps := DependencyTypes()
	if len(deps) != 2 || deps[0] != DependsOn || deps[1] != Implements {
		t.Errorf("DependencyTypes() = %v, want [depends_on implements]", deps)
	}
}

func TestRelationship_JSON(t *testing.T) {
	r := Relationship{ID: "r1", SourceID: "a", TargetID: "b", Type: ConflictsWith, Strength: 0.4}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["type"] != "conflicts_with" {
		t.Errorf("type encoded as %v, want conflicts_with", decoded["type"])
	}

	var back Relationship
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal into Relationship failed: %v", err)
	}
	if back != r {
		t.Errorf("decoded %+v, want %+v", back, r)
	}
}

func TestRelationship_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rel     Relationship
		wantErr bool
	}{
		{"valid", Relationship{SourceID: "a", TargetID: "b", Type: DependsOn, Strength: 0.5}, false},
		{"self loop", Relationship{SourceID: "a", TargetID: "a", Type: DependsOn, Strength: 0.5}, true},
		{"missing target", Relationship{SourceID: "a", Type: DependsOn}, true},
		{"strength above one", Relationship{SourceID: "a", TargetID: "b", Type: DependsOn, Strength: 1.5}, true},
		{"negative strength", Relationship{SourceID: "a", TargetID: "b", Type: DependsOn, Strength: -0.1}, true},
		{"bad type", Relationship{SourceID: "a", TargetID: "b", Type: RelationshipType(9)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rel.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEntity_Validate(t *testing.T) {
	ok := Entity{ID: "app-1", Name: "CRM", Type: TypeApplication, CriticalityBase: 70}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() on valid entity failed: %v", err)
	}

	bad := []Entity{
		{Name: "no id", Type: TypeApplication},
		{ID: "x", Type: EntityType("Spreadsheet")},
		{ID: "x", Type: TypeRisk, CriticalityBase: 101},
	}
	for _, e := range bad {
		if err := e.Validate(); err == nil {
			t.Errorf("Validate() accepted invalid entity %+v", e)
		}
	}
}
