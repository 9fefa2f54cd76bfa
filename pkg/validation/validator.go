package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Request bounds
	MaxEntityIDLength = 128
	MaxMatrixIDs      = 100
)

func init() {
	validate = validator.New()
	// reltype accepts the wire names of the relationship enumeration.
	_ = validate.RegisterValidation("reltype", func(fl validator.FieldLevel) bool {
		_, err := storage.ParseRelationshipType(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("entityid", func(fl validator.FieldLevel) bool {
		return ValidateEntityID(fl.Field().String()) == nil
	})
}

// ChainsRequest is a chain traversal request as received over HTTP or GraphQL.
type ChainsRequest struct {
	ID    string   `json:"id" validate:"required,entityid"`
	Depth *int     `json:"depth" validate:"omitempty,min=0"`
	Types []string `json:"types" validate:"omitempty,max=4,unique,dive,reltype"`
}

// ImpactRequest is an impact analysis request.
type ImpactRequest struct {
	ID string `json:"id" validate:"required,entityid"`
}

// MatrixRequest is a matrix request. Order is empty, "criticality" or "recency".
type MatrixRequest struct {
	IDs          []string `json:"ids" validate:"omitempty,max=100,dive,entityid"`
	Limit        int      `json:"limit" validate:"min=0"`
	Weighted     bool     `json:"weighted"`
	IncludeEmpty bool     `json:"includeEmpty"`
	Order        string   `json:"order" validate:"omitempty,oneof=criticality recency"`
	Types        []string `json:"types" validate:"omitempty,max=4,unique,dive,reltype"`
}

// CriticalPathsRequest is a critical path scan request.
type CriticalPathsRequest struct {
	Limit     *int     `json:"limit" validate:"omitempty,min=1"`
	Threshold *float64 `json:"threshold" validate:"omitempty,gt=0,lte=100"`
	Types     []string `json:"types" validate:"omitempty,max=4,unique,dive,reltype"`
}

// CyclesRequest is a dependency cycle request.
type CyclesRequest struct {
	Limit     int      `json:"limit" validate:"min=0"`
	MaxLength int      `json:"maxLength" validate:"omitempty,min=2"`
	Types     []string `json:"types" validate:"omitempty,max=4,unique,dive,reltype"`
}

// ValidateRequest checks any of the request types above.
func ValidateRequest(req any) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateEntityID checks an entity id: non-empty, bounded, printable.
func ValidateEntityID(id string) error {
	if id == "" {
		return errors.New("entity id cannot be empty")
	}
	if len(id) > MaxEntityIDLength {
		return fmt.Errorf("entity id exceeds maximum length of %d characters", MaxEntityIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return fmt.Errorf("entity id %q contains whitespace or control characters", id)
		}
	}
	return nil
}

// ParseTypes converts wire names to relationship types. Blank entries, as
// produced by splitting "a,,b", are skipped.
func ParseTypes(names []string) ([]storage.RelationshipType, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]storage.RelationshipType, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t, err := storage.ParseRelationshipType(name)
		if err != nil {
			return nil, fmt.Errorf("Types: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// SplitList splits a comma separated query value, trimming blanks.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "unique":
			return fmt.Errorf("%s: contains duplicates", field)
		case "reltype":
			return fmt.Errorf("%s: unknown relationship type %q (expected one of %s)", field, e.Value(), typeNames())
		case "entityid":
			return fmt.Errorf("%s: invalid entity id %q", field, e.Value())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}

func typeNames() string {
	names := make([]string, len(storage.RelationshipTypes))
	for i, t := range storage.RelationshipTypes {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
