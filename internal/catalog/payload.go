package catalog

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError names one field that failed validation and the rule it broke.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field+":"+f.Rule)
	}
	return e.Message + " (" + strings.Join(names, ", ") + ")"
}

const invalidProductMsg = "Invalid product data. Check all fields."

var payloadFields = []string{"name", "description", "price", "category", "inStock"}

// payload is a product request body. A nil field was absent, null, or of the
// wrong JSON type; the last case is also recorded in mistyped.
type payload struct {
	Name        *string  `json:"name" validate:"required,min=1"`
	Description *string  `json:"description" validate:"required,min=1"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Category    *string  `json:"category" validate:"required,min=1"`
	InStock     *bool    `json:"inStock" validate:"required"`

	mistyped map[string]bool
}

func parsePayload(raw map[string]json.RawMessage) payload {
	mistyped := make(map[string]bool)
	return payload{
		Name:        field[string](raw, "name", mistyped),
		Description: field[string](raw, "description", mistyped),
		Price:       field[float64](raw, "price", mistyped),
		Category:    field[string](raw, "category", mistyped),
		InStock:     field[bool](raw, "inStock", mistyped),
		mistyped:    mistyped,
	}
}

func field[T any](raw map[string]json.RawMessage, key string, mistyped map[string]bool) *T {
	v, ok := raw[key]
	if !ok {
		return nil
	}

	var out *T
	if err := json.Unmarshal(v, &out); err != nil {
		mistyped[key] = true
		return nil
	}
	return out
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStrict runs the struct-tag rules: every field present, correctly
// typed, strings non-empty, price non-negative.
func (p payload) validateStrict(v *validator.Validate) error {
	rules := make(map[string]string)

	err := v.Struct(p)
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			rules[fe.Field()] = fe.Tag()
		}
	default:
		return err
	}

	for k := range p.mistyped {
		rules[k] = "type"
	}
	return fieldErrors(rules)
}

// validateLoose mirrors the inline checks of the unauthenticated API:
// non-empty strings, a numeric price and a boolean inStock. Truthy values of
// other JSON types are rejected.
func (p payload) validateLoose() error {
	if emptyString(p.Name) || emptyString(p.Description) || p.Price == nil ||
		emptyString(p.Category) || p.InStock == nil {
		return &ValidationError{Message: invalidProductMsg}
	}
	return nil
}

func fieldErrors(rules map[string]string) error {
	if len(rules) == 0 {
		return nil
	}
	out := &ValidationError{Message: invalidProductMsg}
	for _, name := range payloadFields {
		if rule, ok := rules[name]; ok {
			out.Fields = append(out.Fields, FieldError{Field: name, Rule: rule})
		}
	}
	return out
}

func emptyString(s *string) bool {
	return s == nil || *s == ""
}

// draft assumes the payload has been validated.
func (p payload) draft() Draft {
	return Draft{
		Name:        deref(p.Name, ""),
		Description: deref(p.Description, ""),
		Price:       deref(p.Price, 0),
		Category:    deref(p.Category, ""),
		InStock:     deref(p.InStock, false),
	}
}

func (p payload) merge(existing Product, policy MergePolicy) Product {
	if policy == MergeReplace {
		existing = Product{}
	}
	return Product{
		Name:        deref(p.Name, existing.Name),
		Description: deref(p.Description, existing.Description),
		Price:       deref(p.Price, existing.Price),
		Category:    deref(p.Category, existing.Category),
		InStock:     deref(p.InStock, existing.InStock),
	}
}

func deref[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
