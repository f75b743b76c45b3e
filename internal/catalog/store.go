package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"MiniCatalog/pkg/kit"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	InStock     bool    `json:"inStock"`
}

// Draft is a product without an id, as accepted by Create.
type Draft struct {
	Name        string
	Description string
	Price       float64
	Category    string
	InStock     bool
}

type ListQuery struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

type Page struct {
	Page    int       `json:"page"`
	Limit   int       `json:"limit"`
	Total   int       `json:"total"`
	Results []Product `json:"results"`
}

type Stats struct {
	TotalProducts      int            `json:"totalProducts"`
	ProductsByCategory map[string]int `json:"productsByCategory"`
}

// Store owns the product collection. Implementations keep insertion order
// and never reuse or change an id.
type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context, q ListQuery) (Page, error)
	Get(ctx context.Context, id string) (Product, error)
	Create(ctx context.Context, d Draft) (Product, error)
	// Update applies fn to the stored record under the store lock. The id
	// returned by fn is ignored.
	Update(ctx context.Context, id string, fn func(Product) Product) (Product, error)
	Delete(ctx context.Context, id string) (Product, error)
	Stats(ctx context.Context) (Stats, error)
}

type MergePolicy string

const (
	// MergeReplace overwrites every field, zeroing the ones the payload omits.
	MergeReplace MergePolicy = "replace"
	// MergePartial keeps the stored value for absent or mistyped fields.
	MergePartial MergePolicy = "partial"
)

func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case MergePartial, "":
		return MergePartial, nil
	case MergeReplace:
		return MergeReplace, nil
	default:
		return "", fmt.Errorf("unknown merge policy %q", s)
	}
}

// Policy selects between the strict and loose flavours of the product API.
type Policy struct {
	StrictAuth       bool
	StrictValidation bool
	ErrorShape       kit.ErrorShape
	MergePolicy      MergePolicy
}

func StrictPolicy() Policy {
	return Policy{
		StrictAuth:       true,
		StrictValidation: true,
		ErrorShape:       kit.ShapeStructured,
		MergePolicy:      MergePartial,
	}
}

func LoosePolicy() Policy {
	return Policy{
		ErrorShape:  kit.ShapeFlat,
		MergePolicy: MergePartial,
	}
}

// SeedProducts is the sample data a fresh process starts with.
func SeedProducts() []Draft {
	return []Draft{
		{Name: "Laptop", Description: "High-performance laptop with 16GB RAM", Price: 1200, Category: "electronics", InStock: true},
		{Name: "Smartphone", Description: "Latest model with 128GB storage", Price: 800, Category: "electronics", InStock: true},
		{Name: "Coffee Maker", Description: "Programmable coffee maker with timer", Price: 50, Category: "kitchen", InStock: false},
	}
}
