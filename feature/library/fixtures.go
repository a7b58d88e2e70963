package library

import (
	"reflect"
	"time"

	"seedgraph/core/graph"
	"seedgraph/core/seeder"

	"github.com/google/uuid"
)

// Member IDs are fixed so repeated runs reconcile against the same rows.
var (
	AdaID   = uuid.MustParse("0b7e6a2c-4f1d-4c55-9a0e-2f6d8c1b7a01")
	GraceID = uuid.MustParse("5d21c9e4-8a3b-4e70-b6f2-91c0d4e7a302")
)

// Types lists the library entity types in schema order.
func Types() []reflect.Type {
	return []reflect.Type{
		reflect.TypeFor[*Category](),
		reflect.TypeFor[*Author](),
		reflect.TypeFor[*Book](),
		reflect.TypeFor[*Member](),
		reflect.TypeFor[*Profile](),
		reflect.TypeFor[*Loan](),
	}
}

// RegisterConverters adds the converters for library value types.
func RegisterConverters(c *graph.Converters) {
	graph.RegisterConverter(c, func(t Tags) string { return t.String() })
}

// Catalog is the demo fixture graph. Foreign keys are left zero; registering
// the graph fills them in.
type Catalog struct {
	Categories []*Category
	Authors    []*Author
	Members    []*Member
	Loans      []*Loan
}

// NewCatalog builds a fresh fixture graph.
func NewCatalog() *Catalog {
	fiction := &Category{ID: 1, Name: "Fiction"}
	science := &Category{ID: 2, Name: "Science"}

	born := time.Date(1920, time.October, 8, 0, 0, 0, 0, time.UTC)
	herbert := &Author{AuthorID: 10, Name: "Frank Herbert", Born: &born}
	herbert.Books = []Book{
		{ID: 100, Title: "Dune", ISBN: "9780441013593", Published: date(1965, time.August, 1), Status: StatusOnLoan, Tags: Tags{"classic", "space"}, Category: fiction},
		{ID: 101, Title: "Dune Messiah", ISBN: "9780593098233", Published: date(1969, time.October, 15), Status: StatusAvailable, Category: fiction},
	}
	sagan := &Author{AuthorID: 11, Name: "Carl Sagan"}
	sagan.Books = []Book{
		{ID: 102, Title: "Cosmos", ISBN: "9780345539434", Published: date(1980, time.October, 1), Status: StatusAvailable, Tags: Tags{"astronomy"}, Category: science},
	}
	fiction.Books = []*Book{&herbert.Books[0], &herbert.Books[1]}
	science.Books = []*Book{&sagan.Books[0]}

	ada := &Member{ID: AdaID, Name: "Ada", Email: "ada@example.org"}
	ada.Profile = &Profile{ID: 1, Bio: "Reads mostly science fiction.", Member: ada}
	grace := &Member{ID: GraceID, Name: "Grace", Email: "grace@example.org"}

	loan := &Loan{
		LoanKey:   1,
		Book:      &herbert.Books[0],
		Guarantor: grace,
		DueAt:     date(2025, time.March, 1),
	}
	ada.Loans = []*Loan{loan}

	returned := &Loan{
		LoanKey:  2,
		Book:     &sagan.Books[0],
		Borrower: grace,
		DueAt:    date(2024, time.December, 1),
		Returned: true,
	}

	return &Catalog{
		Categories: []*Category{fiction, science},
		Authors:    []*Author{herbert, sagan},
		Members:    []*Member{ada, grace},
		Loans:      []*Loan{loan, returned},
	}
}

// Roots returns the entities to register. Everything else is reachable from them.
func (c *Catalog) Roots() []any {
	roots := make([]any, 0, len(c.Categories)+len(c.Authors)+len(c.Members)+len(c.Loans))
	for _, v := range c.Categories {
		roots = append(roots, v)
	}
	for _, v := range c.Authors {
		roots = append(roots, v)
	}
	for _, v := range c.Members {
		roots = append(roots, v)
	}
	for _, v := range c.Loans {
		roots = append(roots, v)
	}
	return roots
}

// Register builds the catalog and registers it with s, along with the library
// converters.
func Register(s *seeder.Seeder) (*Catalog, error) {
	RegisterConverters(s.Converters())
	c := NewCatalog()
	if err := s.RegisterAll(c.Roots()...); err != nil {
		return nil, err
	}
	return c, nil
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
