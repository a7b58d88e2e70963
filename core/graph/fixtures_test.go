package graph

import (
	"time"

	"github.com/google/uuid"
)

type Category struct {
	Id    int
	Name  string
	Books []*Book
}

type Book struct {
	Id         int
	Title      string
	CategoryId int
	Category   *Category
	AuthorId   *int
	Author     *Author
	Published  time.Time
}

type Author struct {
	AuthorId int
	Name     string
	Books    []Book
}

type Member struct {
	Id        int
	Name      string
	ProfileId int
	Profile   *Profile
}

type Profile struct {
	Id       int
	Bio      string
	MemberId int
	Member   *Member
}

// Loan has two references to Member, disambiguated by annotations.
type Loan struct {
	LoanKey      string `seed:"pk"`
	BorrowerId   int
	Borrower     *Member `seed:"fk=BorrowerId"`
	GuarantorRef int     `seed:"ref=Guarantor"`
	Guarantor    *Member
}

// Person owns two collections of the same child type.
type Person struct {
	Id      int
	Owned   []*Pet `seed:"fk=OwnerId"`
	Watched []*Pet `seed:"fk=SitterId"`
}

type Pet struct {
	Id       int
	SitterId int
	Sitter   *Person
	OwnerId  int
	Owner    *Person
}

type Shelf struct {
	Code    uuid.UUID `gorm:"primaryKey"`
	Label   string
	Volumes []*Volume `gorm:"foreignKey:ShelfCode"`
}

type Volume struct {
	Id        int64
	ShelfCode uuid.UUID
}

// Tray has no back reference; its only free ...Id field is the owner key.
type Tray struct {
	Id    int
	Items []*TrayItem
}

type TrayItem struct {
	Id      int
	OwnerId int
	Label   string
}

type Audit struct {
	ID      uint
	Note    string
	Secret  string `seed:"-"`
	Tags    []string
	Meta    map[string]string
	private int
}

type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type Tagged struct {
	Timestamps
	Id    int
	Color Color
}

type Color struct {
	R, G, B uint8
}

type NoKey struct {
	Name string
}
