package library

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookStatus is the shelf state of a book.
type BookStatus string

const (
	StatusAvailable BookStatus = "available"
	StatusOnLoan    BookStatus = "on_loan"
	StatusArchived  BookStatus = "archived"
)

// Tags is a comma-separated label list stored in a single column.
type Tags []string

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Tags", src)
	}
	if s == "" {
		*t = nil
		return nil
	}
	*t = strings.Split(s, ",")
	return nil
}

// GormDataType stores tags as text.
func (Tags) GormDataType() string {
	return "string"
}

func (t Tags) String() string {
	return strings.Join(t, ",")
}

type Category struct {
	ID    int     `gorm:"primaryKey;column:id"`
	Name  string  `gorm:"column:name;type:varchar(100)"`
	Books []*Book `gorm:"foreignKey:CategoryID"`
}

func (Category) TableName() string {
	return "library_categories"
}

// Author owns its books by value; each element is registered by address.
type Author struct {
	AuthorID int    `gorm:"primaryKey;column:author_id"`
	Name     string `gorm:"column:name;type:varchar(120)"`
	Born     *time.Time
	Books    []Book `gorm:"foreignKey:AuthorID"`
}

func (Author) TableName() string {
	return "library_authors"
}

type Book struct {
	ID         int        `gorm:"primaryKey;column:id"`
	Title      string     `gorm:"column:title;type:varchar(255)"`
	ISBN       string     `gorm:"column:isbn;type:varchar(20)"`
	Published  time.Time  `gorm:"column:published"`
	Status     BookStatus `gorm:"column:status;type:varchar(16)"`
	Tags       Tags       `gorm:"column:tags"`
	CategoryID int        `gorm:"column:category_id"`
	Category   *Category
	AuthorID   *int `gorm:"column:author_id"`
	Author     *Author
	// Draft holds editor notes that are never seeded.
	Draft string `gorm:"-" seed:"-"`
}

func (Book) TableName() string {
	return "library_books"
}

type Member struct {
	ID      uuid.UUID `gorm:"type:char(36);primaryKey;column:id"`
	Name    string    `gorm:"column:name;type:varchar(120)"`
	Email   string    `gorm:"column:email;type:varchar(255)"`
	Profile *Profile
	Loans   []*Loan `gorm:"foreignKey:BorrowerID"`
}

func (Member) TableName() string {
	return "library_members"
}

// Profile and Member reference each other.
type Profile struct {
	ID       int       `gorm:"primaryKey;column:id"`
	Bio      string    `gorm:"column:bio;type:text"`
	MemberID uuid.UUID `gorm:"type:char(36);column:member_id"`
	Member   *Member
}

func (Profile) TableName() string {
	return "library_profiles"
}

// Loan uses a non-conventional key and two references to Member.
type Loan struct {
	LoanKey     int64 `gorm:"primaryKey;column:loan_key"`
	BookID      int   `gorm:"column:book_id"`
	Book        *Book
	BorrowerID  uuid.UUID  `gorm:"type:char(36);column:borrower_id"`
	Borrower    *Member    `gorm:"foreignKey:BorrowerID"`
	GuarantorID *uuid.UUID `gorm:"type:char(36);column:guarantor_id"`
	Guarantor   *Member    `gorm:"foreignKey:GuarantorID"`
	DueAt       time.Time  `gorm:"column:due_at"`
	Returned    bool       `gorm:"column:returned"`
}

func (Loan) TableName() string {
	return "library_loans"
}
