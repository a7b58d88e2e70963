package library

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"seedgraph/core/database"
	"seedgraph/core/reconcile"
	"seedgraph/core/seeder"
	"seedgraph/core/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

func newSession(t *testing.T, policy reconcile.Policy) (*seeder.Seeder, *Catalog) {
	t.Helper()
	s, err := seeder.New(policy)
	require.NoError(t, err)
	c, err := Register(s)
	require.NoError(t, err)
	return s, c
}

func setupStore(t *testing.T) (*database.Store, *gorm.DB) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	store := database.NewStore(db)
	require.NoError(t, store.Migrate(context.Background(), Types()...))
	return store, db
}

func TestRegister_FillsForeignKeys(t *testing.T) {
	s, c := newSession(t, reconcile.PolicyHalt)

	assert.Equal(t, 12, s.Len())

	herbert := c.Authors[0]
	dune := &herbert.Books[0]
	assert.Equal(t, 1, dune.CategoryID)
	require.NotNil(t, dune.AuthorID)
	assert.Equal(t, 10, *dune.AuthorID)
	assert.Same(t, herbert, dune.Author, "back-reference set from the author's collection")

	cosmos := &c.Authors[1].Books[0]
	assert.Equal(t, 2, cosmos.CategoryID)
	assert.Equal(t, 11, *cosmos.AuthorID)

	ada := c.Members[0]
	assert.Equal(t, AdaID, ada.Profile.MemberID)

	loan := c.Loans[0]
	assert.Equal(t, 100, loan.BookID)
	assert.Equal(t, AdaID, loan.BorrowerID)
	assert.Same(t, ada, loan.Borrower)
	require.NotNil(t, loan.GuarantorID)
	assert.Equal(t, GraceID, *loan.GuarantorID)

	returned := c.Loans[1]
	assert.Equal(t, GraceID, returned.BorrowerID)
	assert.Equal(t, 102, returned.BookID)
	assert.Nil(t, returned.GuarantorID)

	assert.Equal(t, []reflect.Type{
		reflect.TypeFor[*Category](),
		reflect.TypeFor[*Book](),
		reflect.TypeFor[*Author](),
		reflect.TypeFor[*Member](),
		reflect.TypeFor[*Profile](),
		reflect.TypeFor[*Loan](),
	}, s.Registry().Types())
}

func TestFieldMaps(t *testing.T) {
	s, _ := newSession(t, reconcile.PolicyHalt)

	loans, err := s.FieldMaps(reflect.TypeFor[*Loan]())
	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, []string{"LoanKey", "BookID", "BorrowerID", "GuarantorID", "DueAt", "Returned"}, loans[0].Names())
	assert.Equal(t, []string{"LoanKey", "BookID", "BorrowerID", "DueAt", "Returned"}, loans[1].Names(), "nil guarantor omitted")

	books, err := s.FieldMaps(reflect.TypeFor[*Book]())
	require.NoError(t, err)
	tags, ok := books[0].Get("Tags")
	require.True(t, ok)
	assert.Equal(t, "classic,space", tags)
	_, ok = books[0].Get("Draft")
	assert.False(t, ok)
}

func TestApplyToStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, db := setupStore(t)

	s, _ := newSession(t, reconcile.PolicyHalt)
	plan, err := s.ApplyToStore(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 12, plan.Summary.Inserts)
	assert.Equal(t, []string{"Category", "Author", "Book", "Member", "Profile", "Loan"}, plan.Types)

	var book Book
	require.NoError(t, db.First(&book, 100).Error)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, Tags{"classic", "space"}, book.Tags)
	require.NotNil(t, book.AuthorID)
	assert.Equal(t, 10, *book.AuthorID)

	var loan Loan
	require.NoError(t, db.First(&loan, "loan_key = ?", 1).Error)
	assert.Equal(t, AdaID, loan.BorrowerID)

	// A fresh session over the same fixtures finds identical rows.
	again, _ := newSession(t, reconcile.PolicyHalt)
	plan, err = again.ApplyToStore(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 12, plan.Summary.Unchanged)
	assert.Zero(t, plan.Summary.Inserts)
}

func TestApplyToStore_Policies(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		policy reconcile.Policy
		check  func(t *testing.T, plan *reconcile.Plan, err error, db *gorm.DB)
	}{
		{
			name:   "halt",
			policy: reconcile.PolicyHalt,
			check: func(t *testing.T, _ *reconcile.Plan, err error, db *gorm.DB) {
				assert.True(t, reconcile.IsKeyCollision(err))
				var book Book
				require.NoError(t, db.First(&book, 100).Error)
				assert.Equal(t, "Dune", book.Title)
			},
		},
		{
			name:   "merge",
			policy: reconcile.PolicyMerge,
			check: func(t *testing.T, plan *reconcile.Plan, err error, db *gorm.DB) {
				require.NoError(t, err)
				assert.Equal(t, 1, plan.Summary.Overwrites)
				var book Book
				require.NoError(t, db.First(&book, 100).Error)
				assert.Equal(t, "Dune (Revised)", book.Title)
			},
		},
		{
			name:   "skip",
			policy: reconcile.PolicySkip,
			check: func(t *testing.T, plan *reconcile.Plan, err error, db *gorm.DB) {
				require.NoError(t, err)
				assert.Equal(t, 12, plan.Summary.Skips)
				var book Book
				require.NoError(t, db.First(&book, 100).Error)
				assert.Equal(t, "Dune", book.Title)
			},
		},
		{
			name:   "always_add",
			policy: reconcile.PolicyAlwaysAdd,
			check: func(t *testing.T, plan *reconcile.Plan, err error, db *gorm.DB) {
				require.NoError(t, err)
				assert.Equal(t, 12, plan.Summary.Rekeyed)
				var count int64
				require.NoError(t, db.Model(&Book{}).Count(&count).Error)
				assert.Equal(t, int64(6), count)
				require.NoError(t, db.Model(&Member{}).Count(&count).Error)
				assert.Equal(t, int64(4), count)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, db := setupStore(t)

			first, _ := newSession(t, reconcile.PolicyHalt)
			_, err := first.ApplyToStore(ctx, store)
			require.NoError(t, err)

			s, err := seeder.New(tt.policy)
			require.NoError(t, err)
			RegisterConverters(s.Converters())
			c := NewCatalog()
			c.Authors[0].Books[0].Title = "Dune (Revised)"
			require.NoError(t, s.RegisterAll(c.Roots()...))

			plan, err := s.ApplyToStore(ctx, store)
			tt.check(t, plan, err, db)
		})
	}
}

func TestApplyToSink_DirSink(t *testing.T) {
	s, _ := newSession(t, reconcile.PolicyMerge)
	codec, err := storage.CodecFor("yaml")
	require.NoError(t, err)
	dir := t.TempDir()

	plan, err := s.ApplyToSink(context.Background(), storage.NewDirSink(dir, codec))
	require.NoError(t, err)
	assert.Equal(t, 12, plan.Summary.Entities)

	for _, name := range []string{"categories", "authors", "books", "members", "profiles", "loans"} {
		assert.FileExists(t, filepath.Join(dir, name+".yaml"))
	}

	data, err := os.ReadFile(filepath.Join(dir, "books.yaml"))
	require.NoError(t, err)
	var books []map[string]any
	require.NoError(t, yaml.Unmarshal(data, &books))
	require.Len(t, books, 3)
	assert.Equal(t, "Dune", books[0]["Title"])
	assert.Equal(t, "classic,space", books[0]["Tags"])
	assert.Equal(t, 10, books[0]["AuthorID"])
	assert.Equal(t, "on_loan", books[0]["Status"])

	data, err = os.ReadFile(filepath.Join(dir, "members.yaml"))
	require.NoError(t, err)
	var members []map[string]any
	require.NoError(t, yaml.Unmarshal(data, &members))
	require.Len(t, members, 2)
	assert.Equal(t, AdaID.String(), members[0]["ID"])
}
