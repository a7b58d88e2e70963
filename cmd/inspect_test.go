package cmd

import (
	"bytes"
	"strings"
	"testing"

	"seedgraph/core/database"
	"seedgraph/core/seeder"
	"seedgraph/feature/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintFieldMaps(t *testing.T) {
	s, err := seeder.New("halt")
	require.NoError(t, err)
	_, err = library.Register(s)
	require.NoError(t, err)

	t.Run("All Types", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printFieldMaps(&buf, s, "", nil))
		out := buf.String()
		for _, header := range []string{"Category (2)", "Book (3)", "Author (2)", "Member (2)", "Profile (1)", "Loan (2)"} {
			assert.Contains(t, out, header)
		}
	})

	t.Run("Filtered", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printFieldMaps(&buf, s, "book", nil))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "Book (3)", lines[0])
		assert.Contains(t, lines[1], "ID=100 Title=Dune")
		assert.Contains(t, lines[1], "Tags=classic,space CategoryID=1 AuthorID=10")
	})

	t.Run("With Tables", func(t *testing.T) {
		db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, printFieldMaps(&buf, s, "loan", database.NewStore(db)))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "Loan (2) table=library_loans", lines[0])
	})

	t.Run("Unknown Type", func(t *testing.T) {
		var buf bytes.Buffer
		assert.EqualError(t, printFieldMaps(&buf, s, "shelf", nil), "unknown type: shelf")
	})
}
