package database

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"seedgraph/core/graph"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Store reconciles seed data against a relational database through gorm.
// Entity types map to tables by gorm's naming rules; relations are never
// written, only scalar columns.
type Store struct {
	db  *gorm.DB
	log *zap.Logger

	mu      sync.Mutex
	schemas map[reflect.Type]*tableSchema
}

type tableSchema struct {
	table    string
	pkColumn string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger used for table diagnostics.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore wraps an open connection.
func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:      db,
		log:     zap.NewNop(),
		schemas: make(map[reflect.Type]*tableSchema),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accepts reports whether a table for t exists and carries t's primary key column.
func (s *Store) Accepts(ctx context.Context, t reflect.Type) (bool, error) {
	ts, err := s.schemaOf(t)
	if err != nil {
		return false, err
	}

	db := s.db.WithContext(ctx)
	if !db.Migrator().HasTable(ts.table) {
		s.log.Debug("No table for type", zap.String("type", t.String()), zap.String("table", ts.table))
		return false, nil
	}

	missing, err := MissingColumns(db, ts.table, []string{ts.pkColumn})
	if err != nil {
		return false, err
	}
	if len(missing) > 0 {
		s.log.Warn("Table lacks primary key column",
			zap.String("table", ts.table),
			zap.String("column", ts.pkColumn),
		)
		return false, nil
	}
	return true, nil
}

// Find loads the row of type t with the given primary key. It returns nil
// when no such row exists.
func (s *Store) Find(ctx context.Context, t reflect.Type, key any) (any, error) {
	ts, err := s.schemaOf(t)
	if err != nil {
		return nil, err
	}

	dest := reflect.New(t.Elem()).Interface()
	err = s.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: ts.pkColumn}, Value: key}).
		Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s %v: %w", ts.table, key, err)
	}
	return dest, nil
}

// Insert creates a new row from record.
func (s *Store) Insert(ctx context.Context, record any) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error; err != nil {
		return fmt.Errorf("failed to insert %T: %w", record, err)
	}
	return nil
}

// Overwrite updates every column of the row sharing record's primary key.
func (s *Store) Overwrite(ctx context.Context, record any) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(record).Error; err != nil {
		return fmt.Errorf("failed to overwrite %T: %w", record, err)
	}
	return nil
}

// Migrate creates or alters the tables for the given entity types.
func (s *Store) Migrate(ctx context.Context, types ...reflect.Type) error {
	models := make([]any, 0, len(types))
	for _, t := range types {
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		models = append(models, reflect.New(t).Interface())
	}
	if err := s.db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// TableName returns the table gorm maps t to.
func (s *Store) TableName(t reflect.Type) (string, error) {
	ts, err := s.schemaOf(t)
	if err != nil {
		return "", err
	}
	return ts.table, nil
}

func (s *Store) schemaOf(t reflect.Type) (*tableSchema, error) {
	if t == nil {
		return nil, graph.ErrNilArgument
	}
	if t.Kind() != reflect.Pointer {
		t = reflect.PointerTo(t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ts, ok := s.schemas[t]; ok {
		return ts, nil
	}

	info, err := graph.Describe(t)
	if err != nil {
		return nil, err
	}
	pk, err := info.RequirePrimaryKey()
	if err != nil {
		return nil, err
	}

	stmt := &gorm.Statement{DB: s.db}
	if err := stmt.Parse(reflect.New(t.Elem()).Interface()); err != nil {
		return nil, fmt.Errorf("failed to parse schema of %s: %w", t.Elem().Name(), err)
	}

	ts := &tableSchema{table: stmt.Schema.Table}
	if field := stmt.Schema.LookUpField(pk.Name); field != nil && field.DBName != "" {
		ts.pkColumn = field.DBName
	} else {
		ts.pkColumn = s.namer().ColumnName(ts.table, pk.Name)
	}
	s.schemas[t] = ts
	return ts, nil
}

func (s *Store) namer() schema.Namer {
	if s.db.Config != nil && s.db.NamingStrategy != nil {
		return s.db.NamingStrategy
	}
	return schema.NamingStrategy{}
}
