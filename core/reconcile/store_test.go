package reconcile

import (
	"context"
	"fmt"
	"reflect"

	"seedgraph/core/graph"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
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
}

type Member struct {
	Id        int
	ProfileId int
	Profile   *Profile
}

type Profile struct {
	Id       int
	MemberId int
	Member   *Member
}

type Tag struct {
	Code  uuid.UUID `seed:"pk"`
	Label string
}

type Slug struct {
	Slug string `seed:"pk"`
}

type Note struct {
	Text string
}

// memStore is an in-memory Store keyed by type and primary key.
type memStore struct {
	rows   map[reflect.Type]map[any]any
	reject map[reflect.Type]bool
	ops    []string
}

func newMemStore() *memStore {
	return &memStore{
		rows:   make(map[reflect.Type]map[any]any),
		reject: make(map[reflect.Type]bool),
	}
}

func (m *memStore) put(record any) {
	t := reflect.TypeOf(record)
	key, err := graph.KeyOf(record)
	if err != nil {
		panic(err)
	}
	if m.rows[t] == nil {
		m.rows[t] = make(map[any]any)
	}
	m.rows[t][key] = record
}

func (m *memStore) Accepts(_ context.Context, t reflect.Type) (bool, error) {
	return !m.reject[t], nil
}

func (m *memStore) Find(_ context.Context, t reflect.Type, key any) (any, error) {
	return m.rows[t][key], nil
}

func (m *memStore) Insert(_ context.Context, record any) error {
	t := reflect.TypeOf(record)
	key, err := graph.KeyOf(record)
	if err != nil {
		return err
	}
	if _, exists := m.rows[t][key]; exists {
		return fmt.Errorf("duplicate key %v", key)
	}
	m.put(record)
	m.ops = append(m.ops, fmt.Sprintf("insert %s %v", t.Elem().Name(), key))
	return nil
}

func (m *memStore) Overwrite(_ context.Context, record any) error {
	t := reflect.TypeOf(record)
	key, err := graph.KeyOf(record)
	if err != nil {
		return err
	}
	if _, exists := m.rows[t][key]; !exists {
		return fmt.Errorf("missing key %v", key)
	}
	m.put(record)
	m.ops = append(m.ops, fmt.Sprintf("overwrite %s %v", t.Elem().Name(), key))
	return nil
}

func (m *memStore) count(t reflect.Type) int {
	return len(m.rows[t])
}

// mockStore is a testify mock Store for fault injection.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Accepts(ctx context.Context, t reflect.Type) (bool, error) {
	args := m.Called(ctx, t)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Find(ctx context.Context, t reflect.Type, key any) (any, error) {
	args := m.Called(ctx, t, key)
	return args.Get(0), args.Error(1)
}

func (m *mockStore) Insert(ctx context.Context, record any) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockStore) Overwrite(ctx context.Context, record any) error {
	return m.Called(ctx, record).Error(0)
}

func registryOf(entities ...any) *graph.Registry {
	r := graph.NewRegistry()
	if err := r.RegisterAll(entities...); err != nil {
		panic(err)
	}
	return r
}
