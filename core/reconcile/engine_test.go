package reconcile

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"seedgraph/core/graph"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	categoryType = reflect.TypeFor[*Category]()
	bookType     = reflect.TypeFor[*Book]()
)

func TestApplyToStore_HaltDivergentCollision(t *testing.T) {
	store := newMemStore()
	spec := &Spec{
		Registry: registryOf(&Category{Id: 1, Name: "Fiction"}, &Category{Id: 1, Name: "Drama"}),
		Policy:   PolicyHalt,
	}

	plan, executed, err := ApplyToStore(context.Background(), spec, store)

	require.Error(t, err)
	assert.True(t, IsKeyCollision(err))
	assert.ErrorIs(t, err, ErrKeyCollision)
	assert.Contains(t, err.Error(), "Category")
	assert.Contains(t, err.Error(), "Name: incoming=Drama stored=Fiction")
	assert.Nil(t, plan)
	assert.Zero(t, executed)
	assert.Zero(t, store.count(categoryType), "nothing is written when planning fails")
}

func TestApplyToStore_HaltIdenticalIsNoop(t *testing.T) {
	store := newMemStore()
	store.put(&Category{Id: 2, Name: "Poetry"})
	spec := &Spec{Registry: registryOf(
		&Category{Id: 1, Name: "Fiction"},
		&Category{Id: 1, Name: "Fiction"},
		&Category{Id: 2, Name: "Poetry"},
	)}

	plan, executed, err := ApplyToStore(context.Background(), spec, store)
	require.NoError(t, err)

	assert.Equal(t, PolicyHalt, plan.Policy, "empty policy means halt")
	assert.Equal(t, 1, executed)
	assert.Equal(t, PlanSummary{Entities: 3, Inserts: 1, Unchanged: 2, Collisions: 2}, plan.Summary)
	assert.Equal(t, []string{"insert Category 1"}, store.ops)
}

func TestApplyToStore_HaltAgainstStore(t *testing.T) {
	store := newMemStore()
	store.put(&Category{Id: 1, Name: "Stored"})
	spec := &Spec{Registry: registryOf(&Category{Id: 1, Name: "Incoming"})}

	_, _, err := ApplyToStore(context.Background(), spec, store)
	var collision *KeyCollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "Category", collision.Type)
	assert.Equal(t, 1, collision.Key)
	assert.Equal(t, []string{"Name: incoming=Incoming stored=Stored"}, collision.Diff)
}

func TestApplyToStore_MergeKeepsLaterInstance(t *testing.T) {
	store := newMemStore()
	spec := &Spec{
		Registry: registryOf(&Category{Id: 1, Name: "Fiction"}, &Category{Id: 1, Name: "Drama"}),
		Policy:   PolicyMerge,
	}

	plan, executed, err := ApplyToStore(context.Background(), spec, store)
	require.NoError(t, err)

	assert.Equal(t, 2, executed)
	require.Equal(t, 1, store.count(categoryType))
	stored := store.rows[categoryType][1].(*Category)
	assert.Equal(t, "Drama", stored.Name)

	actions := plan.ActionsFor("Category")
	require.Len(t, actions, 2)
	assert.Equal(t, ActionInsert, actions[0].Type)
	assert.Equal(t, ActionOverwrite, actions[1].Type)
	assert.Equal(t, []string{"Name: incoming=Drama stored=Fiction"}, actions[1].Diff)
}

func TestApplyToStore_MergeOverwritesStoredRecord(t *testing.T) {
	store := newMemStore()
	store.put(&Category{Id: 1, Name: "Stored"})
	category := &Category{Id: 1, Name: "Incoming", Books: []*Book{{Id: 3, Title: "T"}}}
	spec := &Spec{Registry: registryOf(category), Policy: PolicyMerge}

	plan, _, err := ApplyToStore(context.Background(), spec, store)
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Summary.Overwrites)
	stored := store.rows[categoryType][1].(*Category)
	assert.Equal(t, "Incoming", stored.Name)
	assert.Nil(t, stored.Books, "relationships are never written")
	assert.Equal(t, []string{"overwrite Category 1", "insert Book 3"}, store.ops)
}

func TestApplyToStore_MergeTwiceIsIdempotent(t *testing.T) {
	store := newMemStore()
	first := &Spec{Registry: registryOf(&Category{Id: 1, Name: "Fiction"}), Policy: PolicyMerge}
	second := &Spec{Registry: registryOf(&Category{Id: 1, Name: "Drama"}), Policy: PolicyMerge}

	_, _, err := ApplyToStore(context.Background(), first, store)
	require.NoError(t, err)
	_, _, err = ApplyToStore(context.Background(), second, store)
	require.NoError(t, err)
	plan, executed, err := ApplyToStore(context.Background(), second, store)
	require.NoError(t, err)

	assert.Zero(t, executed)
	assert.Equal(t, 1, plan.Summary.Unchanged)
	assert.Equal(t, 1, store.count(categoryType))
	assert.Equal(t, "Drama", store.rows[categoryType][1].(*Category).Name)
}

func TestApplyToStore_Skip(t *testing.T) {
	store := newMemStore()
	store.put(&Category{Id: 2, Name: "Stored"})
	spec := &Spec{
		Registry: registryOf(
			&Category{Id: 1, Name: "First"},
			&Category{Id: 1, Name: "Second"},
			&Category{Id: 2, Name: "Incoming"},
		),
		Policy: PolicySkip,
	}

	plan, executed, err := ApplyToStore(context.Background(), spec, store)
	require.NoError(t, err)

	assert.Equal(t, 1, executed)
	assert.Equal(t, 2, plan.Summary.Skips)
	assert.Equal(t, "First", store.rows[categoryType][1].(*Category).Name)
	assert.Equal(t, "Stored", store.rows[categoryType][2].(*Category).Name)
}

func TestApplyToStore_AlwaysAddIntegerKeys(t *testing.T) {
	store := newMemStore()
	store.put(&Category{Id: 2, Name: "Taken"})
	first := &Category{Id: 1, Name: "A"}
	second := &Category{Id: 1, Name: "B"}
	spec := &Spec{Registry: registryOf(first, second), Policy: PolicyAlwaysAdd}

	plan, executed, err := ApplyToStore(context.Background(), spec, store)
	require.NoError(t, err)

	assert.Equal(t, 2, executed)
	assert.Equal(t, 1, first.Id)
	assert.Equal(t, 3, second.Id, "2 is probed and found taken")
	assert.Equal(t, 3, store.count(categoryType))
	assert.Equal(t, "B", store.rows[categoryType][3].(*Category).Name)

	actions := plan.ActionsFor("Category")
	require.Len(t, actions, 2)
	assert.True(t, actions[1].Rekeyed())
	assert.Equal(t, 1, actions[1].PreviousKey)
	assert.Equal(t, 3, actions[1].Key)
	assert.Equal(t, 1, plan.Summary.Rekeyed)
}

func TestApplyToStore_AlwaysAddAvoidsRegisteredKeys(t *testing.T) {
	store := newMemStore()
	a := &Category{Id: 1, Name: "A"}
	b := &Category{Id: 1, Name: "B"}
	c := &Category{Id: 2, Name: "C"}
	book := &Book{Id: 7, Category: c}
	spec := &Spec{Registry: registryOf(a, b, book), Policy: PolicyAlwaysAdd}

	plan, _, err := ApplyToStore(context.Background(), spec, store)
	require.NoError(t, err)

	assert.Equal(t, 1, a.Id)
	assert.Equal(t, 3, b.Id, "2 belongs to a later registered category")
	assert.Equal(t, 2, c.Id, "only the colliding instance is rekeyed")
	assert.Equal(t, 2, book.CategoryId)
	assert.Equal(t, "C", store.rows[categoryType][2].(*Category).Name)
	assert.Equal(t, 1, plan.Summary.Rekeyed)
}

func TestApplyToStore_AlwaysAddUUIDAndStringKeys(t *testing.T) {
	code := uuid.New()
	store := newMemStore()
	store.put(&Tag{Code: code, Label: "stored"})
	tag := &Tag{Code: code, Label: "incoming"}
	a := &Slug{Slug: "same"}
	b := &Slug{Slug: "same"}
	spec := &Spec{Registry: registryOf(tag, a, b), Policy: PolicyAlwaysAdd}

	_, _, err := ApplyToStore(context.Background(), spec, store)
	require.NoError(t, err)

	assert.NotEqual(t, code, tag.Code)
	assert.Equal(t, 2, store.count(reflect.TypeFor[*Tag]()))
	assert.Equal(t, "same", a.Slug)
	_, err = uuid.Parse(b.Slug)
	assert.NoError(t, err, "string keys are regenerated as UUID strings")
}

func TestApplyToStore_AlwaysAddExhausted(t *testing.T) {
	store := newMemStore()
	for i := 1; i <= 3; i++ {
		store.put(&Category{Id: i})
	}
	spec := &Spec{
		Registry:       registryOf(&Category{Id: 1}),
		Policy:         PolicyAlwaysAdd,
		MaxKeyAttempts: 2,
	}

	_, _, err := ApplyToStore(context.Background(), spec, store)
	require.Error(t, err)
	assert.True(t, IsKeySynthesisExhausted(err))

	var synth *KeySynthesisError
	require.ErrorAs(t, err, &synth)
	assert.Equal(t, 2, synth.Attempts)
	assert.Equal(t, 1, synth.Key)
}

func TestPlanStore_MissingPrimaryKey(t *testing.T) {
	spec := &Spec{Registry: registryOf(&Note{Text: "x"})}

	_, err := PlanStore(context.Background(), spec, newMemStore())
	require.Error(t, err)
	assert.True(t, graph.IsPrimaryKeyNotFound(err))

	var applyErr *ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, "Note", applyErr.Type)
}

func TestPlanStore_SkipsUnacceptedTypes(t *testing.T) {
	store := newMemStore()
	store.reject[reflect.TypeFor[*Note]()] = true
	spec := &Spec{Registry: registryOf(&Note{Text: "x"}, &Category{Id: 1})}

	plan, err := PlanStore(context.Background(), spec, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"Note"}, plan.Summary.SkippedTypes)
	assert.Equal(t, []string{"Category"}, plan.Types)
}

func TestPlanStore_DependencyOrder(t *testing.T) {
	category := &Category{Id: 1}
	book := &Book{Id: 1, Category: category}
	member := &Member{Id: 1}
	member.Profile = &Profile{Id: 1, Member: member}

	spec := &Spec{Registry: registryOf(book, member)}
	require.Equal(t, []reflect.Type{bookType, categoryType, reflect.TypeFor[*Member](), reflect.TypeFor[*Profile]()}, spec.Registry.Types())

	plan, err := PlanStore(context.Background(), spec, newMemStore())
	require.NoError(t, err)
	assert.Equal(t, []string{"Category", "Book", "Member", "Profile"}, plan.Types)
}

func TestPlanStore_StoreFaults(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name  string
		setup func(m *mockStore)
		op    string
	}{
		{
			name: "accepts",
			setup: func(m *mockStore) {
				m.On("Accepts", mock.Anything, categoryType).Return(false, boom)
			},
			op: "accepts",
		},
		{
			name: "find",
			setup: func(m *mockStore) {
				m.On("Accepts", mock.Anything, categoryType).Return(true, nil)
				m.On("Find", mock.Anything, categoryType, 1).Return(nil, boom)
			},
			op: "find",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			tt.setup(store)
			spec := &Spec{Registry: registryOf(&Category{Id: 1})}

			_, err := PlanStore(context.Background(), spec, store)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStore)
			assert.ErrorIs(t, err, boom)

			var storeErr *StoreError
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, tt.op, storeErr.Op)
			assert.Equal(t, "Category", storeErr.Type)
			store.AssertExpectations(t)
		})
	}
}

func TestApplyPlan_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("disk full")
	store := &mockStore{}
	store.On("Accepts", mock.Anything, categoryType).Return(true, nil)
	store.On("Find", mock.Anything, categoryType, mock.Anything).Return(nil, nil)
	store.On("Insert", mock.Anything, mock.MatchedBy(func(c *Category) bool { return c.Id == 1 })).Return(nil).Once()
	store.On("Insert", mock.Anything, mock.MatchedBy(func(c *Category) bool { return c.Id == 2 })).Return(boom).Once()

	spec := &Spec{Registry: registryOf(&Category{Id: 1}, &Category{Id: 2}, &Category{Id: 3})}
	plan, executed, err := ApplyToStore(context.Background(), spec, store)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, executed)
	assert.Len(t, plan.Actions, 3)
	store.AssertNumberOfCalls(t, "Insert", 2)
}

func TestApplyPlan_Rejects(t *testing.T) {
	_, err := ApplyPlan(context.Background(), nil, &Plan{})
	assert.ErrorIs(t, err, graph.ErrNilArgument)

	_, err = ApplyPlan(context.Background(), newMemStore(), &Plan{Mode: ModeSink})
	assert.Error(t, err)

	_, err = PlanStore(context.Background(), &Spec{}, newMemStore())
	assert.ErrorIs(t, err, graph.ErrNilArgument)

	_, err = PlanStore(context.Background(), &Spec{Registry: graph.NewRegistry(), Policy: "sometimes"}, newMemStore())
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
