package stagecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callcard-relay/internal/model"
)

type mockLister struct {
	calls  int32
	stages []model.Stage
	err    error
}

func (m *mockLister) ListStages(context.Context) ([]model.Stage, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.stages, m.err
}

func (m *mockLister) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

func TestResolve_MissThenHit(t *testing.T) {
	lister := &mockLister{stages: []model.Stage{{ID: 3, Name: "Negotiation"}}}
	c := New(lister)

	name, err := c.Resolve(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Negotiation", name)
	assert.Equal(t, 1, lister.Calls())

	name, err = c.Resolve(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Negotiation", name)
	assert.Equal(t, 1, lister.Calls(), "hit must not refetch")
}

func TestResolve_RefreshPopulatesAllStages(t *testing.T) {
	lister := &mockLister{stages: []model.Stage{
		{ID: 1, Name: "Lead In"},
		{ID: 2, Name: "Contact Made"},
		{ID: 3, Name: "Negotiation"},
	}}
	c := New(lister)

	_, err := c.Resolve(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	for _, s := range lister.stages {
		name, err := c.Resolve(context.Background(), s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.Name, name)
	}
	assert.Equal(t, 1, lister.Calls())
}

func TestResolve_UnknownAfterRefresh(t *testing.T) {
	lister := &mockLister{stages: []model.Stage{{ID: 1, Name: "Lead In"}}}
	c := New(lister)

	name, err := c.Resolve(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, name)

	// Deleted stages keep missing and keep refreshing.
	_, _ = c.Resolve(context.Background(), 99)
	assert.Equal(t, 2, lister.Calls())
}

func TestResolve_RefreshError(t *testing.T) {
	lister := &mockLister{err: errors.New("boom")}
	c := New(lister)

	name, err := c.Resolve(context.Background(), 3)
	assert.ErrorContains(t, err, "refresh stages: boom")
	assert.Empty(t, name)
	assert.Zero(t, c.Len())
}

func TestResolve_ConcurrentMisses(t *testing.T) {
	lister := &mockLister{stages: []model.Stage{{ID: 3, Name: "Negotiation"}, {ID: 4, Name: "Won"}}}
	c := New(lister)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			name, err := c.Resolve(context.Background(), id)
			assert.NoError(t, err)
			assert.NotEmpty(t, name)
		}(3 + i%2)
	}
	wg.Wait()

	assert.Equal(t, 2, c.Len())
	assert.GreaterOrEqual(t, lister.Calls(), 1)
	assert.LessOrEqual(t, lister.Calls(), 20)
}
