package facets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	db "github.com/benjlis/covid19-search/internal/storage"
)

type fakeSource struct {
	entityCalls int
	topicCalls  int
	fail        bool
}

func (f *fakeSource) ListEntities(_ context.Context, types ...string) ([]string, error) {
	f.entityCalls++

	if f.fail {
		return nil, errors.New("db down")
	}

	switch types[0] {
	case db.EntityTypePerson:
		return []string{"Anthony Fauci", "Deborah Birx"}, nil
	case db.EntityTypeOrg:
		return []string{"CDC", "WHO"}, nil
	default:
		return []string{"Wuhan"}, nil
	}
}

func (f *fakeSource) ListTopics(_ context.Context) ([]db.Topic, error) {
	f.topicCalls++

	if f.fail {
		return nil, errors.New("db down")
	}

	return []db.Topic{
		{Label: "testing", Keywords: []string{"test", "swab"}},
		{Label: "travel", Keywords: []string{"flight", "border"}},
	}, nil
}

func TestCache_LoadsOnceWithinTTL(t *testing.T) {
	source := &fakeSource{}
	cache := NewCache(source, time.Hour)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)

	assert.Equal(t, []string{"Anthony Fauci", "Deborah Birx"}, first.Persons)
	assert.Equal(t, []string{"CDC", "WHO"}, first.Orgs)
	assert.Equal(t, []string{"Wuhan"}, first.Locations)
	assert.Equal(t, []string{"testing", "travel"}, first.TopicLabels())

	second, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)

	// One load = three entity queries + one topic query.
	assert.Equal(t, 3, source.entityCalls)
	assert.Equal(t, 1, source.topicCalls)
}

func TestCache_ReloadsAfterTTL(t *testing.T) {
	source := &fakeSource{}
	cache := NewCache(source, time.Hour)

	current := time.Now()
	cache.now = func() time.Time { return current }

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)

	_, err = cache.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, source.entityCalls)
	assert.Equal(t, 2, source.topicCalls)
}

func TestCache_ServesStaleOnLoadFailure(t *testing.T) {
	source := &fakeSource{}
	cache := NewCache(source, time.Hour)

	current := time.Now()
	cache.now = func() time.Time { return current }

	catalog, err := cache.Get(context.Background())
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)
	source.fail = true

	stale, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, catalog, stale)
}

func TestCache_FailsWhenNothingCached(t *testing.T) {
	cache := NewCache(&fakeSource{fail: true}, time.Hour)

	_, err := cache.Get(context.Background())
	assert.Error(t, err)
}

func TestCache_Invalidate(t *testing.T) {
	source := &fakeSource{}
	cache := NewCache(source, time.Hour)

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	cache.Invalidate()

	_, err = cache.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, source.topicCalls)
}
