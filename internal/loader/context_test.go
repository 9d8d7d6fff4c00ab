package loader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/testbench/internal/model"
)

func TestContext_ResolveFetchesOnce(t *testing.T) {
	src := newMapSource(map[string]string{"app.Account": accountManifest})
	c := New(src)

	first, err := c.Resolve(context.Background(), "app.Account")
	require.NoError(t, err)

	second, err := c.Resolve(context.Background(), "app.Account")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, src.count("app.Account"))
	assert.Equal(t, m.OriginRemote, first.Origin)
	assert.Equal(t, "app.Account", first.Manifest.Name)
	assert.Equal(t, 3, first.Manifest.MutantCount())
	assert.NotEmpty(t, first.Digest)
	assert.True(t, c.Loaded("app.Account"))
}

func TestContext_HostPreferredNamesUseHost(t *testing.T) {
	shared := &m.Unit{Name: "testbench.coverage.TrackerDatum", Origin: m.OriginHost}
	src := newMapSource(nil)
	c := New(src, WithHost(mapHost{shared.Name: shared}))

	got, err := c.Resolve(context.Background(), shared.Name)
	require.NoError(t, err)

	assert.Same(t, shared, got)
	assert.Zero(t, src.count(shared.Name))
}

func TestContext_RemoteNamesBypassHost(t *testing.T) {
	name := "testbench.coverage.Tracker"
	src := newMapSource(map[string]string{name: "name: " + name + "\n"})
	c := New(src, WithHost(mapHost{name: &m.Unit{Name: name, Origin: m.OriginHost}}))

	got, err := c.Resolve(context.Background(), name)
	require.NoError(t, err)

	assert.Equal(t, m.OriginRemote, got.Origin)
	assert.Equal(t, 1, src.count(name))
}

func TestContext_HostMissFallsBackToSource(t *testing.T) {
	src := newMapSource(map[string]string{"app.Account": accountManifest})
	c := New(src, WithHost(mapHost{}))

	got, err := c.Resolve(context.Background(), "app.Account")
	require.NoError(t, err)
	assert.Equal(t, m.OriginRemote, got.Origin)
}

func TestContext_NotFound(t *testing.T) {
	c := New(newMapSource(nil))

	_, err := c.Resolve(context.Background(), "app.Missing")
	require.ErrorIs(t, err, ErrUnitNotFound)
	assert.Contains(t, err.Error(), "app.Missing")
}

func TestContext_RetrievalError(t *testing.T) {
	cause := errors.New("connection refused")
	src := newMapSource(nil)
	src.err = cause

	_, err := New(src).Resolve(context.Background(), "app.Account")

	var retrieval *RetrievalError
	require.ErrorAs(t, err, &retrieval)
	assert.Equal(t, "app.Account", retrieval.Unit)
	require.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUnitNotFound)
}

func TestContext_DefineErrorIsNotCached(t *testing.T) {
	src := newMapSource(map[string]string{"app.Account": "name: app.Other\n"})
	c := New(src)

	_, err := c.Resolve(context.Background(), "app.Account")
	require.Error(t, err)

	_, err = c.Resolve(context.Background(), "app.Account")
	require.Error(t, err)
	assert.Equal(t, 2, src.count("app.Account"))
}

func TestContext_ForkSharesSourceButNotCache(t *testing.T) {
	src := newMapSource(map[string]string{"app.Account": accountManifest})
	c := New(src)

	_, err := c.Resolve(context.Background(), "app.Account")
	require.NoError(t, err)

	fork := c.Fork()

	assert.Greater(t, fork.ID(), c.ID())
	assert.Equal(t, c.Key(), fork.Key())
	assert.Same(t, c.Source(), fork.Source())
	assert.False(t, fork.Loaded("app.Account"))

	_, err = fork.Resolve(context.Background(), "app.Account")
	require.NoError(t, err)
	assert.Equal(t, 2, src.count("app.Account"))
}

func TestContext_IDsIncrease(t *testing.T) {
	src := newMapSource(nil)
	a := New(src)
	b := New(src)

	assert.Greater(t, b.ID(), a.ID())
}

func TestContext_LoadingTimeReadAndReset(t *testing.T) {
	src := newMapSource(map[string]string{"app.Account": accountManifest})
	src.delay = 5 * time.Millisecond
	c := New(src)

	_, err := c.Resolve(context.Background(), "app.Account")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, c.LoadingTime(), 5*time.Millisecond)
	assert.Zero(t, c.LoadingTime())
}

func TestContext_ForksSerializeFetches(t *testing.T) {
	units := map[string]string{}
	names := []string{"app.A", "app.B", "app.C", "app.D"}

	for _, n := range names {
		units[n] = "name: " + n + "\n"
	}

	src := newMapSource(units)
	src.delay = 2 * time.Millisecond
	root := New(src)

	var wg sync.WaitGroup

	for range 4 {
		fork := root.Fork()

		for _, n := range names {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, err := fork.Resolve(context.Background(), n)
				assert.NoError(t, err)
			}()
		}
	}

	wg.Wait()

	assert.Equal(t, int32(1), src.maxActive.Load())
}

func TestContext_SharedContextIsSafe(t *testing.T) {
	src := newMapSource(map[string]string{"app.Account": accountManifest})
	c := New(src)

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := c.Resolve(context.Background(), "app.Account")
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, src.count("app.Account"))
}
