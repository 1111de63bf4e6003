package usages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchStartsOnce(t *testing.T) {
	s := newSearch()
	assert.Equal(t, Idle, s.State())
	require.NotEmpty(t, s.ID())

	release := make(chan struct{})
	ran := 0
	ok := s.start(context.Background(), func(ctx context.Context) error {
		ran++
		<-release
		return s.emit(ctx, Usage{Path: "/a.qml", Line: 1})
	})
	require.True(t, ok)
	assert.Equal(t, Searching, s.State())
	assert.False(t, s.start(context.Background(), func(context.Context) error { return nil }))

	close(release)
	got, err := s.Collect()
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, ran)
	assert.Equal(t, Completed, s.State())
	assert.Equal(t, 1, s.Found())

	s.finish(nil) // completing again is a no-op
	assert.Equal(t, Completed, s.State())
}

func TestUsagePlaceholder(t *testing.T) {
	assert.True(t, Usage{}.IsPlaceholder())
	assert.Equal(t, "<searching>", Usage{}.String())
	u := Usage{Path: "/a.qml", Line: 3, Column: 4, Length: 2}
	assert.False(t, u.IsPlaceholder())
	assert.Equal(t, "/a.qml:3:5", u.String())
}
