package utils

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type takenSlugs map[string]bool

func (t takenSlugs) IsSlugInUse(_ context.Context, slug string) (bool, error) {
	return t[slug], nil
}

type failingChecker struct{}

func (failingChecker) IsSlugInUse(context.Context, string) (bool, error) {
	return false, errors.New("db down")
}

func TestCreateSlug(t *testing.T) {
	assert.Equal(t, "go-in-practice", CreateSlug("Go in Practice!"))
	assert.Equal(t, "a-b", CreateSlug("  A -- b  "))
	assert.Equal(t, "", CreateSlug("!!!"))
}

func TestGenerateUniqueSlug(t *testing.T) {
	ctx := context.Background()

	slug, err := GenerateUniqueSlug(ctx, "Go Basics", takenSlugs{})
	require.NoError(t, err)
	assert.Equal(t, "go-basics", slug)

	slug, err = GenerateUniqueSlug(ctx, "Go Basics", takenSlugs{"go-basics": true})
	require.NoError(t, err)
	assert.Equal(t, "go-basics-2", slug)

	slug, err = GenerateUniqueSlug(ctx, "Go Basics", takenSlugs{"go-basics": true, "go-basics-2": true, "go-basics-3": true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(slug, "go-basics-"))
	assert.Len(t, slug, len("go-basics-")+5)

	slug, err = GenerateUniqueSlug(ctx, "???", takenSlugs{})
	require.NoError(t, err)
	assert.Equal(t, "course", slug)

	_, err = GenerateUniqueSlug(ctx, "x", failingChecker{})
	assert.Error(t, err)
}
