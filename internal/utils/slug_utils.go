package utils

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
)

var (
	nonSlugRegex = regexp.MustCompile(`[^a-z0-9\s-]`)
	dashRegex    = regexp.MustCompile(`[\s-]+`)

	randomMu sync.Mutex
	random   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// SlugChecker reports whether a slug is already taken.
type SlugChecker interface {
	IsSlugInUse(ctx context.Context, slug string) (bool, error)
}

// CreateSlug turns "Go in Practice!" into "go-in-practice".
func CreateSlug(title string) string {
	lower := strings.ToLower(title)
	clean := nonSlugRegex.ReplaceAllString(lower, "")
	slug := dashRegex.ReplaceAllString(clean, "-")
	return strings.Trim(slug, "-")
}

// GenerateUniqueSlug derives a slug from title and probes the checker until
// it finds a free one: base, base-2, base-3, then random suffixes.
func GenerateUniqueSlug(ctx context.Context, title string, checker SlugChecker) (string, error) {
	// 1. Base slug
	base := CreateSlug(title)
	if base == "" {
		base = "course" // title was all symbols
	}

	// 2. Probe for a free one
	slug := base
	for i := 1; i <= 10; i++ {
		taken, err := checker.IsSlugInUse(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", slug, err)
		}
		if !taken {
			return slug, nil
		}
		// 3. Taken: numbered suffix first, random after the third try
		if i < 3 {
			slug = fmt.Sprintf("%s-%d", base, i+1) // "go-basics-2", "go-basics-3"
		} else {
			slug = base + "-" + randomString(5) // "go-basics-a1b2c"
		}
	}
	return "", fmt.Errorf("no free slug for title %q", title)
}

func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	randomMu.Lock()
	defer randomMu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[random.Intn(len(letters))]
	}
	return string(b)
}
