// Package autocomplete suggests known developer usernames for a typed prefix.
package autocomplete

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rohankatakam/torvalds/internal/cache"
	"github.com/rohankatakam/torvalds/internal/errors"
	"github.com/rohankatakam/torvalds/internal/graph"
)

// MinQueryLength is the shortest prefix, in characters, that reaches the store.
const MinQueryLength = 2

// Suggester is the store side, normally graph.Store.
type Suggester interface {
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)
}

type Service struct {
	store Suggester
	cache *cache.SuggestCache
	limit int
}

// NewService wires the store and an optional answer cache (nil disables it).
// limit <= 0 selects graph.DefaultSuggestLimit.
func NewService(store Suggester, c *cache.SuggestCache, limit int) *Service {
	if limit <= 0 {
		limit = graph.DefaultSuggestLimit
	}
	return &Service{store: store, cache: c, limit: limit}
}

// Suggest returns up to limit usernames starting with query, in username
// order. Queries shorter than MinQueryLength yield an empty list without a
// store call. The result is never nil.
func (s *Service) Suggest(ctx context.Context, query string) ([]string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []string{}, nil
	}

	if names, ok := s.cache.Get(query, s.limit); ok {
		return names, nil
	}

	names, err := s.store.Suggest(ctx, query, s.limit)
	if err != nil {
		return nil, errors.DatabaseError(err, "autocomplete lookup failed")
	}
	if names == nil {
		names = []string{}
	}
	s.cache.Add(query, s.limit, names)
	return names, nil
}
