package graph

import (
	"context"
	"fmt"
	"strings"
)

// DefaultSuggestLimit is how many usernames Suggest returns.
const DefaultSuggestLimit = 3

type suggestStrategy struct {
	name string
	run  func(ctx context.Context, prefix string, limit int) ([]string, error)
}

// Suggest returns up to limit usernames starting with prefix, in
// lexicographic order. The fulltext index is tried first; if it fails
// (missing index, bad query) an unindexed prefix scan is used instead.
func (s *Store) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	strategies := []suggestStrategy{
		{name: "fulltext", run: s.suggestFulltext},
		{name: "prefix_scan", run: s.suggestPrefixScan},
	}
	return firstSuccessful(ctx, strategies, prefix, limit, func(name string, err error) {
		s.client.logger.Warn("suggest strategy failed", "strategy", name, "error", err)
	})
}

// firstSuccessful returns the answer of the first strategy that does not fail.
func firstSuccessful(ctx context.Context, strategies []suggestStrategy, prefix string, limit int, onFail func(string, error)) ([]string, error) {
	var lastErr error
	for _, st := range strategies {
		names, err := st.run(ctx, prefix, limit)
		if err == nil {
			if names == nil {
				names = []string{}
			}
			return names, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		onFail(st.name, err)
		lastErr = err
	}
	return nil, fmt.Errorf("all suggest strategies failed: %w", lastErr)
}

func (s *Store) suggestFulltext(ctx context.Context, prefix string, limit int) ([]string, error) {
	query := `
		CALL db.index.fulltext.queryNodes($index, $query)
		YIELD node
		RETURN node.username AS username
		ORDER BY username
		LIMIT $limit`

	return s.usernames(ctx, query, map[string]any{
		"index": FulltextIndexName,
		"query": escapeLucene(prefix) + "*",
		"limit": limit,
	})
}

func (s *Store) suggestPrefixScan(ctx context.Context, prefix string, limit int) ([]string, error) {
	query := `
		MATCH (d:Developer)
		WHERE toLower(d.username) STARTS WITH $prefix
		RETURN d.username AS username
		ORDER BY username
		LIMIT $limit`

	return s.usernames(ctx, query, map[string]any{"prefix": prefix, "limit": limit})
}

func (s *Store) usernames(ctx context.Context, query string, params map[string]any) ([]string, error) {
	result, err := s.client.read(ctx, OpAutocomplete, query, params)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Records))
	for _, rec := range result.Records {
		v, _ := rec.Get("username")
		if name := toString(v); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// luceneSpecial are the characters with meaning in Lucene query syntax.
const luceneSpecial = `+-&|!(){}[]^"~*?:\/`

// escapeLucene backslash-escapes query syntax so usernames like "a-b" match
// literally.
func escapeLucene(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(luceneSpecial, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
