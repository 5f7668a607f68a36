package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// CypherBuilder builds parameterized Cypher. Values only ever travel as
// parameters; labels and keys are checked against identifierPattern.
type CypherBuilder struct {
	params  map[string]any
	counter int
}

// NewCypherBuilder creates a query builder
func NewCypherBuilder() *CypherBuilder {
	return &CypherBuilder{params: make(map[string]any)}
}

// AddParam adds a parameter and returns its placeholder
func (b *CypherBuilder) AddParam(value any) string {
	name := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[name] = value
	return "$" + name
}

// Params returns all parameters for the query
func (b *CypherBuilder) Params() map[string]any {
	return b.params
}

// BuildMergeNode creates a MERGE on (label {key: value}) that overwrites the
// given properties. It returns the merged key so callers can tell the write
// happened.
func (b *CypherBuilder) BuildMergeNode(label, key string, value any, properties map[string]any) (string, error) {
	if !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label: %s (must be alphanumeric + underscore)", label)
	}
	if !isValidIdentifier(key) {
		return "", fmt.Errorf("invalid unique key: %s (must be alphanumeric + underscore)", key)
	}

	keyParam := b.AddParam(value)
	set, err := b.setClause("n", properties)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("MERGE (n:%s {%s: %s})%s RETURN n.%s AS key", label, key, keyParam, set, key), nil
}

// BuildMergeEdge matches both endpoints by key and MERGEs one directed edge
// between them. When either endpoint is missing the query returns no rows.
func (b *CypherBuilder) BuildMergeEdge(
	fromLabel, fromKey string, fromValue any,
	toLabel, toKey string, toValue any,
	edgeType string,
	properties map[string]any,
) (string, error) {
	for _, ident := range []string{fromLabel, fromKey, toLabel, toKey, edgeType} {
		if !isValidIdentifier(ident) {
			return "", fmt.Errorf("invalid identifier: %s", ident)
		}
	}

	fromParam := b.AddParam(fromValue)
	toParam := b.AddParam(toValue)
	set, err := b.setClause("r", properties)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"MATCH (from:%s {%s: %s}) MATCH (to:%s {%s: %s}) MERGE (from)-[r:%s]->(to)%s RETURN type(r) AS type",
		fromLabel, fromKey, fromParam,
		toLabel, toKey, toParam,
		edgeType, set,
	), nil
}

// setClause renders " SET v.a = $pN, ..." with keys in sorted order so query
// text is stable for a given property set.
func (b *CypherBuilder) setClause(variable string, properties map[string]any) (string, error) {
	if len(properties) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(properties))
	for k := range properties {
		if !isValidIdentifier(k) {
			return "", fmt.Errorf("invalid property key: %s (must be alphanumeric + underscore)", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	for _, k := range keys {
		clauses = append(clauses, fmt.Sprintf("%s.%s = %s", variable, k, b.AddParam(properties[k])))
	}
	return " SET " + strings.Join(clauses, ", "), nil
}

func isValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}
