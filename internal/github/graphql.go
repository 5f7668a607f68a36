package github

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// graphql posts one query and decodes its data member into out. A response
// carrying GraphQL errors is a failed call even when partial data is present.
func (c *Client) graphql(ctx context.Context, query string, vars map[string]interface{}, out interface{}) (callOutcome, error) {
	if err := c.wait(ctx); err != nil {
		return outcomeFailed, err
	}

	req, err := c.client.NewRequest(http.MethodPost, c.graphqlURL, &graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return outcomeFailed, err
	}

	var body graphQLResponse
	resp, err := c.client.Do(ctx, req, &body)
	outcome, err := c.classify(ctx, "graphql", resp, err)
	if err != nil || outcome != outcomeOK {
		return outcome, err
	}

	if len(body.Errors) > 0 {
		msgs := make([]string, 0, len(body.Errors))
		for _, e := range body.Errors {
			msgs = append(msgs, e.Message)
		}
		c.logger.Debug("graphql errors", "errors", strings.Join(msgs, "; "))
		return outcomeFailed, nil
	}

	if out == nil || len(body.Data) == 0 || string(body.Data) == "null" {
		return outcomeOK, nil
	}
	if err := json.Unmarshal(body.Data, out); err != nil {
		c.logger.Debug("graphql decode failed", "error", err)
		return outcomeFailed, nil
	}
	return outcomeOK, nil
}

// repositoryNode is the repository shape shared by several queries.
type repositoryNode struct {
	DatabaseID      int64  `json:"databaseId"`
	NameWithOwner   string `json:"nameWithOwner"`
	StargazerCount  int    `json:"stargazerCount"`
	PrimaryLanguage *struct {
		Name string `json:"name"`
	} `json:"primaryLanguage"`
}

func (n *repositoryNode) language() string {
	if n.PrimaryLanguage == nil {
		return ""
	}
	return n.PrimaryLanguage.Name
}
