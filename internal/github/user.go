package github

import (
	"context"
	"strings"
)

const userQuery = `query($login: String!) {
  user(login: $login) {
    databaseId
    login
  }
}`

// FetchUser resolves a login to its numeric identity. It returns nil, nil
// when the user does not exist or GitHub answered with any failure; an error
// means no response was received or ctx ended.
func (c *Client) FetchUser(ctx context.Context, username string) (*Account, error) {
	login := strings.TrimSpace(username)
	if login == "" {
		return nil, nil
	}

	if c.accounts != nil {
		if acct, ok := c.accounts.Get(login); ok {
			return acct, nil
		}
	}

	var raw struct {
		User *struct {
			DatabaseID int64  `json:"databaseId"`
			Login      string `json:"login"`
		} `json:"user"`
	}
	outcome, err := c.graphql(ctx, userQuery, map[string]interface{}{"login": login}, &raw)
	if err != nil {
		return nil, err
	}
	if outcome != outcomeOK || raw.User == nil || raw.User.DatabaseID == 0 {
		c.logger.Info("github user not resolved", "username", login)
		return nil, nil
	}
	acct := &Account{ID: raw.User.DatabaseID, Login: raw.User.Login}

	if c.accounts != nil {
		if err := c.accounts.Put(acct); err != nil {
			c.logger.Warn("failed to cache account", "username", login, "error", err)
		}
	}
	return acct, nil
}
