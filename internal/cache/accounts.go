package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rohankatakam/torvalds/internal/github"
)

const accountsBucket = "accounts"

// DefaultAccountTTL bounds how long a login-to-id mapping is trusted.
const DefaultAccountTTL = 24 * time.Hour

type accountEntry struct {
	ID       int64     `json:"id"`
	Login    string    `json:"login"`
	CachedAt time.Time `json:"cached_at"`
}

// AccountStore persists resolved GitHub accounts in a bbolt file so
// repeated lookups of the same login skip the API. Keys are lowercase.
type AccountStore struct {
	db     *bolt.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// OpenAccountStore opens or creates the database at path.
func OpenAccountStore(path string, ttl time.Duration) (*AccountStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create account cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open account cache %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(accountsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create account bucket: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultAccountTTL
	}
	return &AccountStore{
		db:     db,
		ttl:    ttl,
		logger: slog.Default().With("component", "account_cache"),
		now:    time.Now,
	}, nil
}

// Get returns a fresh entry for login. Expired or unreadable entries miss.
func (s *AccountStore) Get(login string) (*github.Account, bool) {
	key := strings.ToLower(strings.TrimSpace(login))
	var entry accountEntry
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(accountsBucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		s.logger.Warn("account cache read failed", "login", key, "error", err)
		return nil, false
	}
	if !found || s.now().Sub(entry.CachedAt) > s.ttl {
		return nil, false
	}
	return &github.Account{ID: entry.ID, Login: entry.Login}, true
}

// Put stores acct under its lowercase login.
func (s *AccountStore) Put(acct *github.Account) error {
	if acct == nil || acct.Login == "" {
		return nil
	}
	data, err := json.Marshal(accountEntry{ID: acct.ID, Login: acct.Login, CachedAt: s.now()})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(accountsBucket)).Put([]byte(strings.ToLower(acct.Login)), data)
	})
}

// Prune deletes expired entries and returns how many were removed.
func (s *AccountStore) Prune() (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(accountsBucket))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var entry accountEntry
			if err := json.Unmarshal(v, &entry); err != nil || s.now().Sub(entry.CachedAt) > s.ttl {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (s *AccountStore) Close() error {
	return s.db.Close()
}
