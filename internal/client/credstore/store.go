// Package credstore persists the serialized session across restarts.
//
// The session is kept as three independent entries (access credential,
// refresh credential and the JSON principal) that are always written and
// cleared together. A partial or unparsable set is treated as corrupt: it is
// cleared on load and the caller starts unauthenticated.
package credstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/famwealth/internal/client/models"
	"github.com/dmitrijs2005/famwealth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/famwealth/internal/common"
	"github.com/dmitrijs2005/famwealth/internal/logging"
)

// Entry keys of the persisted session.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

var keys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// Store is the credential store over a key/value repository.
type Store struct {
	repo metadata.Repository
	log  logging.Logger
}

func New(repo metadata.Repository, log logging.Logger) *Store {
	return &Store{repo: repo, log: log}
}

// Load returns the persisted session, or nil when nothing usable is stored.
// Corrupt entries are cleared and never reported as an error; only backend
// failures are returned.
func (s *Store) Load(ctx context.Context) (*models.Session, error) {
	entries, err := s.repo.GetMany(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if len(entries) == 0 {
		return nil, nil
	}

	sess, reason := decode(entries)
	if sess != nil {
		return sess, nil
	}

	s.log.Warn(ctx, "discarding persisted session", "error", common.ErrCorruptPersistedState, "reason", reason)
	if err := s.Clear(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

// Save writes all three entries in one atomic operation.
func (s *Store) Save(ctx context.Context, sess *models.Session) error {
	if !sess.Complete() {
		return fmt.Errorf("save session: refusing to persist a partial session")
	}

	user, err := json.Marshal(sess.Principal)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	err = s.repo.SetMany(ctx, map[string][]byte{
		KeyAccessToken:  []byte(sess.AccessToken),
		KeyRefreshToken: []byte(sess.RefreshToken),
		KeyUser:         user,
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes all three entries.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.DeleteMany(ctx, keys...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func decode(entries map[string][]byte) (*models.Session, string) {
	for _, k := range keys {
		if len(entries[k]) == 0 {
			return nil, "missing " + k
		}
	}

	var p models.Principal
	if err := json.Unmarshal(entries[KeyUser], &p); err != nil {
		return nil, "unparsable user: " + err.Error()
	}
	if !p.Valid() {
		return nil, "incomplete user"
	}

	return &models.Session{
		AccessToken:  string(entries[KeyAccessToken]),
		RefreshToken: string(entries[KeyRefreshToken]),
		Principal:    &p,
	}, ""
}
