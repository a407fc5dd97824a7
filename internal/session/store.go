package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// #region keys

// DefaultTTLMinutes is the session lifetime when the caller does not pick one.
const DefaultTTLMinutes = 45

const (
	keyActive     = "sdd.session.active"
	keyChange     = "sdd.session.change"
	keyUpdatedAt  = "sdd.session.updatedAt"
	keyExpiresAt  = "sdd.session.expiresAt"
	keyTTLMinutes = "sdd.session.ttlMinutes"
)

// #endregion keys

// #region errors

// Mutation precondition failures. These are operator misuse, thrown to the
// calling layer rather than rendered as policy decisions.
var (
	ErrChangeNotFound  = errors.New("change not found under openspec/changes")
	ErrChangeArchived  = errors.New("change is archived and cannot back an active session")
	ErrNoActiveSession = errors.New("no active session to refresh")
)

// #endregion errors

// #region state

// State is the session record reconstructed from the KV store. Valid and
// RemainingSeconds are computed from now at read time, never cached.
type State struct {
	RepoRoot         string `json:"repoRoot"`
	Active           bool   `json:"active"`
	ChangeID         string `json:"changeId,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
	ExpiresAt        string `json:"expiresAt,omitempty"`
	TTLMinutes       int    `json:"ttlMinutes,omitempty"`
	Valid            bool   `json:"valid"`
	RemainingSeconds *int   `json:"remainingSeconds,omitempty"`
}

// #endregion state

// #region store

// Store is the TTL-bound SDD session record for one repository. One record
// per repo; opened, refreshed, and closed by explicit operator action.
type Store struct {
	kv       KV
	repoRoot string
}

// NewStore wires a session store to a KV port scoped to repoRoot.
func NewStore(kv KV, repoRoot string) *Store {
	return &Store{kv: kv, repoRoot: repoRoot}
}

// Open starts a session for an existing, non-archived change. ttlMinutes
// clamps to the default when not positive.
func (s *Store) Open(now time.Time, changeID string, ttlMinutes int) (State, error) {
	changeID = strings.TrimSpace(changeID)
	if changeID == "" || !ChangeExists(s.repoRoot, changeID) {
		return State{}, fmt.Errorf("open session for %q: %w", changeID, ErrChangeNotFound)
	}
	if ChangeArchived(s.repoRoot, changeID) {
		return State{}, fmt.Errorf("open session for %q: %w", changeID, ErrChangeArchived)
	}

	ttl := positiveMinutes(ttlMinutes)
	if err := s.persist(now, changeID, ttl, true); err != nil {
		return State{}, err
	}
	return s.Read(now)
}

// Refresh extends the current session without changing the change id,
// defaulting the TTL to the session's previous value.
func (s *Store) Refresh(now time.Time, ttlMinutes int) (State, error) {
	current, err := s.Read(now)
	if err != nil {
		return State{}, err
	}
	if !current.Active || current.ChangeID == "" {
		return State{}, ErrNoActiveSession
	}

	ttl := ttlMinutes
	if ttl <= 0 {
		ttl = current.TTLMinutes
	}
	ttl = positiveMinutes(ttl)
	if err := s.persist(now, current.ChangeID, ttl, false); err != nil {
		return State{}, err
	}
	return s.Read(now)
}

// Close clears all session keys regardless of prior state. Idempotent.
func (s *Store) Close(now time.Time) (State, error) {
	for _, key := range []string{keyActive, keyChange, keyUpdatedAt, keyExpiresAt, keyTTLMinutes} {
		if err := s.kv.Clear(key); err != nil {
			return State{}, err
		}
	}
	return s.Read(now)
}

// Read reconstructs the session state, computing validity against now.
func (s *Store) Read(now time.Time) (State, error) {
	state := State{RepoRoot: s.repoRoot}

	active, err := s.kv.Get(keyActive)
	if err != nil {
		return State{}, err
	}
	state.Active = active == "true"

	if state.ChangeID, err = s.kv.Get(keyChange); err != nil {
		return State{}, err
	}
	if state.UpdatedAt, err = s.kv.Get(keyUpdatedAt); err != nil {
		return State{}, err
	}
	if state.ExpiresAt, err = s.kv.Get(keyExpiresAt); err != nil {
		return State{}, err
	}
	ttlRaw, err := s.kv.Get(keyTTLMinutes)
	if err != nil {
		return State{}, err
	}
	if ttlRaw != "" {
		state.TTLMinutes, _ = strconv.Atoi(ttlRaw)
	}

	unexpired := false
	if state.ExpiresAt != "" {
		if expiresAt, parseErr := time.Parse(time.RFC3339, state.ExpiresAt); parseErr == nil {
			remaining := int(expiresAt.Sub(now).Seconds())
			if remaining > 0 {
				unexpired = true
				state.RemainingSeconds = &remaining
			} else {
				zero := 0
				state.RemainingSeconds = &zero
			}
		}
	}
	state.Valid = state.Active && state.ChangeID != "" && unexpired
	return state, nil
}

func (s *Store) persist(now time.Time, changeID string, ttlMinutes int, withChange bool) error {
	if withChange {
		if err := s.kv.Set(keyActive, "true"); err != nil {
			return err
		}
		if err := s.kv.Set(keyChange, changeID); err != nil {
			return err
		}
	}
	if err := s.kv.Set(keyUpdatedAt, formatTime(now)); err != nil {
		return err
	}
	if err := s.kv.Set(keyExpiresAt, formatTime(now.Add(time.Duration(ttlMinutes)*time.Minute))); err != nil {
		return err
	}
	return s.kv.Set(keyTTLMinutes, strconv.Itoa(ttlMinutes))
}

func positiveMinutes(minutes int) int {
	if minutes > 0 {
		return minutes
	}
	return DefaultTTLMinutes
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// #endregion store
