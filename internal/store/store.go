// Package store holds the authoritative in-memory mapping of users and their
// links and writes every committed change through to a durable snapshot.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/darkodi/link-shortener/internal/clock"
	"github.com/darkodi/link-shortener/internal/logger"
	"github.com/darkodi/link-shortener/internal/model"
)

var (
	ErrUserExists     = errors.New("user already exists")
	ErrUnknownOwner   = errors.New("owner does not exist")
	ErrTokenCollision = errors.New("token already in use")
	ErrLinkNotFound   = errors.New("link not found")
)

// Persister is the durable side of the store
type Persister interface {
	Load(ctx context.Context) (model.Snapshot, error)
	Save(ctx context.Context, snap model.Snapshot) error
}

// UpdateFunc receives the owner and current record and returns the replacement.
// Returning an error leaves the record untouched.
type UpdateFunc func(ownerID string, current model.Link) (model.Link, error)

// Removed is a record taken out by RemoveWhere
type Removed struct {
	OwnerID string
	Link    model.Link
}

type userEntry struct {
	user  model.User
	links map[string]model.Link
}

// Store is safe for concurrent use. A single RWMutex serializes writers;
// readers only ever see whole records.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*userEntry
	byName  map[string]string // name -> id
	owners  map[string]string // token -> owner id
	version uint64

	persistMu  sync.Mutex
	saved      uint64
	loadFailed bool // saving would overwrite data that could not be read

	persister Persister
	clock     clock.Clock
	log       *logger.Logger
}

// New creates an empty store. persister may be nil for a memory-only store.
func New(persister Persister, clk clock.Clock, log *logger.Logger) *Store {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		byID:      make(map[string]*userEntry),
		byName:    make(map[string]string),
		owners:    make(map[string]string),
		persister: persister,
		clock:     clk,
		log:       log,
	}
}

// Load replaces the in-memory state with the durable snapshot. On failure the
// store is left empty, the error is returned for the caller to log, and
// nothing is saved until a later Load succeeds.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}

	snap, err := s.persister.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[string]*userEntry)
	s.byName = make(map[string]string)
	s.owners = make(map[string]string)

	if err != nil {
		s.version = 0
		s.persistMu.Lock()
		s.saved = 0
		s.loadFailed = true
		s.persistMu.Unlock()
		return err
	}

	for name, rec := range snap.Users {
		entry := &userEntry{
			user:  model.User{ID: rec.UUID, Name: name, CreatedAt: rec.CreatedAt},
			links: make(map[string]model.Link, len(rec.Links)),
		}
		for tok, l := range rec.Links {
			if other, taken := s.owners[tok]; taken {
				s.log.Warn("duplicate token in snapshot, keeping first owner",
					"token", tok, "owner_id", other, "dropped_owner_id", rec.UUID)
				continue
			}
			l.Token = tok
			entry.links[tok] = l.Clone()
			s.owners[tok] = rec.UUID
		}
		s.byID[rec.UUID] = entry
		s.byName[name] = rec.UUID
	}
	s.version = snap.Version
	s.persistMu.Lock()
	s.saved = snap.Version
	s.loadFailed = false
	s.persistMu.Unlock()

	s.log.Info("store loaded", "users", len(s.byID), "links", len(s.owners))
	return nil
}

// ============ USERS ============

// FindUserByName looks a user up by their unique name
func (s *Store) FindUserByName(name string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[name]
	if !ok {
		return model.User{}, false
	}
	return s.byID[id].user, true
}

// FindUserByID looks a user up by their opaque identifier
func (s *Store) FindUserByID(id string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.byID[id]
	if !ok {
		return model.User{}, false
	}
	return entry.user, true
}

// CreateUser registers a new user with a fresh UUID
func (s *Store) CreateUser(ctx context.Context, name string) (model.User, error) {
	s.mu.Lock()
	if _, exists := s.byName[name]; exists {
		s.mu.Unlock()
		return model.User{}, ErrUserExists
	}

	u := model.User{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: s.clock.Now().UTC(),
	}
	s.byID[u.ID] = &userEntry{user: u, links: make(map[string]model.Link)}
	s.byName[name] = u.ID
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return u, nil
}

// ============ LINKS ============

// FindLinkByToken searches every owner for token
func (s *Store) FindLinkByToken(token string) (string, model.Link, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ownerID, ok := s.owners[token]
	if !ok {
		return "", model.Link{}, false
	}
	return ownerID, s.byID[ownerID].links[token].Clone(), true
}

// InsertLink adds a new record, failing with ErrTokenCollision if the token is taken
func (s *Store) InsertLink(ctx context.Context, ownerID string, link model.Link) error {
	s.mu.Lock()
	entry, ok := s.byID[ownerID]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownOwner
	}
	if _, taken := s.owners[link.Token]; taken {
		s.mu.Unlock()
		return ErrTokenCollision
	}

	entry.links[link.Token] = link.Clone()
	s.owners[link.Token] = ownerID
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return nil
}

// PutLink inserts or overwrites a record. Overwriting a token owned by someone
// else is refused with ErrTokenCollision.
func (s *Store) PutLink(ctx context.Context, ownerID string, link model.Link) error {
	s.mu.Lock()
	entry, ok := s.byID[ownerID]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownOwner
	}
	if other, taken := s.owners[link.Token]; taken && other != ownerID {
		s.mu.Unlock()
		return ErrTokenCollision
	}

	entry.links[link.Token] = link.Clone()
	s.owners[link.Token] = ownerID
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return nil
}

// UpdateLink runs fn against the current record under the write lock and
// stores its result. The token of the replacement is forced to match.
func (s *Store) UpdateLink(ctx context.Context, token string, fn UpdateFunc) (model.Link, error) {
	s.mu.Lock()
	ownerID, ok := s.owners[token]
	if !ok {
		s.mu.Unlock()
		return model.Link{}, ErrLinkNotFound
	}
	entry := s.byID[ownerID]

	next, err := fn(ownerID, entry.links[token].Clone())
	if err != nil {
		s.mu.Unlock()
		return model.Link{}, err
	}

	next.Token = token
	entry.links[token] = next.Clone()
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return next, nil
}

// RemoveLink deletes token if ownerID owns it
func (s *Store) RemoveLink(ctx context.Context, ownerID, token string) bool {
	s.mu.Lock()
	if s.owners[token] != ownerID || ownerID == "" {
		s.mu.Unlock()
		return false
	}

	delete(s.byID[ownerID].links, token)
	delete(s.owners, token)
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return true
}

// LinksOf returns the owner's links ordered by destination, then token
func (s *Store) LinksOf(ownerID string) []model.Link {
	s.mu.RLock()
	entry, ok := s.byID[ownerID]
	if !ok {
		s.mu.RUnlock()
		return nil
	}
	links := make([]model.Link, 0, len(entry.links))
	for _, l := range entry.links {
		links = append(links, l.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(links, func(i, j int) bool {
		if links[i].Destination != links[j].Destination {
			return links[i].Destination < links[j].Destination
		}
		return links[i].Token < links[j].Token
	})
	return links
}

// RemoveWhere deletes every record matching pred in one batch and one persist.
// Candidates are collected first, then removed, so the maps are never
// mutated while being ranged over.
func (s *Store) RemoveWhere(ctx context.Context, pred func(ownerID string, link model.Link) bool) []Removed {
	s.mu.Lock()
	var removed []Removed
	for ownerID, entry := range s.byID {
		for _, l := range entry.links {
			if pred(ownerID, l) {
				removed = append(removed, Removed{OwnerID: ownerID, Link: l.Clone()})
			}
		}
	}

	if len(removed) == 0 {
		s.mu.Unlock()
		return nil
	}

	for _, r := range removed {
		delete(s.byID[r.OwnerID].links, r.Link.Token)
		delete(s.owners, r.Link.Token)
	}
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return removed
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// ============ PERSISTENCE ============

func (s *Store) commitLocked() model.Snapshot {
	s.version++
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() model.Snapshot {
	snap := model.Snapshot{
		Version: s.version,
		Users:   make(map[string]model.UserRecord, len(s.byID)),
	}
	for _, entry := range s.byID {
		links := make(map[string]model.Link, len(entry.links))
		for tok, l := range entry.links {
			links[tok] = l.Clone()
		}
		snap.Users[entry.user.Name] = model.UserRecord{
			UUID:      entry.user.ID,
			CreatedAt: entry.user.CreatedAt,
			Links:     links,
		}
	}
	return snap
}

// persist writes snap unless a newer snapshot already reached the persister
// or the last Load failed. Failures are logged; the in-memory change stays applied.
func (s *Store) persist(ctx context.Context, snap model.Snapshot) {
	if s.persister == nil {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if s.loadFailed {
		s.log.Warn("snapshot not saved: stored data could not be loaded",
			"version", snap.Version)
		return
	}
	if snap.Version <= s.saved {
		return
	}

	// a cancelled request must not skip the write-through
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.persister.Save(ctx, snap); err != nil {
		s.log.Error("failed to persist snapshot",
			"version", snap.Version,
			"error", err.Error())
		return
	}
	s.saved = snap.Version
}
