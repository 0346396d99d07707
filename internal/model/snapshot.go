package model

import "time"

// UserRecord is one user's entry in the durable snapshot
type UserRecord struct {
	UUID      string          `json:"uuid"`
	CreatedAt time.Time       `json:"created_at"`
	Links     map[string]Link `json:"links"` // keyed by token
}

// Snapshot is the full user/link state, keyed by user name
type Snapshot struct {
	Version uint64                `json:"version"`
	Users   map[string]UserRecord `json:"users"`
}

// NewSnapshot returns an empty snapshot
func NewSnapshot() Snapshot {
	return Snapshot{Users: make(map[string]UserRecord)}
}

// LinkCount returns the number of links across all users
func (s Snapshot) LinkCount() int {
	n := 0
	for _, u := range s.Users {
		n += len(u.Links)
	}
	return n
}
