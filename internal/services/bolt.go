package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// SessionTTL is how long an unlock session stays valid.
const SessionTTL = 7 * 24 * time.Hour

var sessionsBucket = []byte("sessions")

// BoltSessions implements unlock-session persistence on a BoltDB backend.
// Each session is a random token mapped to its expiry; expired records are
// swept opportunistically on lookup.
type BoltSessions struct {
	db *bolt.DB
}

type sessionRecord struct {
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewBoltSessions opens (or creates) the session database at the given path.
// The database file is created with 0600 permissions if it doesn't exist.
func NewBoltSessions(path string) (*BoltSessions, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &BoltSessions{db: db}, nil
}

// Close releases the underlying database file.
func (b *BoltSessions) Close() error {
	return b.db.Close()
}

// Create mints a new session token valid for SessionTTL and stores it.
func (b *BoltSessions) Create() (string, error) {
	token := uuid.New().String()
	now := time.Now()

	rec, err := json.Marshal(sessionRecord{
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	err = b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(sessionsBucket)
		if bk == nil {
			return fmt.Errorf("sessions bucket missing")
		}
		return bk.Put([]byte(token), rec)
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Valid reports whether the token names a live session. Expired tokens are
// deleted as a side effect.
func (b *BoltSessions) Valid(token string) bool {
	if token == "" {
		return false
	}

	var ok, expired bool
	_ = b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(sessionsBucket)
		if bk == nil {
			return nil
		}
		v := bk.Get([]byte(token))
		if v == nil {
			return nil
		}
		var rec sessionRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return nil
		}
		if time.Now().After(rec.ExpiresAt) {
			expired = true
			return nil
		}
		ok = true
		return nil
	})

	if expired {
		_ = b.db.Update(func(tx *bolt.Tx) error {
			bk := tx.Bucket(sessionsBucket)
			if bk == nil {
				return nil
			}
			return bk.Delete([]byte(token))
		})
	}
	return ok
}
