package session

import (
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// Vault is the durable client-side token store (the cookie/localStorage
// analog). One token under a fixed key, with an absolute expiry.
type Vault struct {
	db *bbolt.DB
}

var (
	bucketSession = []byte("session")
	keyToken      = []byte("token")
	keyExpiresAt  = []byte("expires_at")
)

func OpenVault(path string) (*Vault, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open session vault")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSession)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init session vault")
	}
	return &Vault{db: db}, nil
}

// Put stores the token with an absolute expiry timestamp.
func (v *Vault) Put(token string, expiresAt time.Time) error {
	return v.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Put(keyToken, []byte(token)); err != nil {
			return err
		}
		return b.Put(keyExpiresAt, []byte(expiresAt.UTC().Format(time.RFC3339)))
	})
}

// Token returns the persisted token, or "" when absent or expired. An
// expired token is purged on read.
func (v *Vault) Token() string {
	var token string
	var expired bool
	_ = v.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSession)
		raw := b.Get(keyToken)
		if len(raw) == 0 {
			return nil
		}
		if rawExp := b.Get(keyExpiresAt); len(rawExp) > 0 {
			exp, err := time.Parse(time.RFC3339, string(rawExp))
			if err == nil && time.Now().After(exp) {
				expired = true
				return nil
			}
		}
		token = string(raw)
		return nil
	})
	if expired {
		_ = v.Clear()
	}
	return token
}

// ExpiresAt returns the stored expiry, zero when none.
func (v *Vault) ExpiresAt() time.Time {
	var exp time.Time
	_ = v.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if raw := b.Get(keyExpiresAt); len(raw) > 0 {
			if t, err := time.Parse(time.RFC3339, string(raw)); err == nil {
				exp = t
			}
		}
		return nil
	})
	return exp
}

// Clear removes the token unconditionally.
func (v *Vault) Clear() error {
	return v.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Delete(keyToken); err != nil {
			return err
		}
		return b.Delete(keyExpiresAt)
	})
}

func (v *Vault) Close() error {
	return v.db.Close()
}
