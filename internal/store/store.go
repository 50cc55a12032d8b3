// Package store caches GROBID output keyed by the SHA-256 of the PDF that
// produced it, so resubmitting the same file skips the remote round trip.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("store: entry not found")

// Entry is one cached TEI document.
type Entry struct {
	Hash     string    `bson:"hash"`
	DOI      string    `bson:"doi"`
	TEI      []byte    `bson:"tei"`
	StoredAt time.Time `bson:"stored_at"`
}

// Cache stores TEI documents by content hash.
type Cache interface {
	Get(ctx context.Context, hash string) (Entry, error)
	Put(ctx context.Context, e Entry) error
	Close(ctx context.Context) error
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) (Entry, error) { return Entry{}, ErrNotFound }
func (Nop) Put(context.Context, Entry) error           { return nil }
func (Nop) Close(context.Context) error                { return nil }
