package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLite_PutGet(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close(ctx)

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Put(ctx, Entry{Hash: "abc", DOI: "10.1/x", TEI: []byte("<TEI/>"), StoredAt: at}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, Entry{Hash: "abc", TEI: []byte("<TEI>v2</TEI>"), StoredAt: at}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	e, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(e.TEI) != "<TEI>v2</TEI>" || e.DOI != "" || !e.StoredAt.Equal(at) {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	if err := c.Put(context.Background(), Entry{Hash: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(context.Background(), "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMongo_PutGet(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	m, err := OpenMongo(ctx, uri, "article_service_test")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer m.Close(ctx)

	if err := m.Put(ctx, Entry{Hash: "h1", TEI: []byte("<TEI/>")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	e, err := m.Get(ctx, "h1")
	if err != nil || string(e.TEI) != "<TEI/>" {
		t.Errorf("unexpected get result %+v, %v", e, err)
	}
}
