// Package store persists the bot state document to one of several interchangeable backends.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
)

var (
	// ErrNotFound is returned by Load when no document has been saved yet.
	ErrNotFound = errors.New("state document not found")
	// ErrMalformed is returned by Load when a stored document cannot be decoded.
	ErrMalformed = errors.New("state document is malformed")
)

// Document is the persisted form of the bot state.
type Document struct {
	FirstWinners       map[string]string            `json:"first_akeome_winners"`
	History            map[string]map[string]string `json:"akeome_history"`
	LastChannelID      *string                      `json:"last_akeome_channel_id"`
	StartDate          *string                      `json:"start_date"`
	ThreadlineSettings map[string][]string          `json:"threadline_settings"`
}

// NewDocument returns an empty document with all maps allocated.
func NewDocument() *Document {
	d := &Document{}
	d.normalize()
	return d
}

func (d *Document) normalize() {
	if d.FirstWinners == nil {
		d.FirstWinners = map[string]string{}
	}
	if d.History == nil {
		d.History = map[string]map[string]string{}
	}
	if d.ThreadlineSettings == nil {
		d.ThreadlineSettings = map[string][]string{}
	}
}

// Store loads and saves the state document.
type Store interface {
	Name() string
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	Close() error
}

// Encode serializes a document. Nil maps are written as empty objects.
func Encode(doc *Document) ([]byte, error) {
	if doc == nil {
		doc = NewDocument()
	}
	doc.normalize()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state document: %w", err)
	}
	return data, nil
}

// Decode parses a document. Blank input is reported as ErrNotFound.
func Decode(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNotFound
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	doc.normalize()
	return &doc, nil
}

// S3Options locates the document in an S3 compatible bucket.
type S3Options struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Path        string
	Key         string
	RedisURL    string
	PostgresDSN string
	S3          S3Options
}

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendS3       = "s3"
	BackendPostgres = "postgres"

	DefaultKey = "akeome:state"
)

// Open connects the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	key := opts.Key
	if key == "" {
		key = DefaultKey
	}

	switch opts.Backend {
	case "", BackendFile:
		path := opts.Path
		if path == "" {
			path = filepath.Join("data", "akeome.json")
		}
		return NewFileStore(path)
	case BackendSQLite:
		path := opts.Path
		if path == "" {
			path = filepath.Join("data", "akeome.db")
		}
		return NewSQLiteStore(ctx, path, key)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisURL, key)
	case BackendS3:
		return NewS3Store(ctx, opts.S3, key)
	case BackendPostgres:
		return NewPostgresStore(ctx, opts.PostgresDSN, key)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
