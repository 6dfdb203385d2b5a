// Package filestore keeps uploaded documents and conversion outputs in
// memory for a bounded time. Nothing here touches disk: files expire and
// vanish, retention is the TTL and nothing else.
package filestore

import (
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/convert"
	"github.com/gearmap/gearmap-go/internal/errors"
)

// Upload is a document received through the API, parsed once at upload time
// so its page and annotation counts are known before conversion.
type Upload struct {
	ID          string
	Name        string
	Data        []byte
	Pages       int
	Annotations int
	At          time.Time
}

// Output is a converted document waiting for download.
type Output struct {
	ID     string
	Name   string
	Data   []byte
	Result *convert.Result
	At     time.Time
}

// Store holds uploads and outputs in two TTL caches. IDs are random UUIDs,
// they cannot be derived from the file name or guessed sequentially.
type Store struct {
	uploads *cache.Cache
	outputs *cache.Cache
}

// New creates a store whose entries live for webserver.filettl minutes.
func New(settings *conf.Settings) *Store {
	ttl := time.Duration(settings.WebServer.FileTTL) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		uploads: cache.New(ttl, 2*ttl),
		outputs: cache.New(ttl, 2*ttl),
	}
}

// PutUpload stores an uploaded document and returns its generated id.
func (s *Store) PutUpload(u Upload) string {
	u.ID = uuid.NewString()
	u.At = time.Now()
	s.uploads.Set(u.ID, u, cache.DefaultExpiration)
	return u.ID
}

// GetUpload returns the upload with the given id.
func (s *Store) GetUpload(id string) (Upload, error) {
	v, ok := s.uploads.Get(id)
	if !ok {
		return Upload{}, errors.NotFoundError("upload", id)
	}
	return v.(Upload), nil
}

// DeleteUpload removes an upload. Deleting an absent id is not an error,
// the entry may simply have expired.
func (s *Store) DeleteUpload(id string) {
	s.uploads.Delete(id)
}

// PutOutput stores a converted document and returns its download id.
func (s *Store) PutOutput(o Output) string {
	o.ID = uuid.NewString()
	o.At = time.Now()
	s.outputs.Set(o.ID, o, cache.DefaultExpiration)
	return o.ID
}

// GetOutput returns the output with the given id.
func (s *Store) GetOutput(id string) (Output, error) {
	v, ok := s.outputs.Get(id)
	if !ok {
		return Output{}, errors.NotFoundError("converted file", id)
	}
	return v.(Output), nil
}

// Counts reports how many uploads and outputs are currently held, for the
// health endpoint.
func (s *Store) Counts() (uploads, outputs int) {
	return s.uploads.ItemCount(), s.outputs.ItemCount()
}
