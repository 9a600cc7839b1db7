package uploader

import (
	"github.com/rs/zerolog/log"
	"github.com/syndtr/goleveldb/leveldb"
)

// FingerprintStore persists tus fingerprint -> upload URL mappings between
// runs so interrupted uploads resume instead of restarting. It implements
// the upload library's Store interface.
type FingerprintStore struct {
	db *leveldb.DB
}

func NewFingerprintStore(path string) (*FingerprintStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &FingerprintStore{db: db}, nil
}

func (s *FingerprintStore) Get(fingerprint string) (string, bool) {
	url, err := s.db.Get([]byte(fingerprint), nil)
	if err != nil {
		return "", false
	}
	return string(url), true
}

func (s *FingerprintStore) Set(fingerprint, url string) {
	if err := s.db.Put([]byte(fingerprint), []byte(url), nil); err != nil {
		log.Warn().Err(err).Msg("Failed to persist upload fingerprint")
	}
}

func (s *FingerprintStore) Delete(fingerprint string) {
	if err := s.db.Delete([]byte(fingerprint), nil); err != nil {
		log.Warn().Err(err).Msg("Failed to delete upload fingerprint")
	}
}

func (s *FingerprintStore) Close() {
	s.db.Close()
}
