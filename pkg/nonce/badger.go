package nonce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var keyPrefix = []byte("nonce/")

// BadgerConfig configures a BadgerStore
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the database in memory only
	InMemory bool

	// CachingTimeSpan is the TTL given to each nonce. Badger expires
	// entries with one-second granularity.
	CachingTimeSpan time.Duration

	Logger *slog.Logger
}

// BadgerStore is a persistent nonce cache on Badger v4. Each nonce is
// written with a TTL; Badger hides expired entries from reads and drops
// them during compaction.
type BadgerStore struct {
	db              *badger.DB
	cachingTimeSpan time.Duration
	logger          *slog.Logger
}

// OpenBadger opens or creates a Badger nonce store
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if err := ValidateCachingTimeSpan(cfg.CachingTimeSpan); err != nil {
		return nil, err
	}
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger nonce store path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "badger-nonce-store"))

	opts := badger.DefaultOptions(cfg.Path).
		WithLogger(badgerLogger{logger: logger})
	if cfg.InMemory {
		opts = badger.DefaultOptions("").
			WithInMemory(true).
			WithLogger(badgerLogger{logger: logger})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger nonce store: %w", err)
	}

	return &BadgerStore{
		db:              db,
		cachingTimeSpan: cfg.CachingTimeSpan,
		logger:          logger,
	}, nil
}

func nonceKey(nonce []byte) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(nonce))
	key = append(key, keyPrefix...)
	return append(key, nonce...)
}

// TryAddNonce records nonce with the store's TTL. It returns false if the
// nonce is already present.
func (s *BadgerStore) TryAddNonce(ctx context.Context, nonce []byte) (bool, error) {
	if len(nonce) == 0 {
		return false, ErrEmptyNonce
	}
	key := nonceKey(nonce)

	var added bool
	err := s.addOnce(key, &added)
	if errors.Is(err, badger.ErrConflict) {
		// a concurrent writer touched the same key; the retry sees its result
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		err = s.addOnce(key, &added)
	}
	if err != nil {
		return false, fmt.Errorf("failed to record nonce: %w", err)
	}
	return added, nil
}

func (s *BadgerStore) addOnce(key []byte, added *bool) error {
	*added = false
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.SetEntry(badger.NewEntry(key, nil).WithTTL(s.entryTTL())); err != nil {
			return err
		}
		*added = true
		return nil
	})
}

// entryTTL pads the caching time span by one second. Badger truncates
// expiry to whole Unix seconds, and a nonce must never be forgotten early.
func (s *BadgerStore) entryTTL() time.Duration {
	if s.cachingTimeSpan > Infinite-time.Second {
		return s.cachingTimeSpan
	}
	return s.cachingTimeSpan + time.Second
}

// CheckNonce reports whether nonce is present and unexpired
func (s *BadgerStore) CheckNonce(ctx context.Context, nonce []byte) (bool, error) {
	if len(nonce) == 0 {
		return false, ErrEmptyNonce
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(nonceKey(nonce))
		switch {
		case err == nil:
			found = true
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("failed to look up nonce: %w", err)
	}
	return found, nil
}

// CachingTimeSpan returns the TTL given to each nonce
func (s *BadgerStore) CachingTimeSpan() time.Duration {
	return s.cachingTimeSpan
}

// CacheSize returns 0: the store is bounded by disk, not by an entry quota
func (s *BadgerStore) CacheSize() int {
	return 0
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Cache = (*BadgerStore)(nil)

// badgerLogger routes Badger's logging into slog. Badger's info output is
// chatty so it is logged at debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
