// internal/persist/store.go
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/carteserver/carte/internal/game"
)

// DefaultTTL is how long a suspended game stays resumable.
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "carte:saved:"

// SavedGame wraps a suspended game's serialized state with the rule version
// it was saved under and the save timestamp.
type SavedGame struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	State   json.RawMessage `json:"state"`
}

// Valid reports whether the entry may still be resumed: younger than the
// TTL and saved under the current rule version for its game type.
func (s *SavedGame) Valid(currentVersion int, ttl time.Duration, now time.Time) bool {
	if s.SavedAt.Add(ttl).Before(now) {
		return false
	}
	return s.Version == currentVersion
}

// Store keeps suspended games in redis, one JSON value per (type, id) key.
// Every operation is a single round trip; no transaction is held across
// suspension points.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Logger
}

func NewStore(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl, log: logger}
}

// Connect initializes a redis client from the environment:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func Connect() (*redis.Client, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func redisKey(k game.Key) string {
	return keyPrefix + k.Type + ":" + k.ID
}

// parseKey reverses redisKey.
func parseKey(s string) (game.Key, bool) {
	rest, ok := strings.CutPrefix(s, keyPrefix)
	if !ok {
		return game.Key{}, false
	}
	typ, id, ok := strings.Cut(rest, ":")
	if !ok {
		return game.Key{}, false
	}
	return game.Key{Type: typ, ID: id}, true
}

// Save stores a suspended game under its key. The redis expiry mirrors the
// validity TTL so abandoned entries age out even without a sweep.
func (s *Store) Save(ctx context.Context, k game.Key, version int, state []byte) error {
	entry := SavedGame{
		Version: version,
		SavedAt: time.Now().UTC(),
		State:   state,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal saved game %s: %w", k, err)
	}
	if err := s.rdb.Set(ctx, redisKey(k), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save game %s: %w", k, err)
	}
	return nil
}

// Load fetches a saved entry. A missing key returns (nil, nil). A corrupt
// entry is discarded and also returns (nil, nil): persistence failures are
// never surfaced to clients.
func (s *Store) Load(ctx context.Context, k game.Key) (*SavedGame, error) {
	data, err := s.rdb.Get(ctx, redisKey(k)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", k, err)
	}

	var entry SavedGame
	if err := json.Unmarshal(data, &entry); err != nil {
		s.log.WithError(err).WithField("key", k.String()).Warn("discarding corrupt saved game")
		s.rdb.Del(ctx, redisKey(k))
		return nil, nil
	}
	return &entry, nil
}

func (s *Store) Delete(ctx context.Context, k game.Key) error {
	return s.rdb.Del(ctx, redisKey(k)).Err()
}

// TTL returns the validity window entries are checked against.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// List returns every currently valid saved entry. currentVersion maps a
// game type to its live rule version; unknown types are skipped.
func (s *Store) List(ctx context.Context, currentVersion func(gameType string) (int, bool)) (map[game.Key]*SavedGame, error) {
	out := make(map[game.Key]*SavedGame)
	now := time.Now().UTC()

	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		k, ok := parseKey(iter.Val())
		if !ok {
			continue
		}
		entry, err := s.Load(ctx, k)
		if err != nil || entry == nil {
			continue
		}
		version, ok := currentVersion(k.Type)
		if !ok || !entry.Valid(version, s.ttl, now) {
			continue
		}
		out[k] = entry
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan saved games: %w", err)
	}
	return out, nil
}

// Sweep deletes every entry that cannot be loaded or is no longer valid,
// bounding storage growth from abandoned games. Returns how many entries
// were removed.
func (s *Store) Sweep(ctx context.Context, currentVersion func(gameType string) (int, bool)) (int, error) {
	removed := 0
	now := time.Now().UTC()

	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw := iter.Val()
		k, ok := parseKey(raw)
		if !ok {
			s.rdb.Del(ctx, raw)
			removed++
			continue
		}

		data, err := s.rdb.Get(ctx, raw).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("sweep read %s: %w", raw, err)
		}

		var entry SavedGame
		if err := json.Unmarshal(data, &entry); err != nil {
			s.rdb.Del(ctx, raw)
			removed++
			continue
		}

		version, known := currentVersion(k.Type)
		if !known || !entry.Valid(version, s.ttl, now) {
			s.rdb.Del(ctx, raw)
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan saved games: %w", err)
	}
	return removed, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
