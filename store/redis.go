package store

import (
	"context"
	"encoding/json"
	"path"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store implements the HistoryStore interface using Redis as the backend.
// The keys namespace is organized as follows:
// - `/<prefix>/history/entries/<sessionID>` list of JSON encoded entries
// - `/<prefix>/history/sessions` set of session IDs with history

type redisStore struct {
	client     *redis.Client
	prefix     string
	maxEntries int
}

// NewRedisStore returns a HistoryStore backed by Redis.
func NewRedisStore(client *redis.Client, prefix string) HistoryStore {
	return &redisStore{
		client:     client,
		prefix:     prefix,
		maxEntries: DefaultMaxEntries,
	}
}

// NewRedisStoreFromURL connects to Redis at the URL, for example redis://localhost:6379/0.
func NewRedisStoreFromURL(ctx context.Context, url, prefix string) (HistoryStore, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}
	return NewRedisStore(client, prefix), nil
}

func (m *redisStore) getEntriesKey(sessionID string) string {
	return path.Join(m.prefix, "history", "entries", sessionID)
}

func (m *redisStore) getSessionsKey() string {
	return path.Join(m.prefix, "history", "sessions")
}

func (m *redisStore) Add(ctx context.Context, sessionID string, entry *Entry) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	data, err := json.Marshal(prepare(sessionID, entry))
	if err != nil {
		return errors.Wrap(err, "failed to marshal entry")
	}

	key := m.getEntriesKey(sessionID)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-m.maxEntries), -1)
	pipe.SAdd(ctx, m.getSessionsKey(), sessionID)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to store entry in Redis")
	}
	return nil
}

func (m *redisStore) List(ctx context.Context, sessionID string) ([]*Entry, error) {
	data, err := m.client.LRange(ctx, m.getEntriesKey(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(err, "failed to get entries from Redis")
	}

	list := make([]*Entry, 0, len(data))
	for _, item := range data {
		e := new(Entry)
		if err := json.Unmarshal([]byte(item), e); err != nil {
			logger.ContextKV(ctx, xlog.ERROR,
				"reason", "unmarshal entry",
				"session", sessionID,
				"err", err.Error())
			continue
		}
		list = append(list, e)
	}
	return list, nil
}

func (m *redisStore) Reset(ctx context.Context, sessionID string) error {
	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.getEntriesKey(sessionID))
	pipe.SRem(ctx, m.getSessionsKey(), sessionID)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to reset history in Redis")
	}
	return nil
}

func (m *redisStore) ListSessions(ctx context.Context) ([]string, error) {
	ids, err := m.client.SMembers(ctx, m.getSessionsKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list sessions from Redis")
	}
	sort.Strings(ids)
	return ids, nil
}
