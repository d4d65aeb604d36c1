package foreground

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	redis "github.com/redis/go-redis/v9"
	"github.com/viant/authbridge"
)

// DefaultRedisPrefix is the key prefix of RedisStore.
const DefaultRedisPrefix = "authbridge:"

// RedisStore keeps requests in Redis so the popup can restore its queue after
// a restart. Requests are listed in arrival order; a replaced request keeps its
// position. Terminal requests expire after the retention period.
type RedisStore struct {
	rdb       *redis.Client
	prefix    string
	retention time.Duration
}

func (s *RedisStore) keyRequest(authID string) string { return s.prefix + "request:" + authID }
func (s *RedisStore) keyOrder() string                { return s.prefix + "requests" }
func (s *RedisStore) keySequence() string             { return s.prefix + "sequence" }

func (s *RedisStore) Put(ctx context.Context, request *authbridge.Request) error {
	data, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal auth request %s: %w", request.AuthID, err)
	}
	var ttl time.Duration
	if request.Status.IsTerminal() {
		ttl = s.retention
	}
	sequence, err := s.rdb.Incr(ctx, s.keySequence()).Result()
	if err != nil {
		return fmt.Errorf("failed to sequence auth request %s: %w", request.AuthID, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keyRequest(request.AuthID), data, ttl)
		pipe.ZAddNX(ctx, s.keyOrder(), redis.Z{Score: float64(sequence), Member: request.AuthID})
		return nil
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, authID string) (*authbridge.Request, error) {
	raw, err := s.rdb.Get(ctx, s.keyRequest(authID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", authbridge.ErrNotFound, authID)
		}
		return nil, err
	}
	return s.decode(authID, raw)
}

func (s *RedisStore) List(ctx context.Context) ([]*authbridge.Request, error) {
	ids, err := s.rdb.ZRange(ctx, s.keyOrder(), 0, -1).Result()
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, authID := range ids {
		keys[i] = s.keyRequest(authID)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	var ret []*authbridge.Request
	var expired []interface{}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		request, err := s.decode(ids[i], []byte(raw))
		if err != nil {
			return nil, err
		}
		ret = append(ret, request)
	}
	if len(expired) > 0 {
		if err = s.rdb.ZRem(ctx, s.keyOrder(), expired...).Err(); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (s *RedisStore) Delete(ctx context.Context, authID string) error {
	var deleted *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, s.keyRequest(authID))
		pipe.ZRem(ctx, s.keyOrder(), authID)
		return nil
	})
	if err != nil {
		return err
	}
	if deleted.Val() == 0 {
		return fmt.Errorf("%w: %s", authbridge.ErrNotFound, authID)
	}
	return nil
}

func (s *RedisStore) decode(authID string, raw []byte) (*authbridge.Request, error) {
	ret := &authbridge.Request{}
	if err := json.Unmarshal(raw, ret); err != nil {
		return nil, fmt.Errorf("failed to decode auth request %s: %w", authID, err)
	}
	return ret, nil
}

// NewRedisStore creates a Redis backed store; retention bounds how long terminal requests are kept.
func NewRedisStore(rdb *redis.Client, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, retention: retention}
}
