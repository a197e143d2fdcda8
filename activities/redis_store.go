package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "signup"
	maxSeedAttempts  = 10
)

// RedisStore keeps each roster in a Redis sorted set scored by signup time, so
// rosters list in signup order. The catalog itself stays in process memory.
//
// Keys:
//
//	{prefix}:activity:{name}:participants  sorted set of emails
//	{prefix}:seeded                        set of activity names already seeded
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	defs   map[string]Definition
	now    func() time.Time
}

// NewRedisStore creates a RedisStore and seeds any activity that has not been
// seeded before. Rosters that already exist in Redis are left untouched.
func NewRedisStore(ctx context.Context, client redis.UniversalClient, prefix string, catalog []Definition) (*RedisStore, error) {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	s := &RedisStore{
		client: client,
		prefix: prefix,
		defs:   make(map[string]Definition, len(catalog)),
		now:    time.Now,
	}
	for _, d := range catalog {
		s.defs[d.Name] = d
	}

	for _, d := range catalog {
		if err := s.seed(ctx, d); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// seed writes the seeded participants of d and marks it seeded in one
// transaction, unless it was seeded before. The seeded set is watched so
// replicas starting together seed each activity once.
func (s *RedisStore) seed(ctx context.Context, d Definition) error {
	seededKey := s.seededKey()
	for range maxSeedAttempts {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			seeded, err := tx.SIsMember(ctx, seededKey, d.Name).Result()
			if err != nil || seeded {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				if len(d.Participants) > 0 {
					p.ZAddNX(ctx, s.rosterKey(d.Name), seedMembers(d)...)
				}
				p.SAdd(ctx, seededKey, d.Name)
				return nil
			})
			return err
		}, seededKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seeding %q: %w", d.Name, err)
		}
		return nil
	}
	return fmt.Errorf("seeding %q: gave up after %d conflicting attempts", d.Name, maxSeedAttempts)
}

func (s *RedisStore) rosterKey(name string) string {
	return fmt.Sprintf("%s:activity:%s:participants", s.prefix, name)
}

func (s *RedisStore) seededKey() string {
	return s.prefix + ":seeded"
}

// seedMembers scores seeded participants 0..n-1 so they always sort before
// later signups, which are scored by wall-clock time.
func seedMembers(d Definition) []redis.Z {
	members := make([]redis.Z, len(d.Participants))
	for i, p := range d.Participants {
		members[i] = redis.Z{Score: float64(i), Member: p}
	}
	return members
}

// Activities returns every activity with its roster read from Redis.
func (s *RedisStore) Activities(ctx context.Context) (map[string]Activity, error) {
	cmds := make(map[string]*redis.StringSliceCmd, len(s.defs))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for name := range s.defs {
			cmds[name] = p.ZRange(ctx, s.rosterKey(name), 0, -1)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading rosters: %w", err)
	}

	result := make(map[string]Activity, len(s.defs))
	for name, d := range s.defs {
		result[name] = d.activity(cmds[name].Val())
	}
	return result, nil
}

// Signup adds email to the named activity's roster with ZADD NX.
func (s *RedisStore) Signup(ctx context.Context, name, email string) (int, error) {
	if _, ok := s.defs[name]; !ok {
		return 0, ErrActivityNotFound
	}
	key := s.rosterKey(name)

	var added, size *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		added = p.ZAddNX(ctx, key, redis.Z{Score: float64(s.now().UnixMicro()), Member: email})
		size = p.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("signing up %q for %q: %w", email, name, err)
	}
	if added.Val() == 0 {
		return int(size.Val()), ErrAlreadyRegistered
	}
	return int(size.Val()), nil
}

// Unregister removes email from the named activity's roster with ZREM.
func (s *RedisStore) Unregister(ctx context.Context, name, email string) (int, error) {
	if _, ok := s.defs[name]; !ok {
		return 0, ErrActivityNotFound
	}
	key := s.rosterKey(name)

	var removed, size *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		removed = p.ZRem(ctx, key, email)
		size = p.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("unregistering %q from %q: %w", email, name, err)
	}
	if removed.Val() == 0 {
		return int(size.Val()), ErrNotRegistered
	}
	return int(size.Val()), nil
}

// Reset replaces every roster with its seeded participants in one transaction.
func (s *RedisStore) Reset(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for name, d := range s.defs {
			key := s.rosterKey(name)
			p.Del(ctx, key)
			if len(d.Participants) > 0 {
				p.ZAdd(ctx, key, seedMembers(d)...)
			}
			p.SAdd(ctx, s.seededKey(), name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("resetting rosters: %w", err)
	}
	return nil
}
