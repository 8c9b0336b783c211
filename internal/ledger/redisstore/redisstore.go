// Package redisstore provides a Redis implementation of ledger.Store using
// native sets and hashes. This is the primary production backend.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store persists ledger state in Redis.
type Store struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Store{client: client}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Exists reports membership via SISMEMBER.
func (s *Store) Exists(ctx context.Context, set, key string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, set, key).Result()
	if err != nil {
		return false, fmt.Errorf("sismember %s: %w", set, err)
	}
	return ok, nil
}

// WriteRecord stores the field map as a Redis hash.
func (s *Store) WriteRecord(ctx context.Context, key string, fields map[string]string) error {
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// AddToSet adds key to the named set via SADD.
func (s *Store) AddToSet(ctx context.Context, set, key string) error {
	if err := s.client.SAdd(ctx, set, key).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", set, err)
	}
	return nil
}

// ReadSet returns all members of the named set.
func (s *Store) ReadSet(ctx context.Context, set string) ([]string, error) {
	members, err := s.client.SMembers(ctx, set).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", set, err)
	}
	return members, nil
}

// ReadRecord returns the hash stored under key; an unknown key yields an
// empty map, matching HGETALL semantics.
func (s *Store) ReadRecord(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return fields, nil
}
