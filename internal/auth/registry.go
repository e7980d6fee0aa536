package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Registry tracks at most one active session per user. Create overwrites
// any prior record, so only the most recent login is trackable.
type Registry interface {
	Create(ctx context.Context, userID string) (string, error)
	Validate(ctx context.Context, userID, candidateSessionID string) (bool, error)
	Delete(ctx context.Context, userID string) error
}

// RedisRegistry stores the single live session id per user in Redis.
// The key TTL doubles as the session expiry, so expired records read as
// absent without any background sweep.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry constructs a registry with a fixed session TTL.
func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

// Create generates a fresh opaque session id for the user, replacing any
// existing record.
func (r *RedisRegistry) Create(ctx context.Context, userID string) (string, error) {
	id := generateSessionID()
	if err := r.client.Set(ctx, r.key(userID), id, r.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate reports whether an unexpired record exists for the user and its
// stored id equals the candidate.
func (r *RedisRegistry) Validate(ctx context.Context, userID, candidateSessionID string) (bool, error) {
	if userID == "" || candidateSessionID == "" {
		return false, nil
	}
	stored, err := r.client.Get(ctx, r.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidateSessionID)) == 1, nil
}

// Delete removes the user's session record. Deleting an absent record is
// not an error.
func (r *RedisRegistry) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

func (r *RedisRegistry) key(userID string) string {
	return "session:user:" + userID
}

func generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

var _ Registry = (*RedisRegistry)(nil)
