package handshake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veilauth/veil/internal/auth/domain"
)

const redisKeyPrefix = "veil:handshake:"

// RedisStore keeps handshakes in Redis so multiple instances can serve the
// start and complete phases of the same login. Expiry rides on Redis key
// TTLs and take-once semantics on GETDEL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("handshake: redis ping: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Tests use this with an
// in-process server.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// redisHandshake is the wire form. Big integers travel as hex strings.
type redisHandshake struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Decoy        bool      `json:"decoy,omitempty"`
	ServerSecret string    `json:"server_secret"`
	ServerPublic string    `json:"server_public"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, hs *domain.Handshake, ttl time.Duration) error {
	payload, err := json.Marshal(redisHandshake{
		UserID:       hs.UserID,
		Username:     hs.Username,
		Decoy:        hs.Decoy,
		ServerSecret: hs.ServerSecret.Text(16),
		ServerPublic: hs.ServerPublic.Text(16),
		CreatedAt:    hs.CreatedAt,
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+sessionID, payload, ttl).Err()
}

func (s *RedisStore) TakeOnce(ctx context.Context, sessionID string) (*domain.Handshake, error) {
	payload, err := s.client.GetDel(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rh redisHandshake
	if err := json.Unmarshal(payload, &rh); err != nil {
		return nil, err
	}

	secret, ok := new(big.Int).SetString(rh.ServerSecret, 16)
	if !ok {
		return nil, errors.New("handshake: corrupt server secret")
	}
	public, ok := new(big.Int).SetString(rh.ServerPublic, 16)
	if !ok {
		return nil, errors.New("handshake: corrupt server public")
	}

	return &domain.Handshake{
		UserID:       rh.UserID,
		Username:     rh.Username,
		Decoy:        rh.Decoy,
		ServerSecret: secret,
		ServerPublic: public,
		CreatedAt:    rh.CreatedAt,
	}, nil
}

// Sweep is a no-op; Redis evicts expired keys itself.
func (s *RedisStore) Sweep(context.Context) (int, error) { return 0, nil }

func (s *RedisStore) Close() error { return s.client.Close() }
