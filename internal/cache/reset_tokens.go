package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetTokens tracks outstanding password-reset tokens so each one works once.
type ResetTokens struct {
	client *redis.Client
}

func NewResetTokens(client *redis.Client) *ResetTokens {
	return &ResetTokens{client: client}
}

func (r *ResetTokens) Remember(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	return r.client.Set(ctx, resetTokenKey(tokenID), strconv.FormatInt(userID, 10), ttl).Err()
}

// Consume deletes the token and reports the user it was issued to.
// ok is false when the token was never issued, already used or expired.
func (r *ResetTokens) Consume(ctx context.Context, tokenID string) (int64, bool, error) {
	value, err := r.client.GetDel(ctx, resetTokenKey(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

func resetTokenKey(tokenID string) string {
	return fmt.Sprintf("password_reset:%s", tokenID)
}

// Dial connects and pings, closing the client if the ping fails.
func Dial(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
