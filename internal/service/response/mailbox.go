package response

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"e2ee_keyserver/internal/model"
	redisSvc "e2ee_keyserver/internal/service/redis"

	"github.com/redis/go-redis/v9"
)

type (
	// Mailbox parks withdrawal responses for requesters that are not
	// connected. One slot per (requester, request id), last write wins.
	Mailbox interface {
		Park(ctx context.Context, requester model.AccountID, requestID string, resp *model.WithdrawalResponse) error
		// Take removes and returns a parked response, false when none.
		Take(ctx context.Context, requester model.AccountID, requestID string) (*model.WithdrawalResponse, bool, error)
	}

	RedisMailbox struct {
		redisService *redisSvc.RedisService
		ttl          time.Duration
	}
)

func NewRedisMailbox(redisService *redisSvc.RedisService, ttl time.Duration) *RedisMailbox {
	return &RedisMailbox{
		redisService: redisService,
		ttl:          ttl,
	}
}

func mailboxKey(requester model.AccountID, requestID string) string {
	return fmt.Sprintf("pkb_response: %s: %s", requester, requestID)
}

func (m *RedisMailbox) Park(ctx context.Context, requester model.AccountID, requestID string, resp *model.WithdrawalResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	return m.redisService.Set(ctx, mailboxKey(requester, requestID), data, m.ttl)
}

func (m *RedisMailbox) Take(ctx context.Context, requester model.AccountID, requestID string) (*model.WithdrawalResponse, bool, error) {
	key := mailboxKey(requester, requestID)

	v, err := m.redisService.Get(ctx, key)
	if err == redis.Nil {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	if err := m.redisService.Del(ctx, key); err != nil {
		return nil, false, err
	}

	var resp model.WithdrawalResponse
	if err := json.Unmarshal([]byte(v), &resp); err != nil {
		return nil, false, err
	}

	return &resp, true, nil
}
