package withdrawal

import (
	"context"
	"errors"

	"e2ee_keyserver/internal/model"
	"e2ee_keyserver/internal/store/bundle"
)

// ErrWithdrawListTooLong is returned when a withdrawal names more device keys
// than the configured bound. Nothing is popped on this path.
var ErrWithdrawListTooLong = errors.New("withdraw list is larger than the allowed number of device keys")

type (
	// ResponseChannel delivers a withdrawal result to the requester, keyed
	// by request id. A later delivery for the same (requester, request id)
	// replaces an earlier one.
	ResponseChannel interface {
		Deliver(ctx context.Context, requester model.AccountID, requestID string, result model.WithdrawalResult) error
	}

	// Batcher pops one bundle per wanted device key and hands the collected
	// result to the response channel.
	Batcher struct {
		store     *bundle.Store
		responses ResponseChannel
		maxKeys   int
	}
)

func NewBatcher(store *bundle.Store, responses ResponseChannel, maxKeys int) *Batcher {
	return &Batcher{
		store:     store,
		responses: responses,
		maxKeys:   maxKeys,
	}
}

// Withdraw pops the most recent bundle for each wanted key, in input order.
// Keys with nothing pending are left out of the result; an empty result is
// still delivered. Exactly one delivery happens per successful call.
func (b *Batcher) Withdraw(ctx context.Context, requester model.AccountID, requestID string, wanted []model.DeviceKey) error {
	if len(wanted) > b.maxKeys {
		return ErrWithdrawListTooLong
	}

	acquired := make(model.WithdrawalResult, 0, len(wanted))
	for _, key := range wanted {
		pkb, ok := b.store.Pop(key)
		if !ok {
			continue
		}

		acquired = append(acquired, model.AcquiredBundle{
			Account: key.Account,
			Device:  key.Device,
			Bundle:  pkb,
		})
	}

	return b.responses.Deliver(ctx, requester, requestID, acquired)
}
