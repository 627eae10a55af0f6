package response

import (
	"context"
	"sync"

	"e2ee_keyserver/internal/model"
	"e2ee_keyserver/internal/utils/log"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type (
	// Dispatcher implements the response channel. A result is pushed over
	// the requester's websocket when one is attached, otherwise it is
	// parked in the mailbox until picked up.
	Dispatcher struct {
		mu      sync.Mutex
		mapper  map[model.AccountID]*websocket.Conn
		mailbox Mailbox
	}
)

func NewDispatcher(mailbox Mailbox) *Dispatcher {
	return &Dispatcher{
		mapper:  make(map[model.AccountID]*websocket.Conn),
		mailbox: mailbox,
	}
}

// Attach reports false when the account already has a live connection.
func (d *Dispatcher) Attach(account model.AccountID, conn *websocket.Conn) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.mapper[account]; ok {
		return false
	}

	d.mapper[account] = conn
	return true
}

func (d *Dispatcher) Detach(account model.AccountID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.mapper, account)
}

func (d *Dispatcher) Deliver(ctx context.Context, requester model.AccountID, requestID string, result model.WithdrawalResult) error {
	resp := &model.WithdrawalResponse{
		RequestID: requestID,
		Acquired:  result,
	}

	d.mu.Lock()
	conn, connected := d.mapper[requester]
	d.mu.Unlock()

	if connected {
		err := conn.WriteJSON(resp)
		if err == nil {
			return nil
		}
		log.Debug("websocket push failed, parking response", zap.Error(err))
	}

	return d.mailbox.Park(ctx, requester, requestID, resp)
}

// Take hands out a parked response, removing it from the mailbox.
func (d *Dispatcher) Take(ctx context.Context, requester model.AccountID, requestID string) (*model.WithdrawalResponse, bool, error) {
	return d.mailbox.Take(ctx, requester, requestID)
}
