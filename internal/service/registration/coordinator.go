package registration

import (
	"context"

	"e2ee_keyserver/internal/model"
	"e2ee_keyserver/internal/store/bundle"
	"e2ee_keyserver/internal/utils/log"

	"go.uber.org/zap"
)

type (
	// DeviceRegistry tracks which device ids exist under an account.
	DeviceRegistry interface {
		AppendDevice(ctx context.Context, owner model.AccountID, device model.DeviceID) error
		Devices(ctx context.Context, owner model.AccountID) ([]model.DeviceID, error)
	}

	// GroupMembership lists an account's groups and extends a group's
	// member-device set.
	GroupMembership interface {
		GroupsOf(ctx context.Context, owner model.AccountID) ([]string, error)
		AppendMemberDevice(ctx context.Context, group string, owner model.AccountID, device model.DeviceID) error
	}

	// Coordinator registers a new device: it fans the device into every
	// group the owner already belongs to and seeds its initial bundles.
	// Cost is proportional to the number of groups the owner is in.
	Coordinator struct {
		devices DeviceRegistry
		groups  GroupMembership
		store   *bundle.Store
	}
)

func NewCoordinator(devices DeviceRegistry, groups GroupMembership, store *bundle.Store) *Coordinator {
	return &Coordinator{
		devices: devices,
		groups:  groups,
		store:   store,
	}
}

// RegisterDevice runs the registration unit of work. The capacity check is
// the same one replenishment applies; it runs before any state is touched, so
// the final store cannot fail and no partial registration becomes visible.
// Callers serialize mutating requests, which keeps check-then-store sound.
func (c *Coordinator) RegisterDevice(ctx context.Context, owner model.AccountID, device model.DeviceID, initialBundles []model.PreKeyBundle) error {
	key := model.DeviceKey{Account: owner, Device: device}

	if !c.store.HasCapacity(key, len(initialBundles)) {
		return bundle.ErrMaxPreKeyBundles
	}

	if err := c.devices.AppendDevice(ctx, owner, device); err != nil {
		return err
	}

	userGroups, err := c.groups.GroupsOf(ctx, owner)
	if err != nil {
		return err
	}

	for _, group := range userGroups {
		if err := c.groups.AppendMemberDevice(ctx, group, owner, device); err != nil {
			return err
		}
	}

	if err := c.store.Store(key, initialBundles); err != nil {
		// Unreachable while mutating requests stay serialized.
		log.Error("seeding initial bundles failed after fan-out", zap.Error(err))
		return err
	}

	return nil
}
