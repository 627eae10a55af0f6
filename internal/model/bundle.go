package model

type (
	// PreKeyBundle is a pre-serialized, one-time-use key bundle.
	// The server never interprets its contents.
	PreKeyBundle []byte

	// AcquiredBundle is one successful withdrawal.
	AcquiredBundle struct {
		Account AccountID    `json:"account"`
		Device  DeviceID     `json:"device"`
		Bundle  PreKeyBundle `json:"bundle"`
	}

	// WithdrawalResult holds the acquired bundles in request order.
	// Keys that had no bundle available are omitted.
	WithdrawalResult []AcquiredBundle
)
