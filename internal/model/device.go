package model

type (
	// AccountID is an opaque identity handle for one user account.
	AccountID string

	// DeviceID identifies one device, scoped to an account.
	DeviceID uint32

	// DeviceKey addresses exactly one pre-key bundle list.
	DeviceKey struct {
		Account AccountID `json:"account"`
		Device  DeviceID  `json:"device"`
	}
)
