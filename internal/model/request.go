package model

type (
	CreateAccountRequest struct {
		Name        string `json:"name" validate:"required"`
		IdentityKey []byte `json:"identity_key" validate:"required"`
	}

	RegisterDeviceRequest struct {
		Device  DeviceID       `json:"device"`
		Bundles []PreKeyBundle `json:"bundles"`
	}

	ReplenishRequest struct {
		Device  DeviceID       `json:"device"`
		Bundles []PreKeyBundle `json:"bundles" validate:"required"`
	}

	WithdrawRequest struct {
		RequestID string      `json:"request_id" validate:"required"`
		Wanted    []DeviceKey `json:"wanted"`
	}

	CreateGroupRequest struct {
		Group   string      `json:"group" validate:"required"`
		Members []AccountID `json:"members"`
	}

	CountResponse struct {
		Device DeviceID `json:"device"`
		Count  int      `json:"count"`
	}

	DeviceListResponse struct {
		Account AccountID  `json:"account"`
		Devices []DeviceID `json:"devices"`
	}

	// WithdrawalResponse is what the requester receives, over the websocket
	// or from the response mailbox.
	WithdrawalResponse struct {
		RequestID string           `json:"request_id"`
		Acquired  WithdrawalResult `json:"acquired"`
	}
)
