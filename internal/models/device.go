package models

// DeviceToken maps a user to one installed app instance registered with the
// push gateway. Tokens are created elsewhere; this system only flips IsActive
// to false when the gateway reports the token unregistered. A deactivated
// token is never reactivated here.
type DeviceToken struct {
	UserID     string `json:"user_id"`
	PushToken  string `json:"push_token"`
	DeviceName string `json:"device_name,omitempty"`
	IsActive   bool   `json:"is_active"`
}
