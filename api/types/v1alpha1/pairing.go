package v1alpha1

// PairingStatus is the redemption state of a pairing code
type PairingStatus string

const (
	// PairingStatusPending means no administrator has redeemed the code yet
	PairingStatusPending PairingStatus = "pending"
	// PairingStatusPaired means the code was redeemed and a credential issued
	PairingStatusPaired PairingStatus = "paired"
	// PairingStatusExpired means the code can no longer be redeemed
	PairingStatusExpired PairingStatus = "expired"
)

// PairingStartResponse is returned when the player asks for a pairing code
type PairingStartResponse struct {
	// Code is the short human-readable code shown on screen
	Code string `json:"code"`
}

// PairingStatusResponse reports whether a pairing code was redeemed
type PairingStatusResponse struct {
	// Status is the redemption state of the code
	Status PairingStatus `json:"status"`
	// Token is the device credential, set once Status is paired
	Token string `json:"token,omitempty"`
	// Credential is accepted as an alias of Token
	Credential string `json:"credential,omitempty"`
}

// DeviceToken returns the issued credential regardless of which field carried it
func (r *PairingStatusResponse) DeviceToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.Credential
}
