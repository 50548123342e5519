package client

import "time"

// Status marks whether a client may be traded with.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Valid reports whether s is a known client status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Client is a counterparty of the desk.
type Client struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	DNI   string `json:"dni"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`

	DNIFrontURL string `json:"dni_front_url,omitempty"`
	DNIBackURL  string `json:"dni_back_url,omitempty"`

	BankAccountPEN string `json:"bank_account_pen,omitempty"`
	BankAccountUSD string `json:"bank_account_usd,omitempty"`
	BankName       string `json:"bank_name,omitempty"`

	Status Status `json:"status"`
	Notes  string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether operations may be created for the client.
func (c Client) Active() bool {
	return c.Status == StatusActive
}
