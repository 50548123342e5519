package audit

import "time"

// Action codes recorded in the audit trail.
const (
	ActionCreateOperation       = "CREATE_OPERATION"
	ActionUpdateOperationStatus = "UPDATE_OPERATION_STATUS"
	ActionUpdateOperationProofs = "UPDATE_OPERATION_PROOFS"
	ActionCancelOperation       = "CANCEL_OPERATION"

	ActionCreateClient       = "CREATE_CLIENT"
	ActionUpdateClient       = "UPDATE_CLIENT"
	ActionUpdateClientStatus = "UPDATE_CLIENT_STATUS"

	ActionCreateUser       = "CREATE_USER"
	ActionUpdateUser       = "UPDATE_USER"
	ActionUpdateUserStatus = "UPDATE_USER_STATUS"

	ActionLogin  = "LOGIN"
	ActionLogout = "LOGOUT"
)

// Entity types referenced by audit entries.
const (
	EntityOperation = "Operation"
	EntityClient    = "Client"
	EntityUser      = "User"
)

// Entry is one append-only audit record. Entries are written inside the same
// transaction as the mutation they describe and are never updated or deleted.
type Entry struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Action   string `json:"action"`
	Entity   string `json:"entity"`
	EntityID int64  `json:"entity_id"`
	Details  string `json:"details,omitempty"`
	Notes    string `json:"notes,omitempty"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
