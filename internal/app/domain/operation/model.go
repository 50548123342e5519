package operation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the direction of a currency exchange from the desk's perspective.
type Kind string

const (
	// KindPurchase means the desk buys USD from the client.
	KindPurchase Kind = "Purchase"
	// KindSale means the desk sells USD to the client.
	KindSale Kind = "Sale"
)

// Valid reports whether k is a known operation kind.
func (k Kind) Valid() bool {
	return k == KindPurchase || k == KindSale
}

// Status is the lifecycle state of an operation.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusInProcess Status = "InProcess"
	StatusCompleted Status = "Completed"
	StatusCanceled  Status = "Canceled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProcess, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// transitions is the full legal-transition table. Absent entries are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusInProcess, StatusCanceled},
	StatusInProcess: {StatusCompleted, StatusCanceled},
}

// CanTransition reports whether moving from -> to is legal.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Operation is a single currency-exchange transaction between the desk and a
// client. Monetary fields use decimal arithmetic; AmountPEN is derived once at
// creation and never recomputed from a later rate.
type Operation struct {
	ID         int64  `json:"id"`
	TrackingID string `json:"tracking_id"`
	ClientID   int64  `json:"client_id"`
	UserID     int64  `json:"user_id"`
	Kind       Kind   `json:"kind"`

	AmountUSD    decimal.Decimal `json:"amount_usd"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	AmountPEN    decimal.Decimal `json:"amount_pen"`

	SourceAccount      string `json:"source_account,omitempty"`
	DestinationAccount string `json:"destination_account,omitempty"`

	PaymentProofURL  string `json:"payment_proof_url,omitempty"`
	OperatorProofURL string `json:"operator_proof_url,omitempty"`

	Status Status `json:"status"`
	Notes  string `json:"notes,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Cancelable reports whether the operation may still be canceled.
func (o Operation) Cancelable() bool {
	return CanTransition(o.Status, StatusCanceled)
}

// maxNotesLen bounds the accumulated notes history. When exceeded, the oldest
// text is discarded so recent entries survive.
const maxNotesLen = 10000

// AppendNote adds text to the notes history under a timestamp prefix.
func (o *Operation) AppendNote(at time.Time, text string) {
	o.appendMarked(fmt.Sprintf("[%s]", at.UTC().Format("2006-01-02 15:04")), text)
}

// AppendCancelReason records the cancellation reason under its marker.
func (o *Operation) AppendCancelReason(reason string) {
	o.appendMarked("[CANCELED]", reason)
}

func (o *Operation) appendMarked(marker, text string) {
	entry := marker + " " + text
	if o.Notes == "" {
		o.Notes = entry
	} else {
		o.Notes = o.Notes + "\n\n" + entry
	}
	if runes := []rune(o.Notes); len(runes) > maxNotesLen {
		o.Notes = string(runes[len(runes)-maxNotesLen:])
	}
}
