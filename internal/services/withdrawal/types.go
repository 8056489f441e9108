package withdrawal

// Request describes a user-initiated withdrawal. Amount is a decimal
// string as received from the API, for example "50.00".
type Request struct {
	UserID      uint
	Role        string
	Amount      string
	Description string
}

// Result is the API-facing view of a withdrawal after orchestration.
type Result struct {
	TransactionID string `json:"transaction_id"`
	UserID        uint   `json:"-"`
	Amount        int64  `json:"amount"`
	Display       string `json:"display"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PayoutStatus  string `json:"payout_status"`
	PayoutID      string `json:"payout_id,omitempty"`
}
