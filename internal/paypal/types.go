package paypal

// Batch statuses reported by the payouts API.
const (
	BatchStatusPending    = "PENDING"
	BatchStatusProcessing = "PROCESSING"
	BatchStatusSuccess    = "SUCCESS"
	BatchStatusDenied     = "DENIED"
)

// Processor error names that mean the credential is dead and must be
// re-linked, not retried.
const (
	ErrNameInvalidToken = "INVALID_TOKEN"
	ErrNameAuthFailure  = "AUTHENTICATION_FAILURE"
)

type amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type payoutItem struct {
	RecipientType string `json:"recipient_type"`
	Amount        amount `json:"amount"`
	Note          string `json:"note,omitempty"`
	SenderItemID  string `json:"sender_item_id"`
	Receiver      string `json:"receiver"`
}

type senderBatchHeader struct {
	SenderBatchID string `json:"sender_batch_id"`
	EmailSubject  string `json:"email_subject,omitempty"`
}

type payoutRequest struct {
	SenderBatchHeader senderBatchHeader `json:"sender_batch_header"`
	Items             []payoutItem      `json:"items"`
}

type batchHeader struct {
	PayoutBatchID     string            `json:"payout_batch_id"`
	BatchStatus       string            `json:"batch_status"`
	SenderBatchHeader senderBatchHeader `json:"sender_batch_header"`
}

type payoutItemDetail struct {
	PayoutItemID      string `json:"payout_item_id"`
	TransactionStatus string `json:"transaction_status"`
	SenderItemID      string `json:"sender_item_id"`
}

type payoutResponse struct {
	BatchHeader batchHeader        `json:"batch_header"`
	Items       []payoutItemDetail `json:"items"`
}

// BatchResult is the normalized outcome of a payout call.
type BatchResult struct {
	BatchID string
	ItemID  string
	Status  string
}

// UserInfo is the subset of the identity endpoint response the platform
// needs.
type UserInfo struct {
	Email    string
	Verified bool
}

// Tokens are the credentials returned by an authorization-code exchange.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // unix seconds, zero when the processor omitted it
}

type apiError struct {
	Name             string `json:"name"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
