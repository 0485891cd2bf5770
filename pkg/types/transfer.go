package types

// TransferForm holds the raw values a user submits. All four fields are
// required; they are validated and resolved by the dispatcher.
type TransferForm struct {
	Recipient string `json:"to"`
	Chain     string `json:"chain"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
}

// TransferResult is the display form of a finished submission
type TransferResult struct {
	RequestID   string `json:"request_id,omitempty"`
	Status      string `json:"status"`
	TxHash      string `json:"tx_hash,omitempty"`
	ExplorerURL string `json:"explorer_url,omitempty"`
	Error       string `json:"error,omitempty"`
}
