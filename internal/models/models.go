package models

// Token is a semi-fungible ticket unit: a divisible balance bound to a
// non-fungible slot descriptor.
type Token struct {
	Balance      int64        `json:"balance"`
	Metadata     Metadata     `json:"metadata"`
	Owner        string       `json:"owner"`
	Slot         TicketInfo   `json:"slot"`
	Provenance   []StockBatch `json:"stockBatchNumber"`
	TokenID      string       `json:"token_id"`
	TotalBalance int64        `json:"total_balance"`
}

// Metadata holds display attributes of a token.
type Metadata struct {
	Description string `json:"description"`
	TokenURL    string `json:"token_url"`
}

// StockBatch records how much of a token's balance came from an origin token.
type StockBatch struct {
	StockBatchNumber string `json:"stock_batch_number"`
	Amount           int64  `json:"amount"`
}

// ProvenanceFor returns the entry for origin, or nil.
func (t *Token) ProvenanceFor(origin string) *StockBatch {
	for i := range t.Provenance {
		if t.Provenance[i].StockBatchNumber == origin {
			return &t.Provenance[i]
		}
	}
	return nil
}

// AddProvenance credits amount to the entry for origin, appending one if needed.
func (t *Token) AddProvenance(origin string, amount int64) {
	if sb := t.ProvenanceFor(origin); sb != nil {
		sb.Amount += amount
		return
	}
	t.Provenance = append(t.Provenance, StockBatch{StockBatchNumber: origin, Amount: amount})
}

// TokenSummary is the row returned by token queries.
type TokenSummary struct {
	TicketID string `json:"ticketId"`
	Owner    string `json:"owner"`
	Balance  int64  `json:"balance"`
}

// CreditAccount is a merchant credit line.
type CreditAccount struct {
	Owner        string `json:"owner"`
	MerchantID   string `json:"merchant_id"`
	CreditLimit  int64  `json:"credit_limit"`
	PledgeAmount int64  `json:"pledge_amount"`
	LastSeqNo    string `json:"last_seq_no"`
	AssetsKey    string `json:"assets_key"`
}

// PaymentRecord is an accepted bank payment audit entry. The submitted
// payload itself is what the ledger stores.
type PaymentRecord struct {
	PaymentFlowInfo
	TriggerTime int64 `json:"trigger_time"`
}

// ContractInfo describes the initialized contract.
type ContractInfo struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Locked bool   `json:"locked"`
}
