package models

// CreditInfo is the StoreCreditInfo payload.
type CreditInfo struct {
	Account      string `json:"account"`
	MerchantID   string `json:"merchantId"`
	CreditLimit  string `json:"creditLimit"`
	PledgeAmount string `json:"pledgeAmount"`
	AssetsKey    string `json:"assetsKey"`
	SeqNo        string `json:"seqNo"`
}

// TransferInfo is the TransferCredit payload.
type TransferInfo struct {
	IssuerID        string `json:"issuer_id"`
	IssuerAccount   string `json:"issuer_account"`
	ReceiverID      string `json:"receiver_id"`
	ReceiverAccount string `json:"receiver_account"`
	AssetsKey       string `json:"assetsKey"`
	Amount          string `json:"amount"`
	TradeNo         string `json:"tradeNo"`
}

// PaymentFlowInfo is the PaymentFlow payload.
type PaymentFlowInfo struct {
	UserName                string `json:"user_name"`
	BankCardNumber          string `json:"bank_card_number"`
	BankName                string `json:"bank_name"`
	TransactionSerialNumber string `json:"transaction_serial_number"`
	Amount                  string `json:"amount"`
	CreditorID              string `json:"creditor_id"`
	CorporationID           string `json:"corporation_id"`
}
