package domain

// Ledger key prefixes. Keys are the prefix concatenated with the business id.
const (
	KeyPrefixToken       = "nft"
	KeyPrefixOrder       = "orderId"
	KeyPrefixCredit      = "credit"
	KeyPrefixTrade       = "trade"
	KeyPrefixTransaction = "transaction"
	KeyPrefixRequest     = "uuid"
	KeyPrefixOutbox      = "outbox"

	KeyName            = "name"
	KeySymbol          = "symbol"
	KeyLock            = "lock"
	KeyOrgAdminMapping = "orgAdminMapping"
)

// Order kinds accepted by Distribution.
const (
	OrderTypePurchase = "Purchase"
	OrderTypeRefund   = "Refund"
)

// Credit info kinds accepted by StoreCreditInfo.
const (
	CreditTypeSetOrUpdate = "2"
	CreditTypeActivate    = "3"
)

// Price strategy kinds accepted by UpdatePriceInfo. The empty kind is a
// direct sale.
const (
	PriceStrategyAdd    = "0"
	PriceStrategyUpdate = "1"
	PriceStrategyDirect = ""
)

const (
	// NoEscrowRatio marks a transfer whose full amount is immediately spendable.
	NoEscrowRatio = "0"

	TicketStatusRefunded = 4
)

// Event names.
const (
	EventMint               = "Mint"
	EventSplit              = "Split"
	EventBurn               = "Burn"
	EventUpdateTicketInfo   = "UpdateTicketInfo"
	EventStoreOrder         = "StoreOrder"
	EventStoreRefund        = "StoreRefund"
	EventDistributionOrder  = "DistributionOrder"
	EventDistributionRefund = "DistributionRefund"
	EventActivateTickets    = "ActivateTickets"
	EventStoreCreditInfo    = "StoreCreditInfo"
	EventTransferCredit     = "TransferCredit"
	EventPaymentFlow        = "PaymentFlow"
	EventVerifyTicket       = "VerifyTicket"
	EventTimerUpdateTickets = "TimerUpdateTickets"
	EventUpdatePriceInfo    = "UpdatePriceInfo"
	EventUpdateIssueTickets = "UpdateIssueTickets"
	EventUpdateStockInfo    = "UpdateStockInfo"
)

func TokenKey(tokenID string) string { return KeyPrefixToken + tokenID }
func OrderKey(id string) string { return KeyPrefixOrder + id }
func CreditKey(assetsKey string) string { return KeyPrefixCredit + assetsKey }
func TradeKey(no string) string { return KeyPrefixTrade + no }
func TransactionKey(serial string) string { return KeyPrefixTransaction + serial }
func RequestKey(requestID string) string { return KeyPrefixRequest + requestID }
func OutboxKey(eventID string) string { return KeyPrefixOutbox + eventID }
