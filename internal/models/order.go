package models

import (
	"encoding/json"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
)

// OrderInfo is a consumer order group submitted to StoreOrder.
type OrderInfo struct {
	OrderGroupID     string      `json:"order_group_id"`
	OrderStatus      string      `json:"order_status"`
	OrderType        string      `json:"order_type"`
	TotalAmount      json.Number `json:"total_amount"`
	PayAmount        json.Number `json:"pay_amount"`
	PayType          json.Number `json:"pay_type"`
	SourceType       json.Number `json:"source_type"`
	StockCertificate string      `json:"stock_certificate"`
	TradeNo          string      `json:"trade_no"`
	UserID           string      `json:"user_id"`
	Username         string      `json:"username"`
	PayTime          string      `json:"pay_time"`
	UserPhone        string      `json:"user_phone"`
	OrderTab         []OrderTab  `json:"OrderTab"`
}

type OrderTab struct {
	OrderID               string                   `json:"order_id"`
	OrderType             string                   `json:"order_type"`
	SellerID              json.Number              `json:"seller_id"`
	SellerName            string                   `json:"seller_name"`
	TotalAmount           json.Number              `json:"total_amount"`
	PayType               json.Number              `json:"pay_type"`
	SourceType            json.Number              `json:"source_type"`
	OrderStatus           string                   `json:"order_status"`
	TradeNo               string                   `json:"trade_no"`
	MerchantID            string                   `json:"merchant_id"`
	StoreID               json.Number              `json:"store_id"`
	AgentID               json.Number              `json:"agent_id"`
	AgentName             string                   `json:"agent_name"`
	CommissionSettledType json.Number              `json:"commission_settled_type"`
	UserID                string                   `json:"user_id"`
	Username              string                   `json:"username"`
	PayTime               string                   `json:"pay_time"`
	ModifyTime            string                   `json:"modify_time"`
	PayPeople             json.Number              `json:"pay_people"`
	Nickname              string                   `json:"nickname"`
	MerchantNo            string                   `json:"merchant_no"`
	OrderProductTicket    []OrderProductTicketData `json:"OrderProductTicketData"`
}

type OrderProductTicketData struct {
	ScenicID         json.Number                `json:"scenic_id"`
	ScenicName       string                     `json:"scenic_name"`
	TicketType       json.Number                `json:"ticket_type"`
	Day              string                     `json:"day"`
	TimeShareID      json.Number                `json:"time_share_id"`
	TimeShare        string                     `json:"time_share"`
	ParentProductID  json.Number                `json:"parent_product_id"`
	CommissionType   json.Number                `json:"commission_type"`
	CommissionRate   json.Number                `json:"commission_rate"`
	CommissionAmount json.Number                `json:"commission_amount"`
	ActualComAmount  json.Number                `json:"actual_com_amount"`
	BdsAccount       string                     `json:"bds_account"`
	BdsOrg           string                     `json:"bds_org"`
	TicketTypeID     json.Number                `json:"ticket_type_id"`
	TicketTypeSubID  json.Number                `json:"ticket_type_sub_id"`
	RealQuantity     json.Number                `json:"real_quantity"`
	TicketRn         []OrderProductTicketRnData `json:"OrderProductTicketRnData"`
}

type OrderProductTicketRnData struct {
	ID                      json.Number `json:"id"`
	OrderProductID          json.Number `json:"order_product_id"`
	TicketNumber            string      `json:"ticket_number"`
	TicketStatus            json.Number `json:"ticket_status"`
	CommissionSettledStatus json.Number `json:"commission_settled_status"`
	IsChain                 json.Number `json:"is_chain"`
	BillStatus              json.Number `json:"bill_status"`
	IssueTicketType         json.Number `json:"issue_ticket_type"`
}

// DistributionOrderInfo is the business-to-business purchase payload of Distribution.
type DistributionOrderInfo struct {
	OrderGroupID     string            `json:"order_group_id"`
	OrderStatus      string            `json:"order_status"`
	OrderType        string            `json:"order_type"`
	TotalAmount      json.Number       `json:"total_amount"`
	PayType          json.Number       `json:"pay_type"`
	SourceType       json.Number       `json:"source_type"`
	StockCertificate string            `json:"stock_certificate"`
	TradeNo          string            `json:"trade_no"`
	UserID           string            `json:"user_id"`
	Username         string            `json:"username"`
	PayTime          string            `json:"pay_time"`
	CertID           string            `json:"cert_id"`
	UserPhone        string            `json:"user_phone"`
	OrderTabToB      []OrderTabToB     `json:"orderTabToBData"`
	Distribute       []OrderDistribute `json:"orderTabDistributeData"`
}

type OrderTabToB struct {
	OrderID               string      `json:"order_id"`
	OrderType             string      `json:"order_type"`
	SellerID              json.Number `json:"seller_id"`
	SellerName            string      `json:"seller_name"`
	TotalAmount           json.Number `json:"total_amount"`
	PayAmount             json.Number `json:"pay_amount"`
	PayType               json.Number `json:"pay_type"`
	PayTime               string      `json:"pay_time"`
	SourceType            json.Number `json:"source_type"`
	OrderStatus           string      `json:"order_status"`
	TradeNo               string      `json:"trade_no"`
	MerchantID            string      `json:"merchant_id"`
	StoreID               json.Number `json:"store_id"`
	AgentID               json.Number `json:"agent_id"`
	AgentName             string      `json:"agent_name"`
	CommissionSettledType json.Number `json:"commission_settled_type"`
	UserID                string      `json:"user_id"`
	Username              string      `json:"username"`
	Nickname              string      `json:"nickname"`
	MerchantNo            string      `json:"merchant_no"`
}

type OrderDistribute struct {
	OrderID             string                       `json:"order_id"`
	BuyerID             json.Number                  `json:"buyer_id"`
	BuyerName           string                       `json:"buyer_name"`
	SellerID            json.Number                  `json:"seller_id"`
	SellerName          string                       `json:"seller_name"`
	ServiceProviderID   json.Number                  `json:"service_provider_id"`
	ServiceProviderName string                       `json:"service_provider_name"`
	Products            []OrderProductDistributeData `json:"OrderProductDistributeData"`
}

type OrderProductDistributeData struct {
	ScenicID                 json.Number `json:"scenic_id"`
	ScenicName               string      `json:"scenic_name"`
	DistributorTicketStockID json.Number `json:"distributor_ticket_stock_id"`
	BatchID                  string      `json:"batch_id"`
	TicketType               json.Number `json:"ticket_type"`
	DayBegin                 string      `json:"day_begin"`
	DayEnd                   string      `json:"day_end"`
	TimeShare                string      `json:"time_share"`
	UsableNum                json.Number `json:"usable_num"`
	OrderProductID           json.Number `json:"order_product_id"`
	OrderID                  string      `json:"order_id"`
	ProductID                json.Number `json:"product_id"`
	ProductName              string      `json:"product_name"`
	ProductSkuID             json.Number `json:"product_sku_id"`
	ProductSkuName           string      `json:"product_sku_name"`
	ProductPrice             json.Number `json:"product_price"`
	Num                      json.Number `json:"num"`
	ProductType              json.Number `json:"product_type"`
	AvailableRatio           string      `json:"available_ratio"`
	ExchangeFreezeNum        string      `json:"exchange_freeze_num"`
	AvailableTotalNum        string      `json:"available_total_num"`
}

// DistributeRefundInfo is the business-to-business refund payload of Distribution.
type DistributeRefundInfo struct {
	OrderRefundGroup        []OrderRefundGroup        `json:"orderRefundGroup"`
	OrderRefund             []OrderRefund             `json:"orderRefund"`
	RefundProductDistribute []RefundProductDistribute `json:"orderRefundProductDistribute"`
}

type OrderRefundGroup struct {
	OrderRefundGroupID string `json:"order_refund_group_id"`
	OrderGroupID       string `json:"order_group_id"`
	OrderRefundID      string `json:"order_refund_id"`
	CreateTime         string `json:"create_time"`
}

type OrderRefund struct {
	RefundID                string      `json:"refund_id"`
	OrderID                 string      `json:"order_id"`
	RefundAmount            json.Number `json:"refund_amount"`
	RefundFee               json.Number `json:"refund_fee"`
	RefundStatus            string      `json:"refund_status"`
	RefundType              string      `json:"refund_type"`
	TradeNo                 string      `json:"trade_no"`
	RefundTime              string      `json:"refund_time"`
	CreateTime              string      `json:"create_time"`
	Remark                  string      `json:"remark"`
	FailMessage             string      `json:"fail_message"`
	UserID                  string      `json:"user_id"`
	Username                string      `json:"username"`
	CommissionSettledStatus string      `json:"commission_settled_status"`
	StockCertificate        string      `json:"stock_certificate"`
	ProductSkuName          string      `json:"product_sku_name"`
}

type RefundProductDistribute struct {
	RefundID                string      `json:"refund_id"`
	OrderProductID          string      `json:"order_product_id"`
	Num                     json.Number `json:"num"`
	ProductID               string      `json:"product_id"`
	ProductName             string      `json:"product_name"`
	ProductSkuID            string      `json:"product_sku_id"`
	ProductType             string      `json:"product_type"`
	ProductPrice            string      `json:"product_price"`
	DayBegin                string      `json:"day_begin"`
	DayEnd                  string      `json:"day_end"`
	TimeShareID             string      `json:"time_share_id"`
	TimeShare               string      `json:"time_share"`
	ScenicID                string      `json:"scenic_id"`
	ScenicName              string      `json:"scenic_name"`
	BatchID                 string      `json:"batch_id"`
	DistributeTicketStockID string      `json:"distribute_ticket_stock_id"`
}

// OrderRefundInfoToC is the consumer refund payload of StoreRefund.
type OrderRefundInfoToC struct {
	RefundInfo    RefundInfoToC            `json:"refundInfoToC"`
	RefundTickets []RefundProductTicketToC `json:"refundProductTicketToC"`
}

type RefundInfoToC struct {
	RefundID                string      `json:"refund_id"`
	OrderGroupID            string      `json:"order_group_id"`
	OrderID                 string      `json:"order_id"`
	RefundAmount            json.Number `json:"refund_amount"`
	RefundFee               json.Number `json:"refund_fee"`
	RefundStatus            string      `json:"refund_status"`
	RefundType              json.Number `json:"refund_type"`
	TradeNo                 string      `json:"trade_no"`
	RefundTime              string      `json:"refund_time"`
	Remark                  string      `json:"remark"`
	FailMessage             string      `json:"fail_message"`
	CommissionSettledStatus json.Number `json:"commission_settled_status"`
	StockCertificate        string      `json:"stock_certificate"`
	ProductSkuName          string      `json:"product_sku_name"`
	UserID                  json.Number `json:"user_id"`
	Username                string      `json:"username"`
	BillStatus              json.Number `json:"bill_status"`
}

type RefundProductTicketToC struct {
	RefundID       string           `json:"refund_id"`
	OrderProductID json.Number      `json:"order_product_id"`
	TicketNumber   string           `json:"ticket_number"`
	ProductID      json.Number      `json:"product_id"`
	ProductName    string           `json:"product_name"`
	ProductSkuID   json.Number      `json:"product_sku_id"`
	ProductType    json.Number      `json:"product_type"`
	TicketType     json.Number      `json:"ticket_type"`
	Day            string           `json:"day"`
	Name           string           `json:"name"`
	Identity       string           `json:"identity"`
	SourceType     json.Number      `json:"source_type"`
	RefundAmount   string           `json:"refund_amount"`
	RefundFee      string           `json:"refund_fee"`
	RefundNum      json.Number      `json:"refund_num"`
	StockBatchInfo []StockBatchInfo `json:"stock_batch_info"`
}

// StockBatchInfo cites the origin token and amount a refund restores.
type StockBatchInfo struct {
	StockBatchNumber string      `json:"stock_batch_number"`
	Sender           string      `json:"sender"`
	Amount           json.Number `json:"amount"`
}

// ActiveInfo is one escrow activation request.
type ActiveInfo struct {
	OrderID           string `json:"order_id"`
	BatchID           string `json:"batch_id"`
	TokenID           string `json:"token_id"`
	AvailableTotalNum string `json:"available_total_num"`
	Periods           string `json:"periods"`
	TotalPeriods      string `json:"total_periods"`
	TradeNo           string `json:"trade_no"`
	Amount            string `json:"amount"`
	TotalRepayment    string `json:"total_repayment"`
}

// TransferDetail is one settlement leg of Distribution.
type TransferDetail struct {
	SenderStockID     string        `json:"sender_stock_id"`
	ReceiveStockID    string        `json:"receive_stock_id"`
	Sender            string        `json:"sender"`
	Receive           string        `json:"receive"`
	Amount            domain.Amount `json:"amount"`
	AvailableRatio    string        `json:"available_ratio"`
	AvailableTotalNum string        `json:"available_total_num"`
}

// NewOrderInfo returns the canonical StoreOrder payload shape.
func NewOrderInfo() OrderInfo {
	return OrderInfo{
		OrderTab: []OrderTab{{
			OrderProductTicket: []OrderProductTicketData{{
				TicketRn: []OrderProductTicketRnData{{}},
			}},
		}},
	}
}

// NewDistributionOrderInfo returns the canonical purchase payload shape.
func NewDistributionOrderInfo() DistributionOrderInfo {
	return DistributionOrderInfo{
		OrderTabToB: []OrderTabToB{{}},
		Distribute: []OrderDistribute{{
			Products: []OrderProductDistributeData{{}},
		}},
	}
}

// NewDistributeRefundInfo returns the canonical refund payload shape.
func NewDistributeRefundInfo() DistributeRefundInfo {
	return DistributeRefundInfo{
		OrderRefundGroup:        []OrderRefundGroup{{}},
		OrderRefund:             []OrderRefund{{}},
		RefundProductDistribute: []RefundProductDistribute{{}},
	}
}

// NewOrderRefundInfoToC returns the canonical StoreRefund payload shape.
func NewOrderRefundInfoToC() OrderRefundInfoToC {
	return OrderRefundInfoToC{
		RefundTickets: []RefundProductTicketToC{{
			StockBatchInfo: []StockBatchInfo{{}},
		}},
	}
}
