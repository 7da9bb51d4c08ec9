package models

import "encoding/json"

// TicketInfo is the slot of a ticket token. Field order follows the
// canonical template order.
type TicketInfo struct {
	AdditionalInformation AdditionalInformation `json:"AdditionalInformation"`
	BasicInformation      BasicInformation      `json:"BasicInformation"`
}

type AdditionalInformation struct {
	PriceInfo       []PriceInfo      `json:"PriceInfo"`
	TicketCheckData []map[string]any `json:"TicketCheckData"`
	TicketData      TicketData       `json:"TicketData"`
}

type PriceInfo struct {
	PriceDetailedInfo PriceDetailedInfo `json:"PriceDetailedInfo"`
	DistributorID     string            `json:"distributor_id"`
	GoodsID           string            `json:"goods_id"`
}

type PriceDetailedInfo struct {
	CommissionRate json.Number `json:"commission_rate"`
	ComposePrice   json.Number `json:"compose_price"`
	Group          []string    `json:"group"`
	IsCompose      bool        `json:"is_compose"`
	PriceID        string      `json:"price_id"`
	SalePrice      json.Number `json:"sale_price"`
}

type TicketData struct {
	BuyerInfo      []BuyerInfo `json:"BuyerInfo"`
	CancelCount    json.Number `json:"cancel_count"`
	CheckedNum     json.Number `json:"checked_num"`
	EnterBeginTime string      `json:"enter_begin_time"`
	EnterEndTime   string      `json:"enter_end_time"`
	EnterTime      string      `json:"enter_time"`
	IssuanceType   json.Number `json:"issuance_type"`
	OrderGroupID   string      `json:"order_group_id"`
	OrderID        string      `json:"order_id"`
	OverdueTime    string      `json:"overdue_time"`
	Phone          string      `json:"phone"`
	PlayerNum      json.Number `json:"player_num"`
	PrintEncode    string      `json:"print_encode"`
	ProviderID     string      `json:"provider_id"`
	SaleChannel    json.Number `json:"sale_channel"`
	SellingPrice   json.Number `json:"selling_price"`
	Status         json.Number `json:"status"`
	StoreID        string      `json:"store_id"`
	TicketID       string      `json:"ticket_id"`
	UsedCount      json.Number `json:"used_count"`
	UsedDays       json.Number `json:"used_days"`
}

type BuyerInfo struct {
	BuyerInfoIDName string `json:"buyerInfo_id_name"`
	IDNumber        string `json:"id_number"`
}

type BasicInformation struct {
	SimpleTicket SimpleTicket `json:"SimpleTicket"`
	IsExchange   json.Number  `json:"is_exchange"`
}

type SimpleTicket struct {
	TicketStock   TicketStock   `json:"TicketStock"`
	AvailableDays json.Number   `json:"available_days"`
	IsActivate    json.Number   `json:"is_activate"`
	MarketPrice   json.Number   `json:"market_price"`
	OperatorID    string        `json:"operator_id"`
	ParkStatistic json.Number   `json:"park_statistic"`
	ProType       json.Number   `json:"pro_type"`
	RestrictType  json.Number   `json:"restrict_type"`
	RestrictWeek  string        `json:"restrict_week"`
	ScenicID      string        `json:"scenic_id"`
	ScenicName    string        `json:"scenic_name"`
	SimpleName    string        `json:"simple_name"`
	TicketGoods   []TicketGoods `json:"ticketGoods"`
	TimeSharing   []TimeSharing `json:"timeSharing"`
	TimeRestrict  json.Number   `json:"time_restrict"`
	UseCount      json.Number   `json:"use_count"`
	UseType       json.Number   `json:"use_type"`
	ValidityDay   json.Number   `json:"validity_day"`
}

type TicketStock struct {
	AccountID           string      `json:"account_id"`
	BatchID             string      `json:"batch_id"`
	Nums                json.Number `json:"nums"`
	PurchaseBeginTime   string      `json:"purchase_begin_time"`
	PurchaseEndTime     string      `json:"purchase_end_time"`
	StockEnterBeginTime string      `json:"stock_enter_begin_time"`
	StockEnterEndTime   string      `json:"stock_enter_end_time"`
	StockOperatorID     string      `json:"stock_operator_id"`
	StockScenicID       string      `json:"stock_scenic_id"`
	StockScenicName     string      `json:"stock_scenic_name"`
	StockTicketID       string      `json:"stock_ticket_id"`
	TicketName          string      `json:"ticket_name"`
	TicketType          json.Number `json:"ticket_type"`
	TotalStock          json.Number `json:"total_stock"`
}

type TicketGoods struct {
	RuleCheck       RuleCheck   `json:"RuleCheck"`
	RuleIssue       RuleIssue   `json:"RuleIssue"`
	RuleRetreat     RuleRetreat `json:"RuleRetreat"`
	BeginDiscount   json.Number `json:"begin_discount"`
	EndDiscount     json.Number `json:"end_discount"`
	GoodsName       string      `json:"goods_name"`
	MaxPeople       json.Number `json:"max_people"`
	MinPeople       json.Number `json:"min_people"`
	OverallDiscount json.Number `json:"overall_discount"`
	PeopleNumber    json.Number `json:"people_number"`
	TicketGoodsID   string      `json:"ticketGoods_id"`
	TicketGoodsType json.Number `json:"ticketGoods_type"`
	TimeShareID     string      `json:"time_share_id"`
}

type RuleCheck struct {
	AdoptType     json.Number `json:"adopt_type"`
	CheckPointIDs []string    `json:"check_point_ids"`
	ControlType   json.Number `json:"control_type"`
	IdentityType  string      `json:"identity_type"`
	IntervalTime  json.Number `json:"interval_time"`
	RuleCheckName string      `json:"ruleCheck_name"`
	TimeShareBook json.Number `json:"time_share_book"`
}

type RuleIssue struct {
	ApproveContent     string      `json:"approve_content"`
	ApproveID          string      `json:"approve_id"`
	IsRealName         json.Number `json:"is_real_name"`
	NeedApproval       json.Number `json:"need_approval"`
	OnlyOwnerBuy       json.Number `json:"only_owner_buy"`
	OnlyWindowSale     json.Number `json:"only_window_sale"`
	RealNameCheck      json.Number `json:"real_name_check"`
	RightsCheck        json.Number `json:"rights_check"`
	RightsID           string      `json:"rights_id"`
	RuleIssueBeginTime string      `json:"ruleIssue_begin_time"`
	RuleIssueEndTime   string      `json:"ruleIssue_end_time"`
	RuleIssueName      string      `json:"ruleIssue_name"`
	RuleIssueType      json.Number `json:"ruleIssue_type"`
	RuleIssueWay       json.Number `json:"ruleIssue_way"`
	RuleType           json.Number `json:"rule_type"`
	UseTime            string      `json:"use_time"`
}

type RuleRetreat struct {
	DefaultRate     json.Number `json:"default_rate"`
	IsRetreat       json.Number `json:"is_retreat"`
	RuleRetreatName string      `json:"ruleRetreat_name"`
}

type TimeSharing struct {
	TimeSharingBeginTime string `json:"timeSharing_begin_time"`
	TimeSharingEndTime   string `json:"timeSharing_end_time"`
	TimeSharingID        string `json:"timeSharing_id"`
}

// TicketCheck is one check-in record.
type TicketCheck struct {
	Account          string      `json:"account"`
	CheckNumber      json.Number `json:"check_number"`
	CheckType        json.Number `json:"check_type"`
	EnterTime        string      `json:"enter_time"`
	EquipmentID      string      `json:"equipment_id"`
	EquipmentName    string      `json:"equipment_name"`
	EquipmentType    string      `json:"equipment_type"`
	IDCard           string      `json:"id_card"`
	IDName           string      `json:"id_name"`
	Org              string      `json:"org"`
	PointID          string      `json:"point_id"`
	PointName        string      `json:"point_name"`
	QRCode           string      `json:"qr_code"`
	ScenicID         string      `json:"scenic_id"`
	StockBatchNumber string      `json:"stock_batch_number"`
	TicketNumber     string      `json:"ticket_number"`
	UserID           string      `json:"user_id"`
	Username         string      `json:"username"`
}

// NewTicketInfo returns the canonical slot shape: one element per list and
// zero values everywhere else.
func NewTicketInfo() TicketInfo {
	return TicketInfo{
		AdditionalInformation: AdditionalInformation{
			PriceInfo: []PriceInfo{{
				PriceDetailedInfo: PriceDetailedInfo{Group: []string{""}, IsCompose: true},
			}},
			TicketCheckData: []map[string]any{{}},
			TicketData:      NewTicketData(),
		},
		BasicInformation: BasicInformation{
			SimpleTicket: SimpleTicket{
				TicketGoods: []TicketGoods{{
					RuleCheck: RuleCheck{CheckPointIDs: []string{""}},
				}},
				TimeSharing: []TimeSharing{{}},
			},
		},
	}
}

// NewTicketData returns the canonical ticket data shape.
func NewTicketData() TicketData {
	return TicketData{BuyerInfo: []BuyerInfo{{}}}
}

// TicketUpdate carries the amendable parts of a slot. BuyerInfo is keyed by
// id_number, TicketCheckData by ticket_number.
type TicketUpdate struct {
	TicketData      map[string]any            `json:"TicketData"`
	PriceInfo       []any                     `json:"PriceInfo"`
	TicketCheckData map[string]map[string]any `json:"TicketCheckData"`
}

// VerifyStatus is the ticket state reported by a check-in device.
type VerifyStatus struct {
	CheckedNum json.Number `json:"checked_num"`
	Status     json.Number `json:"status"`
	TicketID   string      `json:"ticket_id"`
	UsedCount  json.Number `json:"used_count"`
	UsedDays   json.Number `json:"used_days"`
}

// Verification is one VerifyTicket entry: the new ticket state plus the
// check-in record to append.
type Verification struct {
	VerifyInfo   TicketCheck  `json:"VerifyInfo"`
	VerifyStatus VerifyStatus `json:"VerifyStatus"`
}

// TicketStatusUpdate is one TimerUpdateTickets entry.
type TicketStatusUpdate struct {
	Status   json.Number `json:"status"`
	TicketID string      `json:"ticket_id"`
}

// PriceStrategy is the UpdatePriceInfo payload. It mirrors PriceInfo except
// that the group is split into the ids to set, add and remove.
type PriceStrategy struct {
	PriceDetailedInfo PriceStrategyDetail `json:"PriceDetailedInfo"`
	DistributorID     string              `json:"distributor_id"`
	GoodsID           string              `json:"goods_id"`
}

type PriceStrategyDetail struct {
	CommissionRate json.Number `json:"commission_rate"`
	ComposePrice   json.Number `json:"compose_price"`
	Group          PriceGroups `json:"group"`
	IsCompose      bool        `json:"is_compose"`
	PriceID        string      `json:"price_id"`
	SalePrice      json.Number `json:"sale_price"`
}

type PriceGroups struct {
	AddGroupID []string `json:"add_group_id"`
	DelGroupID []string `json:"del_group_id"`
	GroupID    []string `json:"group_id"`
}

// NewPriceStrategy returns the canonical UpdatePriceInfo payload shape.
func NewPriceStrategy() PriceStrategy {
	return PriceStrategy{
		PriceDetailedInfo: PriceStrategyDetail{
			Group: PriceGroups{
				AddGroupID: []string{""},
				DelGroupID: []string{""},
				GroupID:    []string{""},
			},
			IsCompose: true,
		},
	}
}

// Detail returns the stored price detail with group as its group list.
func (p PriceStrategyDetail) Detail(group []string) PriceDetailedInfo {
	if group == nil {
		group = []string{}
	}
	return PriceDetailedInfo{
		CommissionRate: p.CommissionRate,
		ComposePrice:   p.ComposePrice,
		Group:          group,
		IsCompose:      p.IsCompose,
		PriceID:        p.PriceID,
		SalePrice:      p.SalePrice,
	}
}

// StockTimes are the sale and entry windows of a stock batch.
type StockTimes struct {
	PurchaseBeginTime   string `json:"purchase_begin_time"`
	PurchaseEndTime     string `json:"purchase_end_time"`
	StockEnterBeginTime string `json:"stock_enter_begin_time"`
	StockEnterEndTime   string `json:"stock_enter_end_time"`
}

// Apply copies the windows into stock.
func (st StockTimes) Apply(stock *TicketStock) {
	stock.PurchaseBeginTime = st.PurchaseBeginTime
	stock.PurchaseEndTime = st.PurchaseEndTime
	stock.StockEnterBeginTime = st.StockEnterBeginTime
	stock.StockEnterEndTime = st.StockEnterEndTime
}
