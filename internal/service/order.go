package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/identity"
	"github.com/anziyang2000/hq-code-sub003/internal/models"
	"github.com/anziyang2000/hq-code-sub003/internal/schema"
)

// ticketEvent is the record carried by order, refund and distribution
// events.
type ticketEvent struct {
	MethodName    string      `json:"method_name"`
	SenderID      string      `json:"sender_id"`
	ReceiverID    string      `json:"receiver_id"`
	OrderID       string      `json:"order_id,omitempty"`
	RefundOrderID string      `json:"refund_order_id,omitempty"`
	TokenID       string      `json:"token_id"`
	StockID       string      `json:"stock_id,omitempty"`
	TicketStatus  json.Number `json:"ticket_status"`
	TriggerTime   int64       `json:"trigger_time"`
}

// StoreOrder records a consumer order group once and emits one record per
// ticket line.
func (s *ContractService) StoreOrder(ctx context.Context, caller identity.Caller, payload json.RawMessage, triggerTime json.Number) error {
	return s.invoke(ctx, "StoreOrder", caller, writeGuard, func(c *call) error {
		ts, err := parseTriggerTime(triggerTime)
		if err != nil {
			return err
		}
		obj, err := schema.DecodeObject(payload, "order data")
		if err != nil {
			return err
		}
		if err := schema.ValidateStructure(obj, schema.OrderInfo); err != nil {
			return err
		}
		var order models.OrderInfo
		if err := schema.Into(obj, &order); err != nil {
			return err
		}
		if len(order.OrderTab) == 0 {
			return domain.Errorf(domain.CodeNotFound, "OrderTab must be a non-empty array")
		}
		if err := requireFields("order_group_id", order.OrderGroupID); err != nil {
			return err
		}
		if err := claimOrder(c, order.OrderGroupID, payload); err != nil {
			return err
		}

		var records []ticketEvent
		for _, tab := range order.OrderTab {
			for _, product := range tab.OrderProductTicket {
				for _, rn := range product.TicketRn {
					if err := requireFields(
						"seller_id", tab.SellerID.String(),
						"user_id", tab.UserID,
						"ticket_number", rn.TicketNumber,
						"ticket_status", rn.TicketStatus.String(),
					); err != nil {
						return err
					}
					records = append(records, ticketEvent{
						MethodName:   domain.EventStoreOrder,
						SenderID:     tab.SellerID.String(),
						ReceiverID:   tab.UserID,
						OrderID:      order.OrderGroupID,
						TokenID:      rn.TicketNumber,
						TicketStatus: rn.TicketStatus,
						TriggerTime:  ts,
					})
				}
			}
		}
		return c.emit(domain.EventStoreOrder, records)
	})
}

// StoreRefund records a consumer refund once, returns each cited amount to
// its origin token and retires the refunded tickets.
func (s *ContractService) StoreRefund(ctx context.Context, caller identity.Caller, payload json.RawMessage, triggerTime json.Number) error {
	return s.invoke(ctx, "StoreRefund", caller, writeGuard, func(c *call) error {
		ts, err := parseTriggerTime(triggerTime)
		if err != nil {
			return err
		}
		obj, err := schema.DecodeObject(payload, "refund data")
		if err != nil {
			return err
		}
		if err := schema.ValidateStructure(obj, schema.OrderRefundInfoToC); err != nil {
			return err
		}
		var refund models.OrderRefundInfoToC
		if err := schema.Into(obj, &refund); err != nil {
			return err
		}
		if len(refund.RefundTickets) == 0 {
			return domain.Errorf(domain.CodeNotFound, "refundProductTicketToC must be a non-empty array")
		}
		info := refund.RefundInfo
		if err := requireFields("refund_id", info.RefundID); err != nil {
			return err
		}
		if err := claimOrder(c, info.RefundID, payload); err != nil {
			return err
		}

		var order models.OrderInfo
		if err := readOrderInto(c, info.OrderGroupID, &order); err != nil {
			return err
		}
		var tab *models.OrderTab
		for i := range order.OrderTab {
			if order.OrderTab[i].OrderID == info.OrderID {
				tab = &order.OrderTab[i]
				break
			}
		}
		// A refund whose order is not in the group still restores balances;
		// it only has no parties to report.
		if tab != nil {
			if err := requireFields("seller_id", tab.SellerID.String(), "user_id", tab.UserID); err != nil {
				return err
			}
		}

		reset, err := refundedTicketData()
		if err != nil {
			return err
		}

		records := []ticketEvent{}
		for _, rt := range refund.RefundTickets {
			if err := requireFields("ticket_number", rt.TicketNumber); err != nil {
				return err
			}
			if len(rt.StockBatchInfo) == 0 {
				return domain.Errorf(domain.CodeNotFound, "stock_batch_info of ticket %s must be a non-empty array", rt.TicketNumber)
			}
			ticket, err := readToken(c, rt.TicketNumber)
			if err != nil {
				return err
			}
			ticket.Slot.AdditionalInformation.TicketData = reset
			ticket.Slot.AdditionalInformation.TicketCheckData = []map[string]any{}

			var restored int64
			for _, sb := range rt.StockBatchInfo {
				if err := requireFields("stock_batch_number", sb.StockBatchNumber, "sender", sb.Sender, "amount", sb.Amount.String()); err != nil {
					return err
				}
				if sb.StockBatchNumber == rt.TicketNumber {
					return domain.Errorf(domain.CodeConflict, "ticket %s cannot be refunded into itself", rt.TicketNumber)
				}
				amount, err := domain.ParseAmount(sb.Amount.String())
				if err != nil {
					return err
				}
				origin, err := readToken(c, sb.StockBatchNumber)
				if err != nil {
					return err
				}
				if origin.Owner != sb.Sender {
					return domain.Errorf(domain.CodeNotOwner, "owner of stock %s is not %s", sb.StockBatchNumber, sb.Sender)
				}
				entry := ticket.ProvenanceFor(sb.StockBatchNumber)
				if entry == nil {
					return domain.Errorf(domain.CodeNotExist, "stock batch %s not found in ticket %s", sb.StockBatchNumber, rt.TicketNumber)
				}
				if entry.Amount < amount {
					return domain.Errorf(domain.CodeNumberError, "insufficient amount in stock batch %s for ticket %s", sb.StockBatchNumber, rt.TicketNumber)
				}
				entry.Amount -= amount
				if origin.Balance, err = domain.AddQuantity(origin.Balance, amount); err != nil {
					return err
				}
				if origin.TotalBalance, err = domain.AddQuantity(origin.TotalBalance, amount); err != nil {
					return err
				}
				if restored, err = domain.AddQuantity(restored, amount); err != nil {
					return err
				}
				if err := stageToken(c, origin); err != nil {
					return err
				}

				if tab == nil {
					continue
				}
				records = append(records, ticketEvent{
					MethodName:    domain.EventStoreRefund,
					SenderID:      tab.UserID,
					ReceiverID:    tab.SellerID.String(),
					RefundOrderID: info.RefundID,
					TokenID:       rt.TicketNumber,
					StockID:       sb.StockBatchNumber,
					TicketStatus:  reset.Status,
					TriggerTime:   ts,
				})
			}

			if ticket.Balance < restored {
				return domain.Errorf(domain.CodeNumberError, "insufficient balance for ticket %s", rt.TicketNumber)
			}
			if ticket.TotalBalance < restored {
				return domain.Errorf(domain.CodeNumberError, "insufficient total_balance for ticket %s", rt.TicketNumber)
			}
			ticket.Balance -= restored
			ticket.TotalBalance -= restored
			if err := stageToken(c, ticket); err != nil {
				return err
			}
		}
		return c.emit(domain.EventStoreRefund, records)
	})
}

// refundedTicketData is the canonical ticket data with the refunded status.
func refundedTicketData() (models.TicketData, error) {
	var td models.TicketData
	v := schema.Normalize(schema.TicketData, map[string]any{
		"status": json.Number(strconv.Itoa(domain.TicketStatusRefunded)),
	})
	if err := schema.Into(v, &td); err != nil {
		return td, err
	}
	return td, nil
}

type DistributionRequest struct {
	TransferDetails json.RawMessage `json:"transfer_details"`
	OrderData       json.RawMessage `json:"order_data"`
	OrderType       string          `json:"order_type"`
	TriggerTime     json.Number     `json:"trigger_time"`
	RequestID       string          `json:"request_id,omitempty"`
}

// Distribution settles a business order: it records the order (or each
// refund) and applies every transfer leg. Any failing leg aborts the whole
// call.
func (s *ContractService) Distribution(ctx context.Context, caller identity.Caller, req DistributionRequest) error {
	ctx = WithRequestID(ctx, req.RequestID)
	return s.invoke(ctx, "Distribution", caller, writeGuard, func(c *call) error {
		if err := requireFields("order_type", req.OrderType); err != nil {
			return err
		}
		ts, err := parseTriggerTime(req.TriggerTime)
		if err != nil {
			return err
		}
		obj, err := schema.DecodeObject(req.OrderData, "order data")
		if err != nil {
			return err
		}

		var (
			purchase models.DistributionOrderInfo
			refund   models.DistributeRefundInfo
		)
		switch req.OrderType {
		case domain.OrderTypePurchase:
			if err := schema.ValidateStructure(obj, schema.DistributionOrderInfo); err != nil {
				return err
			}
			if err := schema.Into(obj, &purchase); err != nil {
				return err
			}
			if err := requireFields("order_group_id", purchase.OrderGroupID); err != nil {
				return err
			}
			if err := claimOrder(c, purchase.OrderGroupID, req.OrderData); err != nil {
				return err
			}
		case domain.OrderTypeRefund:
			if err := schema.ValidateStructure(obj, schema.DistributeRefundInfo); err != nil {
				return err
			}
			if err := schema.Into(obj, &refund); err != nil {
				return err
			}
			if len(refund.OrderRefund) == 0 {
				return domain.Errorf(domain.CodeNotFound, "orderRefund must be a non-empty array")
			}
			for _, r := range refund.OrderRefund {
				if err := requireFields("refund_id", r.RefundID); err != nil {
					return err
				}
				if err := claimOrder(c, r.RefundID, req.OrderData); err != nil {
					return err
				}
			}
		default:
			return domain.Errorf(domain.CodeTypeMismatch, "order type %q is not %s or %s",
				req.OrderType, domain.OrderTypePurchase, domain.OrderTypeRefund)
		}

		details, err := decodeTransferDetails(req.TransferDetails)
		if err != nil {
			return err
		}

		var orderRecords, refundRecords []ticketEvent
		for _, d := range details {
			if err := requireFields("receive_stock_id", d.ReceiveStockID, "receive", d.Receive); err != nil {
				return err
			}
			amount := d.Amount.Int64()
			if amount == 0 {
				return domain.Errorf(domain.CodeNotFound, "amount is required")
			}
			out, err := applySplit(c, splitLeg{
				source:          d.SenderStockID,
				dest:            d.ReceiveStockID,
				sender:          d.Sender,
				receiver:        d.Receive,
				amount:          amount,
				totalDeduction:  amount,
				ratio:           d.AvailableRatio,
				expectAvailable: d.AvailableTotalNum,
			})
			if err != nil {
				return err
			}

			if req.OrderType == domain.OrderTypePurchase {
				for _, dist := range purchase.Distribute {
					orderRecords = append(orderRecords, ticketEvent{
						MethodName:   domain.EventDistributionOrder,
						SenderID:     dist.SellerID.String(),
						ReceiverID:   dist.BuyerID.String(),
						OrderID:      purchase.OrderGroupID,
						TokenID:      d.ReceiveStockID,
						StockID:      d.SenderStockID,
						TicketStatus: out.status,
						TriggerTime:  ts,
					})
				}
				continue
			}
			recs, err := refundLegRecords(c, refund, d, out.status, ts)
			if err != nil {
				return err
			}
			refundRecords = append(refundRecords, recs...)
		}

		if len(orderRecords) > 0 {
			if err := c.emit(domain.EventDistributionOrder, orderRecords); err != nil {
				return err
			}
		}
		if len(refundRecords) > 0 {
			if err := c.emit(domain.EventDistributionRefund, refundRecords); err != nil {
				return err
			}
		}
		return nil
	})
}

// refundLegRecords resolves the business parties of a refund leg through
// the purchase order each refund belongs to.
func refundLegRecords(c *call, refund models.DistributeRefundInfo, d models.TransferDetail, status json.Number, ts int64) ([]ticketEvent, error) {
	var out []ticketEvent
	for _, r := range refund.OrderRefund {
		for _, group := range refund.OrderRefundGroup {
			if group.OrderRefundID != r.RefundID {
				continue
			}
			var order models.DistributionOrderInfo
			if err := readOrderInto(c, group.OrderGroupID, &order); err != nil {
				return nil, err
			}
			for _, tab := range order.OrderTabToB {
				if tab.OrderID != r.OrderID {
					continue
				}
				if err := requireFields("seller_id", tab.SellerID.String(), "user_id", tab.UserID); err != nil {
					return nil, err
				}
				out = append(out, ticketEvent{
					MethodName:    domain.EventDistributionRefund,
					SenderID:      tab.UserID,
					ReceiverID:    tab.SellerID.String(),
					RefundOrderID: r.RefundID,
					TokenID:       d.SenderStockID,
					StockID:       d.ReceiveStockID,
					TicketStatus:  status,
					TriggerTime:   ts,
				})
				break
			}
			break
		}
	}
	return out, nil
}

func decodeTransferDetails(raw json.RawMessage) ([]models.TransferDetail, error) {
	list, err := schema.DecodeArray(raw, "transfer details")
	if err != nil {
		return nil, err
	}
	var details []models.TransferDetail
	if err := schema.Into(list, &details); err != nil {
		return nil, err
	}
	return details, nil
}

// ActivateTickets releases one repayment period of escrowed balance per
// activation. All activations commit together.
func (s *ContractService) ActivateTickets(ctx context.Context, caller identity.Caller, activations json.RawMessage, triggerTime json.Number) error {
	return s.invoke(ctx, "ActivateTickets", caller, writeGuard, func(c *call) error {
		ts, err := parseTriggerTime(triggerTime)
		if err != nil {
			return err
		}
		list, err := schema.DecodeArray(activations, "activations")
		if err != nil {
			return err
		}

		records := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if err := schema.ValidateStructure(item, schema.ActiveInfo); err != nil {
				return err
			}
			var info models.ActiveInfo
			if err := schema.Into(item, &info); err != nil {
				return err
			}
			if err := activate(c, info); err != nil {
				return err
			}
			records = append(records, map[string]any{
				"method_name":         domain.EventActivateTickets,
				"order_id":            info.OrderID,
				"batch_id":            info.BatchID,
				"token_id":            info.TokenID,
				"available_total_num": info.AvailableTotalNum,
				"periods":             info.Periods,
				"total_periods":       info.TotalPeriods,
				"trade_no":            info.TradeNo,
				"amount":              info.Amount,
				"total_repayment":     info.TotalRepayment,
				"trigger_time":        ts,
			})
		}
		return c.emit(domain.EventActivateTickets, records)
	})
}

func activate(c *call, info models.ActiveInfo) error {
	if err := requireFields(
		"order_id", info.OrderID,
		"batch_id", info.BatchID,
		"token_id", info.TokenID,
		"available_total_num", info.AvailableTotalNum,
		"periods", info.Periods,
		"total_periods", info.TotalPeriods,
		"trade_no", info.TradeNo,
		"amount", info.Amount,
		"total_repayment", info.TotalRepayment,
	); err != nil {
		return err
	}
	totalPeriods, err := domain.ParsePositive(info.TotalPeriods)
	if err != nil {
		return err
	}
	periods, err := domain.ParsePositive(info.Periods)
	if err != nil {
		return err
	}
	if periods > totalPeriods {
		return domain.Errorf(domain.CodeNumberError, "periods %d exceeds total_periods %d", periods, totalPeriods)
	}
	expect, err := domain.ParseAmount(info.AvailableTotalNum)
	if err != nil {
		return err
	}

	used, err := c.txn.Exists(c.ctx, domain.TradeKey(info.TradeNo))
	if err != nil {
		return err
	}
	if used {
		return domain.Errorf(domain.CodeConflict, "trade %s has already been used", info.TradeNo)
	}
	if err := c.txn.PutJSON(domain.TradeKey(info.TradeNo), info); err != nil {
		return err
	}

	var order models.DistributionOrderInfo
	if err := readOrderInto(c, info.OrderID, &order); err != nil {
		return err
	}
	var batch *models.OrderProductDistributeData
	for i := range order.Distribute {
		for j := range order.Distribute[i].Products {
			if order.Distribute[i].Products[j].BatchID == info.BatchID {
				batch = &order.Distribute[i].Products[j]
				break
			}
		}
		if batch != nil {
			break
		}
	}
	if batch == nil {
		return domain.Errorf(domain.CodeNotExist, "batch %s not found in order %s", info.BatchID, info.OrderID)
	}
	num, err := decimal.NewFromString(batch.Num.String())
	if err != nil || num.IsNegative() {
		return domain.Errorf(domain.CodeNumberError, "num of batch %s must be a non-negative number, found %q", info.BatchID, batch.Num)
	}
	ratio, err := domain.ParseUnitRatio(batch.AvailableRatio)
	if err != nil {
		return err
	}

	t, err := readToken(c, info.TokenID)
	if err != nil {
		return err
	}
	if periods == totalPeriods {
		t.Balance = t.TotalBalance
	} else {
		unfreeze, err := domain.UnfreezePerPeriod(num, ratio, totalPeriods)
		if err != nil {
			return err
		}
		if unfreeze > t.TotalBalance-t.Balance {
			return domain.Errorf(domain.CodeNumberError,
				"unfreezing %d would exceed total_balance %d of token %s", unfreeze, t.TotalBalance, info.TokenID)
		}
		t.Balance += unfreeze
	}
	if t.Balance != expect {
		return domain.Errorf(domain.CodeNumberError,
			"updated balance %d does not match available_total_num %d", t.Balance, expect)
	}
	return stageToken(c, t)
}

// ReadOrder returns a stored order or refund record as submitted.
func (s *ContractService) ReadOrder(ctx context.Context, caller identity.Caller, orderID string) (json.RawMessage, error) {
	var out json.RawMessage
	err := s.query(ctx, "ReadOrder", caller, func(c *call) error {
		if err := requireFields("order_id", orderID); err != nil {
			return err
		}
		b, err := c.txn.Get(c.ctx, domain.OrderKey(orderID))
		if err != nil {
			return err
		}
		if len(b) == 0 {
			return domain.Errorf(domain.CodeNotExist, "order %s does not exist", orderID)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// claimOrder fails with Conflict when id is already recorded and stages the
// payload under it otherwise.
func claimOrder(c *call, id string, payload json.RawMessage) error {
	exists, err := c.txn.Exists(c.ctx, domain.OrderKey(id))
	if err != nil {
		return err
	}
	if exists {
		return domain.Errorf(domain.CodeConflict, "order %s is already stored", id)
	}
	stored, err := compactPayload(payload, "order "+id)
	if err != nil {
		return err
	}
	c.txn.Put(domain.OrderKey(id), stored)
	return nil
}

// compactPayload returns payload without insignificant whitespace, ready to
// be stored as submitted.
func compactPayload(payload json.RawMessage, what string) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return nil, domain.Errorf(domain.CodeParseError, "%s: %v", what, err)
	}
	return buf.Bytes(), nil
}

func readOrderInto(c *call, id string, dst any) error {
	if err := requireFields("order id", id); err != nil {
		return err
	}
	found, err := c.txn.GetJSON(c.ctx, domain.OrderKey(id), dst)
	if err != nil {
		return err
	}
	if !found {
		return domain.Errorf(domain.CodeNotExist, "order %s does not exist", id)
	}
	return nil
}
