package service

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/identity"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
	"github.com/anziyang2000/hq-code-sub003/internal/models"
	"github.com/anziyang2000/hq-code-sub003/internal/schema"
)

// statusEvent is the per-ticket record of VerifyTicket, TimerUpdateTickets
// and UpdateIssueTickets.
type statusEvent struct {
	MethodName   string      `json:"method_name"`
	TokenID      string      `json:"token_id"`
	TicketStatus json.Number `json:"ticket_status"`
	TriggerTime  int64       `json:"trigger_time"`
}

// VerifyTicket records check-ins: each entry sets the ticket's status and
// usage counters and appends its check record.
func (s *ContractService) VerifyTicket(ctx context.Context, caller identity.Caller, verifications json.RawMessage, triggerTime json.Number) error {
	return s.invoke(ctx, "VerifyTicket", caller, adminGuard, func(c *call) error {
		ts, err := parseTriggerTime(triggerTime)
		if err != nil {
			return err
		}
		list, err := schema.DecodeArray(verifications, "verifications")
		if err != nil {
			return err
		}

		records := make([]statusEvent, 0, len(list))
		for _, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				return domain.Errorf(domain.CodeTypeMismatch, "verification must be an object")
			}
			if err := schema.ValidateStructure(entry["VerifyStatus"], schema.VerifyStatus); err != nil {
				return err
			}
			var status models.VerifyStatus
			if err := schema.Into(entry["VerifyStatus"], &status); err != nil {
				return err
			}
			if err := requireFields(
				"status", status.Status.String(),
				"checked_num", status.CheckedNum.String(),
				"used_count", status.UsedCount.String(),
				"used_days", status.UsedDays.String(),
			); err != nil {
				return err
			}
			t, err := readToken(c, status.TicketID)
			if err != nil {
				return err
			}

			check, ok := entry["VerifyInfo"].(map[string]any)
			if !ok {
				return domain.Errorf(domain.CodeNotFound, "VerifyInfo of ticket %s is required", status.TicketID)
			}
			if number, _ := check["ticket_number"].(string); number == "" {
				return domain.Errorf(domain.CodeNotFound, "VerifyInfo.ticket_number of ticket %s is required", status.TicketID)
			}
			if err := schema.ValidateStructure(check, schema.TicketCheck); err != nil {
				return err
			}

			addl := &t.Slot.AdditionalInformation
			addl.TicketData.Status = status.Status
			addl.TicketData.CheckedNum = status.CheckedNum
			addl.TicketData.UsedCount = status.UsedCount
			addl.TicketData.UsedDays = status.UsedDays
			addl.TicketCheckData = append(addl.TicketCheckData, schema.Normalize(schema.TicketCheck, check))
			if err := stageToken(c, t); err != nil {
				return err
			}
			records = append(records, statusEvent{
				MethodName:   domain.EventVerifyTicket,
				TokenID:      status.TicketID,
				TicketStatus: status.Status,
				TriggerTime:  ts,
			})
		}
		return c.emit(domain.EventVerifyTicket, records)
	})
}

// TimerUpdateTickets applies scheduled status changes, typically expiry.
func (s *ContractService) TimerUpdateTickets(ctx context.Context, caller identity.Caller, updates json.RawMessage, triggerTime json.Number) error {
	return s.invoke(ctx, "TimerUpdateTickets", caller, adminGuard, func(c *call) error {
		ts, err := parseTriggerTime(triggerTime)
		if err != nil {
			return err
		}
		list, err := schema.DecodeArray(updates, "ticket updates")
		if err != nil {
			return err
		}

		records := make([]statusEvent, 0, len(list))
		for _, item := range list {
			if err := schema.ValidateStructure(item, schema.TicketStatusUpdate); err != nil {
				return err
			}
			var u models.TicketStatusUpdate
			if err := schema.Into(item, &u); err != nil {
				return err
			}
			if err := requireFields("status", u.Status.String()); err != nil {
				return err
			}
			t, err := readToken(c, u.TicketID)
			if err != nil {
				return err
			}
			t.Slot.AdditionalInformation.TicketData.Status = u.Status
			if err := stageToken(c, t); err != nil {
				return err
			}
			records = append(records, statusEvent{
				MethodName:   domain.EventTimerUpdateTickets,
				TokenID:      u.TicketID,
				TicketStatus: u.Status,
				TriggerTime:  ts,
			})
		}
		return c.emit(domain.EventTimerUpdateTickets, records)
	})
}

// UpdateIssueTickets replaces the ticket data of issued tickets. Each entry
// is a full ticket data record addressed by its ticket_id.
func (s *ContractService) UpdateIssueTickets(ctx context.Context, caller identity.Caller, tickets json.RawMessage, triggerTime json.Number) error {
	return s.invoke(ctx, "UpdateIssueTickets", caller, adminGuard, func(c *call) error {
		ts, err := parseTriggerTime(triggerTime)
		if err != nil {
			return err
		}
		list, err := schema.DecodeArray(tickets, "tickets data")
		if err != nil {
			return err
		}

		records := make([]statusEvent, 0, len(list))
		for _, item := range list {
			if err := schema.ValidateStructure(item, schema.TicketData); err != nil {
				return err
			}
			data := item.(map[string]any)
			tokenID, _ := data["ticket_id"].(string)
			t, err := readToken(c, tokenID)
			if err != nil {
				return err
			}
			var td models.TicketData
			if err := schema.Into(schema.Normalize(schema.TicketData, data), &td); err != nil {
				return err
			}
			t.Slot.AdditionalInformation.TicketData = td
			if err := stageToken(c, t); err != nil {
				return err
			}
			records = append(records, statusEvent{
				MethodName:   domain.EventUpdateIssueTickets,
				TokenID:      tokenID,
				TicketStatus: td.Status,
				TriggerTime:  ts,
			})
		}
		return c.emit(domain.EventUpdateIssueTickets, records)
	})
}

// UpdatePriceInfo changes the price strategies of a stock token. kind
// selects adding a distribution price, updating one, or a direct sale.
func (s *ContractService) UpdatePriceInfo(ctx context.Context, caller identity.Caller, tokenID, kind string, fields json.RawMessage, triggerTime json.Number) (*models.Token, error) {
	var token *models.Token
	err := s.invoke(ctx, "UpdatePriceInfo", caller, adminGuard, func(c *call) error {
		if err := requireFields("token_id", tokenID); err != nil {
			return err
		}
		ts, err := parseTriggerTime(triggerTime)
		if err != nil {
			return err
		}
		obj, err := schema.DecodeObject(fields, "updated fields")
		if err != nil {
			return err
		}
		if err := schema.ValidateStructure(obj, schema.PriceStrategy); err != nil {
			return err
		}
		var strategy models.PriceStrategy
		if err := schema.Into(obj, &strategy); err != nil {
			return err
		}
		t, err := readToken(c, tokenID)
		if err != nil {
			return err
		}

		prices := t.Slot.AdditionalInformation.PriceInfo
		switch kind {
		case domain.PriceStrategyAdd:
			prices, err = addPriceStrategy(prices, strategy)
		case domain.PriceStrategyUpdate:
			err = updatePriceStrategy(prices, strategy)
		case domain.PriceStrategyDirect:
			prices = append(prices, models.PriceInfo{
				PriceDetailedInfo: strategy.PriceDetailedInfo.Detail(strategy.PriceDetailedInfo.Group.GroupID),
				DistributorID:     strategy.DistributorID,
				GoodsID:           strategy.GoodsID,
			})
		default:
			err = domain.Errorf(domain.CodeTypeMismatch, "price strategy type %q is not %q, %q or empty",
				kind, domain.PriceStrategyAdd, domain.PriceStrategyUpdate)
		}
		if err != nil {
			return err
		}
		t.Slot.AdditionalInformation.PriceInfo = prices
		if err := stageToken(c, t); err != nil {
			return err
		}
		token = t
		return c.emit(domain.EventUpdatePriceInfo, map[string]any{
			"method_name":  domain.EventUpdatePriceInfo,
			"stock_id":     tokenID,
			"trigger_time": ts,
		})
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func findPrice(prices []models.PriceInfo, priceID string) int {
	return slices.IndexFunc(prices, func(p models.PriceInfo) bool {
		return p.PriceDetailedInfo.PriceID == priceID
	})
}

func addPriceStrategy(prices []models.PriceInfo, strategy models.PriceStrategy) ([]models.PriceInfo, error) {
	detail := strategy.PriceDetailedInfo
	if err := requireFields("price_id", detail.PriceID); err != nil {
		return nil, err
	}
	if len(detail.Group.GroupID) == 0 {
		return nil, domain.Errorf(domain.CodeNotFound, "group_id of price %s must have values", detail.PriceID)
	}
	if findPrice(prices, detail.PriceID) >= 0 {
		return nil, domain.Errorf(domain.CodeConflict, "price %s already exists", detail.PriceID)
	}
	return append(prices, models.PriceInfo{
		PriceDetailedInfo: detail.Detail(detail.Group.GroupID),
		DistributorID:     strategy.DistributorID,
		GoodsID:           strategy.GoodsID,
	}), nil
}

// updatePriceStrategy replaces the detail of an existing price. Its group
// gains add_group_id and loses del_group_id.
func updatePriceStrategy(prices []models.PriceInfo, strategy models.PriceStrategy) error {
	detail := strategy.PriceDetailedInfo
	if err := requireFields("price_id", detail.PriceID); err != nil {
		return err
	}
	i := findPrice(prices, detail.PriceID)
	if i < 0 {
		return domain.Errorf(domain.CodeNotExist, "price %s does not exist", detail.PriceID)
	}
	group := append(slices.Clone(prices[i].PriceDetailedInfo.Group), detail.Group.AddGroupID...)
	group = slices.DeleteFunc(group, func(id string) bool {
		return slices.Contains(detail.Group.DelGroupID, id)
	})
	prices[i].PriceDetailedInfo = detail.Detail(group)
	return nil
}

// UpdateStockInfo moves the sale and entry windows of every token issued
// from stockNumber. Tickets already used, expired, refunded or otherwise
// settled keep their windows.
func (s *ContractService) UpdateStockInfo(ctx context.Context, caller identity.Caller, stockNumber string, fields json.RawMessage, triggerTime json.Number) error {
	return s.invoke(ctx, "UpdateStockInfo", caller, adminGuard, func(c *call) error {
		if err := requireFields("stock_number", stockNumber); err != nil {
			return err
		}
		ts, err := parseTriggerTime(triggerTime)
		if err != nil {
			return err
		}
		obj, err := schema.DecodeObject(fields, "updated fields")
		if err != nil {
			return err
		}
		if err := schema.ValidateStructure(obj, schema.StockTimes); err != nil {
			return err
		}
		var times models.StockTimes
		if err := schema.Into(obj, &times); err != nil {
			return err
		}

		rows, err := c.txn.Query(c.ctx, ledger.Selector{Prefix: domain.TokenKey(stockNumber)})
		if err != nil {
			return err
		}
		var first *models.Token
		for _, row := range rows {
			var t models.Token
			if err := json.Unmarshal(row.Value, &t); err != nil {
				return domain.Errorf(domain.CodeParseError, "decode %s: %v", row.Key, err)
			}
			if settledStatus(t.Slot.AdditionalInformation.TicketData.Status) {
				continue
			}
			times.Apply(&t.Slot.BasicInformation.SimpleTicket.TicketStock)
			if err := stageToken(c, &t); err != nil {
				return err
			}
			if first == nil {
				first = &t
			}
		}
		if first == nil {
			return domain.Errorf(domain.CodeNotExist, "no updatable tokens for stock %s", stockNumber)
		}
		simple := first.Slot.BasicInformation.SimpleTicket
		return c.emit(domain.EventUpdateStockInfo, map[string]any{
			"method_name":        domain.EventUpdateStockInfo,
			"stock_id":           stockNumber,
			"stock_batch_number": simple.TicketStock.BatchID,
			"owner":              simple.ScenicID,
			"trigger_time":       ts,
		})
	})
}

// settledStatus reports ticket statuses 1 through 4.
func settledStatus(status json.Number) bool {
	n, err := strconv.Atoi(status.String())
	return err == nil && n >= 1 && n <= domain.TicketStatusRefunded
}
