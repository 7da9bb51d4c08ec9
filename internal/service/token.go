package service

import (
	"context"
	"encoding/json"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/identity"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
	"github.com/anziyang2000/hq-code-sub003/internal/models"
	"github.com/anziyang2000/hq-code-sub003/internal/schema"
)

type MintRequest struct {
	TokenID     string          `json:"token_id"`
	Owner       string          `json:"owner"`
	Slot        json.RawMessage `json:"slot"`
	Balance     json.Number     `json:"balance"`
	Metadata    json.RawMessage `json:"metadata"`
	TriggerTime json.Number     `json:"trigger_time"`
	RequestID   string          `json:"request_id,omitempty"`
}

// Mint creates a token whose balance and total balance both start at the
// minted amount.
func (s *ContractService) Mint(ctx context.Context, caller identity.Caller, req MintRequest) (*models.Token, error) {
	var token *models.Token
	ctx = WithRequestID(ctx, req.RequestID)
	err := s.invoke(ctx, "Mint", caller, writeGuard, func(c *call) error {
		if err := requireFields("token_id", req.TokenID, "owner", req.Owner); err != nil {
			return err
		}
		balance, err := domain.ParsePositive(req.Balance.String())
		if err != nil {
			return err
		}
		ts, err := parseTriggerTime(req.TriggerTime)
		if err != nil {
			return err
		}
		slot, err := schema.DecodeObject(req.Slot, "slot")
		if err != nil {
			return err
		}
		meta, err := schema.DecodeObject(req.Metadata, "metadata")
		if err != nil {
			return err
		}

		exists, err := c.txn.Exists(c.ctx, domain.TokenKey(req.TokenID))
		if err != nil {
			return err
		}
		if exists {
			return domain.Errorf(domain.CodeConflict, "token %s is already minted", req.TokenID)
		}

		if err := schema.ValidateStructure(slot, schema.TicketInfo); err != nil {
			return err
		}
		if err := schema.ValidateStructure(meta, schema.Metadata); err != nil {
			return err
		}
		addl := slot["AdditionalInformation"].(map[string]any)
		addl["TicketData"] = schema.Normalize(schema.TicketData, addl["TicketData"].(map[string]any))

		t := &models.Token{
			TokenID:      req.TokenID,
			Owner:        req.Owner,
			Balance:      balance,
			TotalBalance: balance,
			Provenance:   []models.StockBatch{},
		}
		if err := schema.Into(slot, &t.Slot); err != nil {
			return err
		}
		if err := schema.Into(meta, &t.Metadata); err != nil {
			return err
		}
		simple := t.Slot.BasicInformation.SimpleTicket
		for i, goods := range simple.TicketGoods {
			if len(goods.RuleCheck.CheckPointIDs) == 0 {
				return domain.Errorf(domain.CodeNotFound, "check_point_ids is empty for ticketGoods[%d]", i)
			}
		}
		if err := requireFields("batch_id", simple.TicketStock.BatchID, "scenic_id", simple.ScenicID); err != nil {
			return err
		}

		if err := stageToken(c, t); err != nil {
			return err
		}
		token = t
		return c.emit(domain.EventMint, map[string]any{
			"method_name":        domain.EventMint,
			"stock_id":           t.TokenID,
			"stock_batch_number": simple.TicketStock.BatchID,
			"owner":              simple.ScenicID,
			"trigger_time":       ts,
		})
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

type SplitRequest struct {
	SourceTokenID     string          `json:"sender_stock_id"`
	DestTokenID       string          `json:"receive_stock_id"`
	Receiver          string          `json:"receive"`
	Amount            json.Number     `json:"amount"`
	TotalDeduction    json.Number     `json:"total_amount_deduction"`
	Slot              json.RawMessage `json:"slot,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	AvailableRatio    string          `json:"available_ratio,omitempty"`
	AvailableTotalNum string          `json:"available_total_num,omitempty"`
	TriggerTime       json.Number     `json:"trigger_time"`
}

type SplitResult struct {
	Source *models.Token `json:"source"`
	Dest   *models.Token `json:"dest"`
}

// Split moves amount from a token the caller owns into another token,
// minting the destination when it does not exist yet.
func (s *ContractService) Split(ctx context.Context, caller identity.Caller, req SplitRequest) (*SplitResult, error) {
	var res *SplitResult
	err := s.invoke(ctx, "Split", caller, writeGuard, func(c *call) error {
		if err := requireFields("sender_stock_id", req.SourceTokenID, "receive_stock_id", req.DestTokenID, "receive", req.Receiver); err != nil {
			return err
		}
		amount, err := domain.ParsePositive(req.Amount.String())
		if err != nil {
			return err
		}
		deduction := amount
		if req.TotalDeduction != "" {
			if deduction, err = domain.ParseAmount(req.TotalDeduction.String()); err != nil {
				return err
			}
		}
		ts, err := parseTriggerTime(req.TriggerTime)
		if err != nil {
			return err
		}
		leg := splitLeg{
			source:          req.SourceTokenID,
			dest:            req.DestTokenID,
			sender:          caller.ID,
			receiver:        req.Receiver,
			amount:          amount,
			totalDeduction:  deduction,
			ratio:           req.AvailableRatio,
			expectAvailable: req.AvailableTotalNum,
		}
		if len(req.Slot) > 0 {
			slot, err := schema.DecodeObject(req.Slot, "slot")
			if err != nil {
				return err
			}
			if err := schema.ValidateStructure(slot, schema.TicketInfo); err != nil {
				return err
			}
			leg.slot = &models.TicketInfo{}
			if err := schema.Into(slot, leg.slot); err != nil {
				return err
			}
		}
		if len(req.Metadata) > 0 {
			meta, err := schema.DecodeObject(req.Metadata, "metadata")
			if err != nil {
				return err
			}
			if err := schema.ValidateStructure(meta, schema.Metadata); err != nil {
				return err
			}
			leg.metadata = &models.Metadata{}
			if err := schema.Into(meta, leg.metadata); err != nil {
				return err
			}
		}

		out, err := applySplit(c, leg)
		if err != nil {
			return err
		}
		res = &SplitResult{Source: out.source, Dest: out.dest}
		return c.emit(domain.EventSplit, map[string]any{
			"method_name":      domain.EventSplit,
			"sender_stock_id":  leg.source,
			"receive_stock_id": leg.dest,
			"sender":           leg.sender,
			"receiver":         leg.receiver,
			"amount":           amount,
			"effective":        out.effective,
			"trigger_time":     ts,
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// splitLeg is one quantity move between two tokens. sender is the claimed
// owner of source. A non-empty escrow ratio credits only the effective part
// of amount to the destination balance.
type splitLeg struct {
	source          string
	dest            string
	sender          string
	receiver        string
	amount          int64
	totalDeduction  int64
	ratio           string
	expectAvailable string
	slot            *models.TicketInfo
	metadata        *models.Metadata
}

type splitOutcome struct {
	source    *models.Token
	dest      *models.Token
	minted    bool
	effective int64
	status    json.Number // ticket status of the destination, or of the source when minted
}

// applySplit validates leg against the staged ledger and stages both token
// writes. Nothing is staged when it fails.
func applySplit(c *call, leg splitLeg) (*splitOutcome, error) {
	if leg.source == leg.dest {
		return nil, domain.Errorf(domain.CodeConflict, "cannot split token %s into itself", leg.source)
	}
	if leg.amount <= 0 {
		return nil, domain.Errorf(domain.CodeNumberError, "amount %d must be greater than 0", leg.amount)
	}
	src, err := readToken(c, leg.source)
	if err != nil {
		return nil, err
	}
	if src.Owner != leg.sender {
		return nil, domain.Errorf(domain.CodeNotOwner, "token %s is not owned by %s", leg.source, leg.sender)
	}
	if src.Balance < leg.amount {
		return nil, domain.Errorf(domain.CodeNumberError, "insufficient balance for token %s", leg.source)
	}
	if src.TotalBalance < leg.totalDeduction {
		return nil, domain.Errorf(domain.CodeNumberError, "insufficient total_balance for token %s", leg.source)
	}

	effective, err := domain.EffectiveBalance(leg.amount, leg.ratio)
	if err != nil {
		return nil, err
	}
	escrowed := domain.HasEscrow(leg.ratio)
	var expect int64
	if escrowed {
		if leg.expectAvailable == "" {
			return nil, domain.Errorf(domain.CodeNotFound, "available_total_num is required with available_ratio %s", leg.ratio)
		}
		if expect, err = domain.ParseAmount(leg.expectAvailable); err != nil {
			return nil, err
		}
	}

	out := &splitOutcome{source: src, effective: effective}
	dst, found, err := lookupToken(c, leg.dest)
	if err != nil {
		return nil, err
	}
	if found {
		// A merge keeps the existing owner of the destination.
		balance, err := domain.AddQuantity(dst.Balance, effective)
		if err != nil {
			return nil, err
		}
		total, err := domain.AddQuantity(dst.TotalBalance, leg.amount)
		if err != nil {
			return nil, err
		}
		if escrowed && balance != expect {
			return nil, domain.Errorf(domain.CodeNumberError,
				"updated balance %d does not match available_total_num %d", balance, expect)
		}
		dst.Balance = balance
		dst.TotalBalance = total
		dst.AddProvenance(leg.source, leg.amount)
	} else {
		if escrowed && effective != expect {
			return nil, domain.Errorf(domain.CodeNumberError,
				"effective balance %d does not match available_total_num %d", effective, expect)
		}
		slot, meta := src.Slot, src.Metadata
		if leg.slot != nil {
			slot = *leg.slot
		}
		if leg.metadata != nil {
			meta = *leg.metadata
		}
		dst = &models.Token{
			TokenID:      leg.dest,
			Owner:        leg.receiver,
			Balance:      effective,
			TotalBalance: leg.amount,
			Slot:         slot,
			Metadata:     meta,
			Provenance:   []models.StockBatch{{StockBatchNumber: leg.source, Amount: leg.amount}},
		}
		out.minted = true
	}
	out.status = src.Slot.AdditionalInformation.TicketData.Status
	if found {
		out.status = dst.Slot.AdditionalInformation.TicketData.Status
	}

	src.Balance -= leg.amount
	src.TotalBalance -= leg.totalDeduction
	for _, t := range []*models.Token{src, dst} {
		if err := checkQuantities(t); err != nil {
			return nil, err
		}
	}
	if err := stageToken(c, src); err != nil {
		return nil, err
	}
	if err := stageToken(c, dst); err != nil {
		return nil, err
	}
	out.dest = dst
	return out, nil
}

func checkQuantities(t *models.Token) error {
	if t.Balance < 0 || t.TotalBalance < 0 {
		return domain.Errorf(domain.CodeNumberError, "token %s would hold a negative quantity", t.TokenID)
	}
	if t.Balance > t.TotalBalance {
		return domain.Errorf(domain.CodeNumberError,
			"token %s balance %d would exceed total_balance %d", t.TokenID, t.Balance, t.TotalBalance)
	}
	return nil
}

type BurnRequest struct {
	TokenID     string      `json:"token_id"`
	Amount      json.Number `json:"amount,omitempty"`
	TriggerTime json.Number `json:"trigger_time,omitempty"`
}

// Burn removes amount from the caller's token, deleting it once the balance
// runs out. Without an amount the token is deleted outright.
func (s *ContractService) Burn(ctx context.Context, caller identity.Caller, req BurnRequest) error {
	return s.invoke(ctx, "Burn", caller, writeGuard, func(c *call) error {
		if err := requireFields("token_id", req.TokenID); err != nil {
			return err
		}
		t, err := readToken(c, req.TokenID)
		if err != nil {
			return err
		}
		if t.Owner != caller.ID {
			return domain.Errorf(domain.CodeNotOwner, "token %s is not owned by %s", req.TokenID, caller.ID)
		}

		event := map[string]any{
			"method_name": domain.EventBurn,
			"token_id":    req.TokenID,
			"owner":       t.Owner,
		}
		if req.TriggerTime != "" {
			ts, err := parseTriggerTime(req.TriggerTime)
			if err != nil {
				return err
			}
			event["trigger_time"] = ts
		}

		if req.Amount == "" {
			c.txn.Delete(domain.TokenKey(req.TokenID))
			event["amount"] = t.Balance
			return c.emit(domain.EventBurn, event)
		}
		amount, err := domain.ParsePositive(req.Amount.String())
		if err != nil {
			return err
		}
		if t.Balance < amount {
			return domain.Errorf(domain.CodeNumberError, "insufficient balance for burning token %s", req.TokenID)
		}
		t.Balance -= amount
		if t.Balance <= 0 {
			c.txn.Delete(domain.TokenKey(req.TokenID))
		} else if err := stageToken(c, t); err != nil {
			return err
		}
		event["amount"] = amount
		return c.emit(domain.EventBurn, event)
	})
}

// UpdateTicketInfo amends known fields of a token's slot. Buyers are
// addressed by id_number and check records by ticket_number.
func (s *ContractService) UpdateTicketInfo(ctx context.Context, caller identity.Caller, tokenID string, fields json.RawMessage, triggerTime json.Number) (*models.Token, error) {
	var token *models.Token
	err := s.invoke(ctx, "UpdateTicketInfo", caller, writeGuard, func(c *call) error {
		if err := requireFields("token_id", tokenID); err != nil {
			return err
		}
		ts, err := parseTriggerTime(triggerTime)
		if err != nil {
			return err
		}
		patch, err := schema.DecodeObject(fields, "updated fields")
		if err != nil {
			return err
		}
		t, err := readToken(c, tokenID)
		if err != nil {
			return err
		}
		slotVal, err := schema.ToValue(t.Slot)
		if err != nil {
			return err
		}
		slot := slotVal.(map[string]any)
		addl := slot["AdditionalInformation"].(map[string]any)

		for _, key := range sortedFieldKeys(patch) {
			var err error
			switch key {
			case "TicketData":
				err = updateTicketData(addl, patch[key])
			case "PriceInfo":
				err = updatePriceInfo(addl, patch[key])
			case "TicketCheckData":
				err = updateCheckData(addl, patch[key])
			default:
				err = domain.Errorf(domain.CodeNotFound, "field %s cannot be updated", key)
			}
			if err != nil {
				return err
			}
		}

		if err := schema.Into(slot, &t.Slot); err != nil {
			return err
		}
		if err := stageToken(c, t); err != nil {
			return err
		}
		token = t
		return c.emit(domain.EventUpdateTicketInfo, map[string]any{
			"method_name":  domain.EventUpdateTicketInfo,
			"token_id":     tokenID,
			"trigger_time": ts,
		})
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func updateTicketData(addl map[string]any, patch any) error {
	p, ok := patch.(map[string]any)
	if !ok {
		return domain.Errorf(domain.CodeTypeMismatch, "TicketData must be an object")
	}
	td := addl["TicketData"].(map[string]any)
	if buyers, ok := p["BuyerInfo"]; ok {
		byID, ok := buyers.(map[string]any)
		if !ok {
			return domain.Errorf(domain.CodeTypeMismatch, "TicketData.BuyerInfo must be an object keyed by id_number")
		}
		list, _ := td["BuyerInfo"].([]any)
		for _, id := range sortedFieldKeys(byID) {
			i := indexBy(list, "id_number", id)
			if i < 0 {
				return domain.Errorf(domain.CodeNotFound, "buyer with id_number %s not found", id)
			}
			entryPatch, ok := byID[id].(map[string]any)
			if !ok {
				return domain.Errorf(domain.CodeTypeMismatch, "buyer %s must be an object", id)
			}
			merged, err := schema.StrictNormalize(list[i].(map[string]any), entryPatch)
			if err != nil {
				return err
			}
			list[i] = merged
		}
		rest := make(map[string]any, len(p))
		for k, v := range p {
			if k != "BuyerInfo" {
				rest[k] = v
			}
		}
		p = rest
	}
	merged, err := schema.StrictNormalize(td, p)
	if err != nil {
		return err
	}
	addl["TicketData"] = merged
	return nil
}

func updatePriceInfo(addl map[string]any, patch any) error {
	if _, ok := patch.([]any); !ok {
		return domain.Errorf(domain.CodeTypeMismatch, "PriceInfo must be an array")
	}
	merged, err := schema.StrictNormalize(
		map[string]any{"PriceInfo": addl["PriceInfo"]},
		map[string]any{"PriceInfo": patch},
	)
	if err != nil {
		return err
	}
	addl["PriceInfo"] = merged["PriceInfo"]
	return nil
}

func updateCheckData(addl map[string]any, patch any) error {
	byNumber, ok := patch.(map[string]any)
	if !ok {
		return domain.Errorf(domain.CodeTypeMismatch, "TicketCheckData must be an object keyed by ticket_number")
	}
	list, _ := addl["TicketCheckData"].([]any)
	for _, number := range sortedFieldKeys(byNumber) {
		i := indexBy(list, "ticket_number", number)
		if i < 0 {
			return domain.Errorf(domain.CodeNotFound, "ticket with number %s not found", number)
		}
		entryPatch, ok := byNumber[number].(map[string]any)
		if !ok {
			return domain.Errorf(domain.CodeTypeMismatch, "check record %s must be an object", number)
		}
		merged, err := schema.StrictNormalize(list[i].(map[string]any), entryPatch)
		if err != nil {
			return err
		}
		list[i] = merged
	}
	return nil
}

// ReadToken returns the token or NotExist.
func (s *ContractService) ReadToken(ctx context.Context, caller identity.Caller, tokenID string) (*models.Token, error) {
	var token *models.Token
	err := s.query(ctx, "ReadToken", caller, func(c *call) error {
		t, err := readToken(c, tokenID)
		token = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (s *ContractService) BalanceOf(ctx context.Context, caller identity.Caller, tokenID string) (int64, error) {
	t, err := s.ReadToken(ctx, caller, tokenID)
	if err != nil {
		return 0, err
	}
	return t.Balance, nil
}

func (s *ContractService) OwnerOf(ctx context.Context, caller identity.Caller, tokenID string) (string, error) {
	t, err := s.ReadToken(ctx, caller, tokenID)
	if err != nil {
		return "", err
	}
	return t.Owner, nil
}

func (s *ContractService) SlotOf(ctx context.Context, caller identity.Caller, tokenID string) (*models.TicketInfo, error) {
	t, err := s.ReadToken(ctx, caller, tokenID)
	if err != nil {
		return nil, err
	}
	return &t.Slot, nil
}

func (s *ContractService) TokenURI(ctx context.Context, caller identity.Caller, tokenID string) (string, error) {
	t, err := s.ReadToken(ctx, caller, tokenID)
	if err != nil {
		return "", err
	}
	return t.Metadata.TokenURL, nil
}

// TotalSupply counts minted tokens that still exist.
func (s *ContractService) TotalSupply(ctx context.Context, caller identity.Caller) (int, error) {
	var n int
	err := s.query(ctx, "TotalSupply", caller, func(c *call) error {
		rows, err := c.txn.Query(c.ctx, ledger.Selector{Prefix: domain.KeyPrefixToken})
		n = len(rows)
		return err
	})
	return n, err
}

func readToken(c *call, tokenID string) (*models.Token, error) {
	t, found, err := lookupToken(c, tokenID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.Errorf(domain.CodeNotExist, "token %s does not exist", tokenID)
	}
	return t, nil
}

func lookupToken(c *call, tokenID string) (*models.Token, bool, error) {
	if tokenID == "" {
		return nil, false, domain.Errorf(domain.CodeNotFound, "token id is required")
	}
	var t models.Token
	found, err := c.txn.GetJSON(c.ctx, domain.TokenKey(tokenID), &t)
	if err != nil || !found {
		return nil, found, err
	}
	if t.Provenance == nil {
		t.Provenance = []models.StockBatch{}
	}
	return &t, true, nil
}

func stageToken(c *call, t *models.Token) error {
	return c.txn.PutJSON(domain.TokenKey(t.TokenID), t)
}
