package service

import (
	"context"
	"encoding/json"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/identity"
	"github.com/anziyang2000/hq-code-sub003/internal/models"
	"github.com/anziyang2000/hq-code-sub003/internal/schema"
)

// StoreCreditInfo sets or updates a merchant credit line (kind "2") or
// records its pledge amount (kind "3"). seqNo may be used once.
func (s *ContractService) StoreCreditInfo(ctx context.Context, caller identity.Caller, kind string, payload json.RawMessage, triggerTime json.Number) (*models.CreditAccount, error) {
	var account *models.CreditAccount
	err := s.invoke(ctx, "StoreCreditInfo", caller, writeGuard, func(c *call) error {
		ts, err := parseTriggerTime(triggerTime)
		if err != nil {
			return err
		}
		obj, err := schema.DecodeObject(payload, "credit data")
		if err != nil {
			return err
		}
		if err := schema.ValidateStructure(obj, schema.CreditInfo); err != nil {
			return err
		}
		var info models.CreditInfo
		if err := schema.Into(obj, &info); err != nil {
			return err
		}
		if err := requireFields("account", info.Account, "merchantId", info.MerchantID, "assetsKey", info.AssetsKey, "seqNo", info.SeqNo); err != nil {
			return err
		}
		if err := claimMarker(c, domain.TradeKey(info.SeqNo), "seqNo "+info.SeqNo); err != nil {
			return err
		}

		var acct models.CreditAccount
		found, err := c.txn.GetJSON(c.ctx, domain.CreditKey(info.AssetsKey), &acct)
		if err != nil {
			return err
		}

		var value string
		switch kind {
		case domain.CreditTypeSetOrUpdate:
			if err := requireFields("creditLimit", info.CreditLimit); err != nil {
				return err
			}
			limit, err := domain.ParseAmount(info.CreditLimit)
			if err != nil {
				return err
			}
			if !found {
				acct = models.CreditAccount{PledgeAmount: 0, AssetsKey: info.AssetsKey}
			}
			acct.Owner = info.Account
			acct.MerchantID = info.MerchantID
			acct.CreditLimit = limit
			value = info.CreditLimit
		case domain.CreditTypeActivate:
			if !found {
				return domain.Errorf(domain.CodeNotExist, "credit account %s does not exist", info.AssetsKey)
			}
			if err := requireFields("pledgeAmount", info.PledgeAmount); err != nil {
				return err
			}
			pledge, err := domain.ParseAmount(info.PledgeAmount)
			if err != nil {
				return err
			}
			acct.PledgeAmount = pledge
			value = info.PledgeAmount
		default:
			return domain.Errorf(domain.CodeTypeMismatch, "credit info type %q is not %s or %s",
				kind, domain.CreditTypeSetOrUpdate, domain.CreditTypeActivate)
		}
		acct.LastSeqNo = info.SeqNo
		acct.AssetsKey = info.AssetsKey
		if err := c.txn.PutJSON(domain.CreditKey(info.AssetsKey), acct); err != nil {
			return err
		}
		account = &acct
		return c.emit(domain.EventStoreCreditInfo, map[string]any{
			"method_name":  domain.EventStoreCreditInfo,
			"type":         kind,
			"account":      info.Account,
			"value":        value,
			"seq_no":       info.SeqNo,
			"trigger_time": ts,
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

type TransferCreditResult struct {
	From *models.CreditAccount `json:"from"`
	To   *models.CreditAccount `json:"to"`
}

// TransferCredit moves credit limit from the account at assetsKey, owned by
// from, to the issuer's account, creating the latter on first use.
func (s *ContractService) TransferCredit(ctx context.Context, caller identity.Caller, from, to string, payload json.RawMessage, triggerTime json.Number) (*TransferCreditResult, error) {
	var res *TransferCreditResult
	err := s.invoke(ctx, "TransferCredit", caller, writeGuard, func(c *call) error {
		if err := requireFields("from", from, "to", to); err != nil {
			return err
		}
		ts, err := parseTriggerTime(triggerTime)
		if err != nil {
			return err
		}
		obj, err := schema.DecodeObject(payload, "transfer data")
		if err != nil {
			return err
		}
		if err := schema.ValidateStructure(obj, schema.TransferInfo); err != nil {
			return err
		}
		var info models.TransferInfo
		if err := schema.Into(obj, &info); err != nil {
			return err
		}
		if err := requireFields(
			"issuer_id", info.IssuerID,
			"issuer_account", info.IssuerAccount,
			"receiver_id", info.ReceiverID,
			"receiver_account", info.ReceiverAccount,
			"assetsKey", info.AssetsKey,
			"amount", info.Amount,
			"tradeNo", info.TradeNo,
		); err != nil {
			return err
		}
		amount, err := domain.ParsePositive(info.Amount)
		if err != nil {
			return err
		}
		if err := claimMarker(c, domain.TradeKey(info.TradeNo), "tradeNo "+info.TradeNo); err != nil {
			return err
		}

		var src models.CreditAccount
		found, err := c.txn.GetJSON(c.ctx, domain.CreditKey(info.AssetsKey), &src)
		if err != nil {
			return err
		}
		if !found {
			return domain.Errorf(domain.CodeNotExist, "credit account %s does not exist", info.AssetsKey)
		}
		if src.Owner != from {
			return domain.Errorf(domain.CodeNotOwner, "credit account %s is not owned by %s", info.AssetsKey, from)
		}
		if info.IssuerID == info.AssetsKey {
			return domain.Errorf(domain.CodeConflict, "credit account %s cannot transfer to itself", info.AssetsKey)
		}

		var dst models.CreditAccount
		found, err = c.txn.GetJSON(c.ctx, domain.CreditKey(info.IssuerID), &dst)
		if err != nil {
			return err
		}
		if found {
			if dst.Owner != to {
				return domain.Errorf(domain.CodeNotOwner, "credit account %s is not owned by %s", info.IssuerID, to)
			}
			if dst.CreditLimit, err = domain.AddQuantity(dst.CreditLimit, amount); err != nil {
				return err
			}
		} else {
			dst = models.CreditAccount{
				Owner:       info.IssuerAccount,
				MerchantID:  info.IssuerID,
				CreditLimit: amount,
				AssetsKey:   info.IssuerID,
			}
		}
		if src.CreditLimit < amount {
			return domain.Errorf(domain.CodeNumberError,
				"credit limit %d of %s is less than transfer amount %d", src.CreditLimit, info.AssetsKey, amount)
		}
		src.CreditLimit -= amount

		if err := c.txn.PutJSON(domain.CreditKey(info.AssetsKey), src); err != nil {
			return err
		}
		if err := c.txn.PutJSON(domain.CreditKey(info.IssuerID), dst); err != nil {
			return err
		}
		res = &TransferCreditResult{From: &src, To: &dst}
		return c.emit(domain.EventTransferCredit, map[string]any{
			"method_name":  domain.EventTransferCredit,
			"from":         info.ReceiverAccount,
			"to":           info.IssuerAccount,
			"value":        info.Amount,
			"trade_no":     info.TradeNo,
			"trigger_time": ts,
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// PaymentFlow appends a bank payment audit record. It never touches a
// balance.
func (s *ContractService) PaymentFlow(ctx context.Context, caller identity.Caller, payload json.RawMessage, triggerTime json.Number) (*models.PaymentRecord, error) {
	var rec *models.PaymentRecord
	err := s.invoke(ctx, "PaymentFlow", caller, writeGuard, func(c *call) error {
		ts, err := parseTriggerTime(triggerTime)
		if err != nil {
			return err
		}
		obj, err := schema.DecodeObject(payload, "payment info")
		if err != nil {
			return err
		}
		if err := schema.ValidateStructure(obj, schema.PaymentFlowInfo); err != nil {
			return err
		}
		var info models.PaymentFlowInfo
		if err := schema.Into(obj, &info); err != nil {
			return err
		}
		if err := requireFields(
			"user_name", info.UserName,
			"bank_card_number", info.BankCardNumber,
			"bank_name", info.BankName,
			"transaction_serial_number", info.TransactionSerialNumber,
			"creditor_id", info.CreditorID,
			"corporation_id", info.CorporationID,
		); err != nil {
			return err
		}
		if _, err := domain.ParsePositiveDecimal(info.Amount); err != nil {
			return err
		}

		key := domain.TransactionKey(info.TransactionSerialNumber)
		exists, err := c.txn.Exists(c.ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return domain.Errorf(domain.CodeConflict, "transaction %s is already stored", info.TransactionSerialNumber)
		}
		stored, err := compactPayload(payload, "transaction "+info.TransactionSerialNumber)
		if err != nil {
			return err
		}
		c.txn.Put(key, stored)
		rec = &models.PaymentRecord{PaymentFlowInfo: info, TriggerTime: ts}
		return c.emit(domain.EventPaymentFlow, map[string]any{
			"method_name":               domain.EventPaymentFlow,
			"transaction_serial_number": info.TransactionSerialNumber,
			"bank_card_number":          info.BankCardNumber,
			"amount":                    info.Amount,
			"trigger_time":              ts,
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ReadCredit returns the credit account at assetsKey.
func (s *ContractService) ReadCredit(ctx context.Context, caller identity.Caller, assetsKey string) (*models.CreditAccount, error) {
	var acct models.CreditAccount
	err := s.query(ctx, "ReadCredit", caller, func(c *call) error {
		if err := requireFields("assetsKey", assetsKey); err != nil {
			return err
		}
		found, err := c.txn.GetJSON(c.ctx, domain.CreditKey(assetsKey), &acct)
		if err != nil {
			return err
		}
		if !found {
			return domain.Errorf(domain.CodeNotExist, "credit account %s does not exist", assetsKey)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}
