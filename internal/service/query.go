package service

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/identity"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
	"github.com/anziyang2000/hq-code-sub003/internal/models"
)

// QueryByOwner lists the tokens held by owner.
func (s *ContractService) QueryByOwner(ctx context.Context, caller identity.Caller, owner string) ([]models.TokenSummary, error) {
	var out []models.TokenSummary
	err := s.query(ctx, "QueryByOwner", caller, func(c *call) error {
		if err := requireFields("owner", owner); err != nil {
			return err
		}
		var err error
		out, err = summarize(c, ledger.Selector{
			Prefix: domain.KeyPrefixToken,
			Fields: map[string]string{"owner": owner},
		})
		return err
	})
	return out, err
}

// QueryByOwnerAndBalance lists the tokens held by owner whose balance is
// exactly balance.
func (s *ContractService) QueryByOwnerAndBalance(ctx context.Context, caller identity.Caller, owner, balance string) ([]models.TokenSummary, error) {
	var out []models.TokenSummary
	err := s.query(ctx, "QueryByOwnerAndBalance", caller, func(c *call) error {
		if err := requireFields("owner", owner, "balance", balance); err != nil {
			return err
		}
		n, err := domain.ParseAmount(balance)
		if err != nil {
			return err
		}
		out, err = summarize(c, ledger.Selector{
			Prefix: domain.KeyPrefixToken,
			Fields: map[string]string{"owner": owner, "balance": strconv.FormatInt(n, 10)},
		})
		return err
	})
	return out, err
}

// ClientAccountBalance counts the tokens held by the caller.
func (s *ContractService) ClientAccountBalance(ctx context.Context, caller identity.Caller) (int, error) {
	var n int
	err := s.query(ctx, "ClientAccountBalance", caller, func(c *call) error {
		if caller.ID == "" {
			return domain.Errorf(domain.CodeServiceIdentity, "caller has no account id")
		}
		rows, err := c.txn.Query(c.ctx, ledger.Selector{
			Prefix: domain.KeyPrefixToken,
			Fields: map[string]string{"owner": caller.ID},
		})
		n = len(rows)
		return err
	})
	return n, err
}

// QueryByTokenIDPrefix lists tokens whose id starts with prefix. An empty
// prefix lists every token.
func (s *ContractService) QueryByTokenIDPrefix(ctx context.Context, caller identity.Caller, prefix string) ([]models.TokenSummary, error) {
	var out []models.TokenSummary
	err := s.query(ctx, "QueryByTokenIdPrefix", caller, func(c *call) error {
		var err error
		out, err = summarize(c, ledger.Selector{Prefix: domain.TokenKey(prefix)})
		return err
	})
	return out, err
}

func summarize(c *call, sel ledger.Selector) ([]models.TokenSummary, error) {
	rows, err := c.txn.Query(c.ctx, sel)
	if err != nil {
		return nil, err
	}
	out := make([]models.TokenSummary, 0, len(rows))
	for _, row := range rows {
		var t models.Token
		if err := json.Unmarshal(row.Value, &t); err != nil {
			return nil, domain.Errorf(domain.CodeParseError, "decode %s: %v", row.Key, err)
		}
		out = append(out, models.TokenSummary{TicketID: t.TokenID, Owner: t.Owner, Balance: t.Balance})
	}
	return out, nil
}
