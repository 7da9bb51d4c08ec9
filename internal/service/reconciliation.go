package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
	"github.com/anziyang2000/hq-code-sub003/internal/models"
	"github.com/anziyang2000/hq-code-sub003/internal/observability"
)

// Violation is one record that breaks a quantity invariant.
type Violation struct {
	Key    string `json:"key"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// ReconciliationService verifies ledger quantity invariants over committed
// state.
type ReconciliationService struct {
	store ledger.Store
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store ledger.Store) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run checks every token and credit account and reports the violations it
// found. Violations are logged and counted, not repaired.
func (s *ReconciliationService) Run(ctx context.Context) ([]Violation, error) {
	tokens, err := s.store.Query(ctx, ledger.Selector{Prefix: domain.KeyPrefixToken})
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	credits, err := s.store.Query(ctx, ledger.Selector{Prefix: domain.KeyPrefixCredit})
	if err != nil {
		return nil, fmt.Errorf("list credit accounts: %w", err)
	}

	var out []Violation
	for _, row := range tokens {
		var t models.Token
		if err := json.Unmarshal(row.Value, &t); err != nil {
			out = append(out, Violation{Key: row.Key, Kind: "corrupt", Detail: err.Error()})
			continue
		}
		switch {
		case t.Balance < 0 || t.TotalBalance < 0:
			out = append(out, Violation{Key: row.Key, Kind: "negative_quantity",
				Detail: fmt.Sprintf("balance %d total_balance %d", t.Balance, t.TotalBalance)})
		case t.Balance > t.TotalBalance:
			out = append(out, Violation{Key: row.Key, Kind: "balance_exceeds_total",
				Detail: fmt.Sprintf("balance %d total_balance %d", t.Balance, t.TotalBalance)})
		}
		if id := strings.TrimPrefix(row.Key, domain.KeyPrefixToken); t.TokenID != id {
			out = append(out, Violation{Key: row.Key, Kind: "key_mismatch",
				Detail: fmt.Sprintf("token_id %q stored under %q", t.TokenID, id)})
		}
	}
	for _, row := range credits {
		var a models.CreditAccount
		if err := json.Unmarshal(row.Value, &a); err != nil {
			out = append(out, Violation{Key: row.Key, Kind: "corrupt", Detail: err.Error()})
			continue
		}
		if a.CreditLimit < 0 || a.PledgeAmount < 0 {
			out = append(out, Violation{Key: row.Key, Kind: "negative_credit",
				Detail: fmt.Sprintf("credit_limit %d pledge_amount %d", a.CreditLimit, a.PledgeAmount)})
		}
	}

	if len(out) == 0 {
		zap.L().Info("ledger reconciled", zap.Int("tokens", len(tokens)), zap.Int("credit_accounts", len(credits)))
		return nil, nil
	}
	for _, v := range out {
		observability.IncrementInvariantViolation(v.Kind)
		zap.L().Error("CRITICAL: ledger invariant violated",
			zap.String("key", v.Key),
			zap.String("kind", v.Kind),
			zap.String("detail", v.Detail),
		)
	}
	return out, nil
}
