// Package identity carries the caller identity and the contract-level guard
// state every entry point checks before touching the ledger.
package identity

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
)

// Caller is the authenticated principal of a call: a user id within an
// organization.
type Caller struct {
	ID  string `json:"id"`
	Org string `json:"org"`
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// ContractState is read once per call and threaded through the guards.
type ContractState struct {
	Name      string              `json:"name"`
	Symbol    string              `json:"symbol"`
	Locked    bool                `json:"locked"`
	OrgAdmins map[string][]string `json:"org_admins"`
}

func (s ContractState) Initialized() bool {
	return s.Name != ""
}

// IsAdmin reports whether c is registered as an admin of its own org.
func (s ContractState) IsAdmin(c Caller) bool {
	if c.ID == "" || c.Org == "" {
		return false
	}
	return slices.Contains(s.OrgAdmins[c.Org], c.ID)
}

// RequireRead guards read entry points.
func (s ContractState) RequireRead() error {
	if !s.Initialized() {
		return domain.Errorf(domain.CodeServiceInit, "contract is not initialized")
	}
	return nil
}

// RequireAdmin guards administration calls, which stay available while
// the contract is locked.
func (s ContractState) RequireAdmin(c Caller) error {
	if err := s.RequireRead(); err != nil {
		return err
	}
	if !s.IsAdmin(c) {
		return domain.Errorf(domain.CodeServiceIdentity, "caller %s is not an admin of org %s", c.ID, c.Org)
	}
	return nil
}

// RequireWrite guards mutating entry points: initialized, then unlocked,
// then an admin caller.
func (s ContractState) RequireWrite(c Caller) error {
	if err := s.RequireRead(); err != nil {
		return err
	}
	if s.Locked {
		return domain.Errorf(domain.CodeServiceLock, "contract is locked")
	}
	if !s.IsAdmin(c) {
		return domain.Errorf(domain.CodeServiceIdentity, "caller %s is not an admin of org %s", c.ID, c.Org)
	}
	return nil
}

// Reader is the subset of the ledger needed to load contract state.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// LoadState reads the option keys. Missing keys leave zero values.
func LoadState(ctx context.Context, r Reader) (ContractState, error) {
	var st ContractState

	name, err := r.Get(ctx, domain.KeyName)
	if err != nil {
		return st, err
	}
	st.Name = string(name)

	symbol, err := r.Get(ctx, domain.KeySymbol)
	if err != nil {
		return st, err
	}
	st.Symbol = string(symbol)

	lock, err := r.Get(ctx, domain.KeyLock)
	if err != nil {
		return st, err
	}
	st.Locked = string(lock) == "true"

	mapping, err := r.Get(ctx, domain.KeyOrgAdminMapping)
	if err != nil {
		return st, err
	}
	st.OrgAdmins = map[string][]string{}
	if len(mapping) > 0 {
		if err := json.Unmarshal(mapping, &st.OrgAdmins); err != nil {
			return st, domain.Errorf(domain.CodeParseError, "decode org admin mapping: %v", err)
		}
	}
	return st, nil
}
