package service

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/identity"
	"github.com/anziyang2000/hq-code-sub003/internal/models"
)

// Initialize sets the contract options once and registers the first admin.
func (s *ContractService) Initialize(ctx context.Context, caller identity.Caller, name, symbol, org, admin string) (models.ContractInfo, error) {
	var info models.ContractInfo
	err := s.invoke(ctx, "Initialize", caller, noGuard, func(c *call) error {
		if err := requireFields("name", name, "symbol", symbol, "org", org, "admin", admin); err != nil {
			return err
		}
		if c.state.Initialized() || len(c.state.OrgAdmins) > 0 {
			return domain.Errorf(domain.CodeServiceInit, "contract options are already set")
		}
		mapping, err := json.Marshal(map[string][]string{org: {admin}})
		if err != nil {
			return domain.Errorf(domain.CodeParseError, "encode org admin mapping: %v", err)
		}
		c.txn.Put(domain.KeyName, []byte(name))
		c.txn.Put(domain.KeySymbol, []byte(symbol))
		c.txn.Put(domain.KeyLock, []byte("false"))
		c.txn.Put(domain.KeyOrgAdminMapping, mapping)
		info = models.ContractInfo{Name: name, Symbol: symbol}
		return nil
	})
	return info, err
}

// SetOrgAdmin registers admin for org and returns the resulting mapping.
func (s *ContractService) SetOrgAdmin(ctx context.Context, caller identity.Caller, org, admin string) (map[string][]string, error) {
	var out map[string][]string
	err := s.invoke(ctx, "SetOrgAdmin", caller, adminGuard, func(c *call) error {
		if err := requireFields("org", org, "admin", admin); err != nil {
			return err
		}
		mapping := c.state.OrgAdmins
		if !slices.Contains(mapping[org], admin) {
			mapping[org] = append(mapping[org], admin)
		}
		b, err := json.Marshal(mapping)
		if err != nil {
			return domain.Errorf(domain.CodeParseError, "encode org admin mapping: %v", err)
		}
		c.txn.Put(domain.KeyOrgAdminMapping, b)
		out = mapping
		return nil
	})
	return out, err
}

func (s *ContractService) OrgAdmins(ctx context.Context, caller identity.Caller) (map[string][]string, error) {
	var out map[string][]string
	err := s.query(ctx, "OrgAdmins", caller, func(c *call) error {
		out = c.state.OrgAdmins
		return nil
	})
	return out, err
}

// SetLock toggles the global lock and returns the new state.
func (s *ContractService) SetLock(ctx context.Context, caller identity.Caller) (bool, error) {
	var locked bool
	err := s.invoke(ctx, "SetLock", caller, adminGuard, func(c *call) error {
		locked = !c.state.Locked
		value := "false"
		if locked {
			value = "true"
		}
		c.txn.Put(domain.KeyLock, []byte(value))
		return nil
	})
	return locked, err
}

func (s *ContractService) Info(ctx context.Context, caller identity.Caller) (models.ContractInfo, error) {
	var info models.ContractInfo
	err := s.query(ctx, "Info", caller, func(c *call) error {
		info = models.ContractInfo{Name: c.state.Name, Symbol: c.state.Symbol, Locked: c.state.Locked}
		return nil
	})
	return info, err
}

func (s *ContractService) Lock(ctx context.Context, caller identity.Caller) (bool, error) {
	info, err := s.Info(ctx, caller)
	return info.Locked, err
}

func (s *ContractService) Name(ctx context.Context, caller identity.Caller) (string, error) {
	info, err := s.Info(ctx, caller)
	return info.Name, err
}

func (s *ContractService) Symbol(ctx context.Context, caller identity.Caller) (string, error) {
	info, err := s.Info(ctx, caller)
	return info.Symbol, err
}

// ClientAccountID returns the caller's own account id.
func (s *ContractService) ClientAccountID(ctx context.Context, caller identity.Caller) (string, error) {
	err := s.query(ctx, "ClientAccountID", caller, func(*call) error {
		if caller.ID == "" {
			return domain.Errorf(domain.CodeServiceIdentity, "caller has no account id")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return caller.ID, nil
}
