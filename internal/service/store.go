package service

import (
	"context"

	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
)

// Store returns the ledger store the service runs on.
func (s *ContractService) Store() ledger.Store {
	return s.store
}

// Ready pings the backing store when it has a remote dependency.
func (s *ContractService) Ready(ctx context.Context) error {
	if p, ok := s.store.(ledger.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
