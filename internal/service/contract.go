package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/events"
	"github.com/anziyang2000/hq-code-sub003/internal/identity"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
	"github.com/anziyang2000/hq-code-sub003/internal/observability"
	"github.com/anziyang2000/hq-code-sub003/internal/serial"
)

// ContractService hosts every ledger entry point. Calls that write are run
// one at a time through the serializer and either commit all of their
// staged writes or none of them.
type ContractService struct {
	store  ledger.Store
	serial serial.Serializer
}

func NewContractService(store ledger.Store, s serial.Serializer) *ContractService {
	if s == nil {
		s = serial.NewLocal()
	}
	return &ContractService{store: store, serial: s}
}

// call is the per-invocation context threaded through the entry points.
type call struct {
	ctx    context.Context
	txn    *ledger.Txn
	state  identity.ContractState
	caller identity.Caller
}

func (c *call) emit(name string, payload any) error {
	_, err := events.Stage(c.txn, name, payload)
	return err
}

type requestIDKey struct{}

// WithRequestID attaches a caller-chosen request id to ctx. A write invoked
// with a request id claims it, so replaying the same id fails with
// Conflict.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type guard func(st identity.ContractState, caller identity.Caller) error

func writeGuard(st identity.ContractState, caller identity.Caller) error {
	return st.RequireWrite(caller)
}

func adminGuard(st identity.ContractState, caller identity.Caller) error {
	return st.RequireAdmin(caller)
}

func readGuard(st identity.ContractState, _ identity.Caller) error {
	return st.RequireRead()
}

func noGuard(identity.ContractState, identity.Caller) error {
	return nil
}

// invoke runs fn as one serialized call and commits what it staged.
func (s *ContractService) invoke(ctx context.Context, entry string, caller identity.Caller, g guard, fn func(c *call) error) error {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "ledger."+entry,
		attribute.String("ledger.caller", caller.ID),
		attribute.String("ledger.org", caller.Org),
	)

	err := s.serial.Do(ctx, func(ctx context.Context) error {
		c, err := s.begin(ctx, caller, g)
		if err != nil {
			return err
		}
		if id := requestIDFrom(ctx); id != "" {
			if err := claimMarker(c, domain.RequestKey(id), "request id "+id); err != nil {
				return err
			}
		}
		if err := fn(c); err != nil {
			return err
		}
		return c.txn.Commit(ctx)
	})
	if err != nil {
		err = domain.AsContractError(err)
	}

	observability.EndSpan(span, err)
	observability.ObserveContractCall(entry, domain.CodeOf(err), time.Since(start))
	if err != nil {
		zap.L().Debug("contract call rejected",
			zap.String("entry", entry),
			zap.String("caller", caller.ID),
			zap.Int("code", domain.CodeOf(err)),
			zap.Error(err),
		)
		return err
	}
	zap.L().Debug("contract call committed",
		zap.String("entry", entry),
		zap.String("caller", caller.ID),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// query runs a read-only fn. Reads are not serialized and nothing is
// committed.
func (s *ContractService) query(ctx context.Context, entry string, caller identity.Caller, fn func(c *call) error) error {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "ledger."+entry, attribute.String("ledger.caller", caller.ID))

	c, err := s.begin(ctx, caller, readGuard)
	if err == nil {
		err = fn(c)
	}
	if err != nil {
		err = domain.AsContractError(err)
	}

	observability.EndSpan(span, err)
	observability.ObserveContractCall(entry, domain.CodeOf(err), time.Since(start))
	return err
}

func (s *ContractService) begin(ctx context.Context, caller identity.Caller, g guard) (*call, error) {
	txn := ledger.Begin(s.store)
	st, err := identity.LoadState(ctx, txn)
	if err != nil {
		return nil, err
	}
	if err := g(st, caller); err != nil {
		return nil, err
	}
	return &call{ctx: ctx, txn: txn, state: st, caller: caller}, nil
}

// requireFields fails with NotFound on the first empty value, in argument
// order. Pairs are name, value.
func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return domain.Errorf(domain.CodeNotFound, "%s is required", pairs[i])
		}
	}
	return nil
}

// claimMarker fails with Conflict if key is already used and stages it as
// used otherwise.
func claimMarker(c *call, key, what string) error {
	used, err := c.txn.Exists(c.ctx, key)
	if err != nil {
		return err
	}
	if used {
		return domain.Errorf(domain.CodeConflict, "%s has already been used", what)
	}
	c.txn.Put(key, []byte("used"))
	return nil
}
