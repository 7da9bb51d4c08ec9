package service

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anziyang2000/hq-code-sub003/internal/db"
	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/events"
	"github.com/anziyang2000/hq-code-sub003/internal/identity"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
	"github.com/anziyang2000/hq-code-sub003/internal/models"
	"github.com/anziyang2000/hq-code-sub003/internal/repository"
	"github.com/anziyang2000/hq-code-sub003/internal/serial"
)

const testOrg = "Org1MSP"

var (
	admin = identity.Caller{ID: "admin", Org: testOrg}
	alice = identity.Caller{ID: "alice", Org: testOrg}
	bob   = identity.Caller{ID: "bob", Org: testOrg}
)

// newTestService returns an initialized service on an in-memory store.
// alice is registered as a second admin so she can split her own tokens.
func newTestService(t *testing.T) (*ContractService, ledger.Store) {
	t.Helper()
	store := ledger.NewMemoryStore()
	return initService(t, store), store
}

// setupPostgresService runs against DATABASE_URL and skips without it.
func setupPostgresService(t *testing.T) (*ContractService, ledger.Store) {
	t.Helper()
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}
	t.Cleanup(pool.Close)
	require.NoError(t, db.EnsureSchema(ctx, pool))
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE ledger_state"); err != nil {
		t.Fatalf("Failed to truncate ledger_state: %v", err)
	}
	store := repository.NewStore(pool)
	return initService(t, store), store
}

func initService(t *testing.T, store ledger.Store) *ContractService {
	t.Helper()
	ctx := context.Background()
	svc := NewContractService(store, serial.NewLocal())
	_, err := svc.Initialize(ctx, identity.Caller{}, "TicketLedger", "TKT", testOrg, admin.ID)
	require.NoError(t, err)
	_, err = svc.SetOrgAdmin(ctx, admin, testOrg, alice.ID)
	require.NoError(t, err)
	return svc
}

func testSlot(mutate func(*models.TicketInfo)) models.TicketInfo {
	slot := models.NewTicketInfo()
	simple := &slot.BasicInformation.SimpleTicket
	simple.ScenicID = "scenic-1"
	simple.ScenicName = "West Lake"
	simple.TicketStock.BatchID = "batch-1"
	simple.TicketGoods[0].RuleCheck.CheckPointIDs = []string{"gate-1"}
	slot.AdditionalInformation.TicketData.Status = "1"
	slot.AdditionalInformation.TicketData.BuyerInfo = []models.BuyerInfo{
		{BuyerInfoIDName: "Li Lei", IDNumber: "ID-1"},
	}
	if mutate != nil {
		mutate(&slot)
	}
	return slot
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func mintRequest(t *testing.T, tokenID, owner string, balance int64) MintRequest {
	t.Helper()
	return MintRequest{
		TokenID:     tokenID,
		Owner:       owner,
		Slot:        rawJSON(t, testSlot(nil)),
		Balance:     json.Number(strconv.FormatInt(balance, 10)),
		Metadata:    rawJSON(t, models.Metadata{Description: "day ticket", TokenURL: "https://tickets.example/" + tokenID}),
		TriggerTime: "1700000000",
	}
}

func mustMint(t *testing.T, svc *ContractService, tokenID, owner string, balance int64) *models.Token {
	t.Helper()
	token, err := svc.Mint(context.Background(), admin, mintRequest(t, tokenID, owner, balance))
	require.NoError(t, err)
	return token
}

func mustToken(t *testing.T, svc *ContractService, tokenID string) *models.Token {
	t.Helper()
	token, err := svc.ReadToken(context.Background(), admin, tokenID)
	require.NoError(t, err)
	return token
}

// snapshot returns every committed record, outbox included.
func snapshot(t *testing.T, store ledger.Store) map[string]string {
	t.Helper()
	rows, err := store.Query(context.Background(), ledger.Selector{})
	require.NoError(t, err)
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = string(row.Value)
	}
	return out
}

func eventsNamed(t *testing.T, store ledger.Store, name string) []events.Event {
	t.Helper()
	all, err := events.Pending(context.Background(), store, 0)
	require.NoError(t, err)
	var out []events.Event
	for _, e := range all {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, domain.CodeOf(err), err.Error())
}
