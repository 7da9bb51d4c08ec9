package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/models"
)

func verification(ticketID, status, ticketNumber string) models.Verification {
	return models.Verification{
		VerifyStatus: models.VerifyStatus{
			TicketID:   ticketID,
			Status:     json.Number(status),
			CheckedNum: "1",
			UsedCount:  "1",
			UsedDays:   "1",
		},
		VerifyInfo: models.TicketCheck{
			Account:      "gate-account",
			Org:          testOrg,
			CheckType:    "1",
			TicketNumber: ticketNumber,
			EnterTime:    "2024-05-01 09:00:00",
			CheckNumber:  "1",
			ScenicID:     "scenic-1",
			PointID:      "gate-1",
		},
	}
}

func mustMintWithStatus(t *testing.T, svc *ContractService, tokenID, status string) {
	t.Helper()
	req := mintRequest(t, tokenID, alice.ID, 10)
	req.Slot = rawJSON(t, testSlot(func(s *models.TicketInfo) {
		s.AdditionalInformation.TicketData.Status = json.Number(status)
	}))
	_, err := svc.Mint(context.Background(), admin, req)
	require.NoError(t, err)
}

func decodeStatusEvents(t *testing.T, payload json.RawMessage) []statusEvent {
	t.Helper()
	var out []statusEvent
	require.NoError(t, json.Unmarshal(payload, &out))
	return out
}

func TestVerifyTicket(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	mustMint(t, svc, "T1", alice.ID, 1)

	err := svc.VerifyTicket(ctx, admin, rawJSON(t, []models.Verification{verification("T1", "2", "T1")}), "1700000060")
	require.NoError(t, err)

	token := mustToken(t, svc, "T1")
	data := token.Slot.AdditionalInformation.TicketData
	assert.Equal(t, json.Number("2"), data.Status)
	assert.Equal(t, json.Number("1"), data.CheckedNum)
	assert.Equal(t, json.Number("1"), data.UsedCount)
	assert.Equal(t, json.Number("1"), data.UsedDays)

	checks := token.Slot.AdditionalInformation.TicketCheckData
	require.NotEmpty(t, checks)
	last := checks[len(checks)-1]
	assert.Equal(t, "T1", last["ticket_number"])
	assert.Equal(t, "gate-1", last["point_id"])

	emitted := eventsNamed(t, store, domain.EventVerifyTicket)
	require.Len(t, emitted, 1)
	assert.Equal(t, []statusEvent{{
		MethodName:   domain.EventVerifyTicket,
		TokenID:      "T1",
		TicketStatus: "2",
		TriggerTime:  1700000060,
	}}, decodeStatusEvents(t, emitted[0].Payload))
}

func TestVerifyTicketRejections(t *testing.T) {
	noCheck := verification("T1", "2", "")
	tests := []struct {
		name    string
		payload func(t *testing.T) json.RawMessage
		code    int
	}{
		{"missing ticket number", func(t *testing.T) json.RawMessage {
			return rawJSON(t, []models.Verification{noCheck})
		}, domain.CodeNotFound},
		{"unknown ticket", func(t *testing.T) json.RawMessage {
			return rawJSON(t, []models.Verification{verification("T9", "2", "T9")})
		}, domain.CodeNotExist},
		{"empty list", func(*testing.T) json.RawMessage { return json.RawMessage(`[]`) }, domain.CodeNotFound},
		{"status as string", func(*testing.T) json.RawMessage {
			return json.RawMessage(`[{"VerifyStatus":{"status":"2","ticket_id":"T1","checked_num":1,"used_count":1,"used_days":1}}]`)
		}, domain.CodeTypeMismatch},
		{"second entry fails", func(t *testing.T) json.RawMessage {
			return rawJSON(t, []models.Verification{verification("T1", "2", "T1"), verification("T9", "2", "T9")})
		}, domain.CodeNotExist},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newTestService(t)
			mustMint(t, svc, "T1", alice.ID, 1)
			before := snapshot(t, store)

			err := svc.VerifyTicket(context.Background(), admin, tc.payload(t), "1700000060")
			requireCode(t, err, tc.code)
			assert.Equal(t, before, snapshot(t, store))
		})
	}

	t.Run("non admin", func(t *testing.T) {
		svc, _ := newTestService(t)
		mustMint(t, svc, "T1", alice.ID, 1)
		err := svc.VerifyTicket(context.Background(), bob, rawJSON(t, []models.Verification{verification("T1", "2", "T1")}), "1700000060")
		requireCode(t, err, domain.CodeServiceIdentity)
	})
}

func TestTimerUpdateTickets(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	mustMint(t, svc, "T1", alice.ID, 1)
	mustMint(t, svc, "T2", alice.ID, 1)

	updates := []models.TicketStatusUpdate{{TicketID: "T1", Status: "3"}, {TicketID: "T2", Status: "3"}}
	require.NoError(t, svc.TimerUpdateTickets(ctx, admin, rawJSON(t, updates), "1700000061"))

	for _, id := range []string{"T1", "T2"} {
		assert.Equal(t, json.Number("3"), mustToken(t, svc, id).Slot.AdditionalInformation.TicketData.Status)
	}
	emitted := eventsNamed(t, store, domain.EventTimerUpdateTickets)
	require.Len(t, emitted, 1)
	assert.Len(t, decodeStatusEvents(t, emitted[0].Payload), 2)

	before := snapshot(t, store)
	err := svc.TimerUpdateTickets(ctx, admin, rawJSON(t, []models.TicketStatusUpdate{{TicketID: "T1", Status: "5"}, {TicketID: "T9", Status: "5"}}), "1700000062")
	requireCode(t, err, domain.CodeNotExist)
	err = svc.TimerUpdateTickets(ctx, admin, json.RawMessage(`[{"ticket_id":"T1"}]`), "1700000062")
	requireCode(t, err, domain.CodeTypeMismatch)
	assert.Equal(t, before, snapshot(t, store))
}

func TestUpdateIssueTickets(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	mustMint(t, svc, "T1", alice.ID, 1)

	data := models.NewTicketData()
	data.TicketID = "T1"
	data.Status = "1"
	data.OrderID = "O1-1"
	data.PlayerNum = "2"
	data.BuyerInfo = []models.BuyerInfo{{BuyerInfoIDName: "Han Meimei", IDNumber: "ID-2"}}
	require.NoError(t, svc.UpdateIssueTickets(ctx, admin, rawJSON(t, []models.TicketData{data}), "1700000063"))

	got := mustToken(t, svc, "T1").Slot.AdditionalInformation.TicketData
	assert.Equal(t, json.Number("1"), got.Status)
	assert.Equal(t, json.Number("2"), got.PlayerNum)
	assert.Equal(t, "O1-1", got.OrderID)
	assert.Equal(t, data.BuyerInfo, got.BuyerInfo)
	assert.Len(t, eventsNamed(t, store, domain.EventUpdateIssueTickets), 1)

	before := snapshot(t, store)
	missingID := data
	missingID.TicketID = ""
	err := svc.UpdateIssueTickets(ctx, admin, rawJSON(t, []models.TicketData{missingID}), "1700000064")
	requireCode(t, err, domain.CodeNotFound)
	err = svc.UpdateIssueTickets(ctx, admin, json.RawMessage(`[{"ticket_id":"T1","bonus":1}]`), "1700000064")
	requireCode(t, err, domain.CodeTypeMismatch)
	assert.Equal(t, before, snapshot(t, store))
}

func priceStrategy(priceID string, groups models.PriceGroups) models.PriceStrategy {
	s := models.NewPriceStrategy()
	s.DistributorID = "D1"
	s.GoodsID = "G1"
	s.PriceDetailedInfo.PriceID = priceID
	s.PriceDetailedInfo.SalePrice = "80"
	s.PriceDetailedInfo.ComposePrice = "70"
	s.PriceDetailedInfo.CommissionRate = "5"
	if groups.AddGroupID == nil {
		groups.AddGroupID = []string{}
	}
	if groups.DelGroupID == nil {
		groups.DelGroupID = []string{}
	}
	if groups.GroupID == nil {
		groups.GroupID = []string{}
	}
	s.PriceDetailedInfo.Group = groups
	return s
}

func TestUpdatePriceInfo(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	mustMint(t, svc, "T1", alice.ID, 10)
	base := len(mustToken(t, svc, "T1").Slot.AdditionalInformation.PriceInfo)

	token, err := svc.UpdatePriceInfo(ctx, admin, "T1", domain.PriceStrategyAdd,
		rawJSON(t, priceStrategy("P1", models.PriceGroups{GroupID: []string{"g1", "g2"}})), "1700000070")
	require.NoError(t, err)
	prices := token.Slot.AdditionalInformation.PriceInfo
	require.Len(t, prices, base+1)
	assert.Equal(t, []string{"g1", "g2"}, prices[base].PriceDetailedInfo.Group)
	assert.Equal(t, "D1", prices[base].DistributorID)

	update := priceStrategy("P1", models.PriceGroups{AddGroupID: []string{"g3"}, DelGroupID: []string{"g1"}})
	update.PriceDetailedInfo.SalePrice = "90"
	token, err = svc.UpdatePriceInfo(ctx, admin, "T1", domain.PriceStrategyUpdate, rawJSON(t, update), "1700000071")
	require.NoError(t, err)
	updated := token.Slot.AdditionalInformation.PriceInfo[base].PriceDetailedInfo
	assert.Equal(t, []string{"g2", "g3"}, updated.Group)
	assert.Equal(t, json.Number("90"), updated.SalePrice)

	token, err = svc.UpdatePriceInfo(ctx, admin, "T1", domain.PriceStrategyDirect,
		rawJSON(t, priceStrategy("", models.PriceGroups{GroupID: []string{"retail"}})), "1700000072")
	require.NoError(t, err)
	require.Len(t, token.Slot.AdditionalInformation.PriceInfo, base+2)
	stored := mustToken(t, svc, "T1").Slot.AdditionalInformation.PriceInfo
	require.Len(t, stored, base+2)
	assert.Equal(t, []string{"retail"}, stored[base+1].PriceDetailedInfo.Group)

	emitted := eventsNamed(t, store, domain.EventUpdatePriceInfo)
	require.Len(t, emitted, 3)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(emitted[0].Payload, &payload))
	assert.Equal(t, "T1", payload["stock_id"])
}

func TestUpdatePriceInfoRejections(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		strategy models.PriceStrategy
		code     int
	}{
		{"add without price id", domain.PriceStrategyAdd, priceStrategy("", models.PriceGroups{GroupID: []string{"g1"}}), domain.CodeNotFound},
		{"add without groups", domain.PriceStrategyAdd, priceStrategy("P2", models.PriceGroups{}), domain.CodeNotFound},
		{"add existing price", domain.PriceStrategyAdd, priceStrategy("P1", models.PriceGroups{GroupID: []string{"g1"}}), domain.CodeConflict},
		{"update unknown price", domain.PriceStrategyUpdate, priceStrategy("P9", models.PriceGroups{}), domain.CodeNotExist},
		{"unknown kind", "7", priceStrategy("P2", models.PriceGroups{GroupID: []string{"g1"}}), domain.CodeTypeMismatch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newTestService(t)
			ctx := context.Background()
			mustMint(t, svc, "T1", alice.ID, 10)
			_, err := svc.UpdatePriceInfo(ctx, admin, "T1", domain.PriceStrategyAdd,
				rawJSON(t, priceStrategy("P1", models.PriceGroups{GroupID: []string{"g1"}})), "1700000070")
			require.NoError(t, err)
			before := snapshot(t, store)

			_, err = svc.UpdatePriceInfo(ctx, admin, "T1", tc.kind, rawJSON(t, tc.strategy), "1700000071")
			requireCode(t, err, tc.code)
			assert.Equal(t, before, snapshot(t, store))
		})
	}
}

func TestUpdateStockInfo(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	mustMintWithStatus(t, svc, "S1-a", "0")
	mustMintWithStatus(t, svc, "S1-b", "2")
	mustMintWithStatus(t, svc, "S2-a", "0")

	times := models.StockTimes{
		PurchaseBeginTime:   "2024-06-01",
		PurchaseEndTime:     "2024-06-30",
		StockEnterBeginTime: "2024-06-02",
		StockEnterEndTime:   "2024-07-01",
	}
	require.NoError(t, svc.UpdateStockInfo(ctx, admin, "S1", rawJSON(t, times), "1700000080"))

	stock := mustToken(t, svc, "S1-a").Slot.BasicInformation.SimpleTicket.TicketStock
	assert.Equal(t, "2024-06-01", stock.PurchaseBeginTime)
	assert.Equal(t, "2024-07-01", stock.StockEnterEndTime)
	assert.Empty(t, mustToken(t, svc, "S1-b").Slot.BasicInformation.SimpleTicket.TicketStock.PurchaseBeginTime)
	assert.Empty(t, mustToken(t, svc, "S2-a").Slot.BasicInformation.SimpleTicket.TicketStock.PurchaseBeginTime)

	emitted := eventsNamed(t, store, domain.EventUpdateStockInfo)
	require.Len(t, emitted, 1)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(emitted[0].Payload, &payload))
	assert.Equal(t, "S1", payload["stock_id"])
	assert.Equal(t, "batch-1", payload["stock_batch_number"])
	assert.Equal(t, "scenic-1", payload["owner"])

	before := snapshot(t, store)
	err := svc.UpdateStockInfo(ctx, admin, "S9", rawJSON(t, times), "1700000081")
	requireCode(t, err, domain.CodeNotExist)
	err = svc.UpdateStockInfo(ctx, admin, "S1", json.RawMessage(`{"purchase_begin_time":"2024-06-01"}`), "1700000081")
	requireCode(t, err, domain.CodeTypeMismatch)
	assert.Equal(t, before, snapshot(t, store))
}

func TestRequestIDGuardsEveryWrite(t *testing.T) {
	svc, store := newTestService(t)
	ctx := WithRequestID(context.Background(), "req-7")
	mustMint(t, svc, "T1", alice.ID, 1)

	updates := rawJSON(t, []models.TicketStatusUpdate{{TicketID: "T1", Status: "3"}})
	require.NoError(t, svc.TimerUpdateTickets(ctx, admin, updates, "1700000090"))
	before := snapshot(t, store)

	err := svc.TimerUpdateTickets(ctx, admin, updates, "1700000091")
	requireCode(t, err, domain.CodeConflict)
	err = svc.StoreOrder(ctx, admin, orderPayload(t, "O1", "O1-1", "T1"), "1700000091")
	requireCode(t, err, domain.CodeConflict)
	assert.Equal(t, before, snapshot(t, store))

	require.NoError(t, svc.StoreOrder(WithRequestID(context.Background(), "req-8"), admin,
		orderPayload(t, "O1", "O1-1", "T1"), "1700000092"))
}

func TestOwnerQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustMint(t, svc, "T1", alice.ID, 100)
	mustMint(t, svc, "T2", alice.ID, 5)
	mustMint(t, svc, "T3", bob.ID, 5)

	fives, err := svc.QueryByOwnerAndBalance(ctx, bob, alice.ID, "5")
	require.NoError(t, err)
	assert.Equal(t, []models.TokenSummary{{TicketID: "T2", Owner: alice.ID, Balance: 5}}, fives)

	_, err = svc.QueryByOwnerAndBalance(ctx, bob, alice.ID, "five")
	requireCode(t, err, domain.CodeNumberError)
	_, err = svc.QueryByOwnerAndBalance(ctx, bob, "", "5")
	requireCode(t, err, domain.CodeNotFound)

	n, err := svc.ClientAccountBalance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = svc.ClientAccountBalance(ctx, admin)
	require.NoError(t, err)
	assert.Zero(t, n)
}
