package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anziyang2000/hq-code-sub003/internal/api/problem"
	"github.com/anziyang2000/hq-code-sub003/internal/service"
)

// TicketHandler serves the admin-only ticket maintenance calls: check-ins,
// scheduled status changes, reissues and stock window edits.
type TicketHandler struct {
	svc *service.ContractService
}

func NewTicketHandler(svc *service.ContractService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

type ticketBatchRequest struct {
	Items       json.RawMessage `json:"items"`
	TriggerTime json.Number     `json:"trigger_time"`
	RequestID   string          `json:"request_id"`
}

func (h *TicketHandler) Verify(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req ticketBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.VerifyTicket(requestContext(r, req.RequestID), caller, req.Items, req.TriggerTime); err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	respondSuccess(w)
}

func (h *TicketHandler) TimerUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req ticketBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.TimerUpdateTickets(requestContext(r, req.RequestID), caller, req.Items, req.TriggerTime); err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	respondSuccess(w)
}

func (h *TicketHandler) Reissue(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req ticketBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.UpdateIssueTickets(requestContext(r, req.RequestID), caller, req.Items, req.TriggerTime); err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	respondSuccess(w)
}

func (h *TicketHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Fields      json.RawMessage `json:"fields"`
		TriggerTime json.Number     `json:"trigger_time"`
		RequestID   string          `json:"request_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.UpdateStockInfo(requestContext(r, req.RequestID), caller, chi.URLParam(r, "stockNumber"), req.Fields, req.TriggerTime); err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	respondSuccess(w)
}
