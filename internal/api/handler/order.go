package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anziyang2000/hq-code-sub003/internal/api/problem"
	"github.com/anziyang2000/hq-code-sub003/internal/service"
)

// OrderHandler serves the order and distribution ledger.
type OrderHandler struct {
	svc *service.ContractService
}

func NewOrderHandler(svc *service.ContractService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type payloadRequest struct {
	Payload     json.RawMessage `json:"payload"`
	TriggerTime json.Number     `json:"trigger_time"`
	RequestID   string          `json:"request_id"`
}

func (h *OrderHandler) StoreOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req payloadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.StoreOrder(requestContext(r, req.RequestID), caller, req.Payload, req.TriggerTime); err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	respondSuccess(w)
}

func (h *OrderHandler) StoreRefund(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req payloadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.StoreRefund(requestContext(r, req.RequestID), caller, req.Payload, req.TriggerTime); err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	respondSuccess(w)
}

func (h *OrderHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req service.DistributionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.Distribution(r.Context(), caller, req); err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	respondSuccess(w)
}

func (h *OrderHandler) ActivateTickets(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Activations json.RawMessage `json:"activations"`
		TriggerTime json.Number     `json:"trigger_time"`
		RequestID   string          `json:"request_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.ActivateTickets(requestContext(r, req.RequestID), caller, req.Activations, req.TriggerTime); err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	respondSuccess(w)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	record, err := h.svc.ReadOrder(r.Context(), caller, chi.URLParam(r, "orderID"))
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(record)
}
