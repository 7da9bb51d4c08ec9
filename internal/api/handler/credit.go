package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anziyang2000/hq-code-sub003/internal/api/problem"
	"github.com/anziyang2000/hq-code-sub003/internal/service"
)

// CreditHandler serves credit lines, credit transfers and payment flows.
type CreditHandler struct {
	svc *service.ContractService
}

func NewCreditHandler(svc *service.ContractService) *CreditHandler {
	return &CreditHandler{svc: svc}
}

func (h *CreditHandler) StoreCreditInfo(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Type        string          `json:"type"`
		Info        json.RawMessage `json:"info"`
		TriggerTime json.Number     `json:"trigger_time"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	acct, err := h.svc.StoreCreditInfo(r.Context(), caller, req.Type, req.Info, req.TriggerTime)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, acct)
}

func (h *CreditHandler) TransferCredit(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		From        string          `json:"from"`
		To          string          `json:"to"`
		Info        json.RawMessage `json:"info"`
		TriggerTime json.Number     `json:"trigger_time"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.TransferCredit(r.Context(), caller, req.From, req.To, req.Info, req.TriggerTime)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, res)
}

func (h *CreditHandler) PaymentFlow(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Info        json.RawMessage `json:"info"`
		TriggerTime json.Number     `json:"trigger_time"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.svc.PaymentFlow(r.Context(), caller, req.Info, req.TriggerTime)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, rec)
}

func (h *CreditHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	acct, err := h.svc.ReadCredit(r.Context(), caller, chi.URLParam(r, "assetsKey"))
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, acct)
}
