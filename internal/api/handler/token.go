package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anziyang2000/hq-code-sub003/internal/api/problem"
	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/models"
	"github.com/anziyang2000/hq-code-sub003/internal/service"
)

// TokenHandler serves the token registry: mint, split, burn, slot updates
// and token reads.
type TokenHandler struct {
	svc *service.ContractService
}

func NewTokenHandler(svc *service.ContractService) *TokenHandler {
	return &TokenHandler{svc: svc}
}

func (h *TokenHandler) Mint(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req service.MintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := h.svc.Mint(r.Context(), caller, req)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, token)
}

func (h *TokenHandler) Split(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req service.SplitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.Split(r.Context(), caller, req)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, res)
}

func (h *TokenHandler) Burn(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req service.BurnRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.TokenID = chi.URLParam(r, "tokenID")
	if err := h.svc.Burn(r.Context(), caller, req); err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	respondSuccess(w)
}

func (h *TokenHandler) UpdateTicketInfo(w http.ResponseWriter, r *http.Request) {
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
	token, err := h.svc.UpdateTicketInfo(requestContext(r, req.RequestID), caller, chi.URLParam(r, "tokenID"), req.Fields, req.TriggerTime)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, token)
}

func (h *TokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	token, err := h.svc.ReadToken(r.Context(), caller, chi.URLParam(r, "tokenID"))
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, token)
}

func (h *TokenHandler) Balance(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	tokenID := chi.URLParam(r, "tokenID")
	balance, err := h.svc.BalanceOf(r.Context(), caller, tokenID)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"token_id": tokenID, "balance": balance})
}

func (h *TokenHandler) Owner(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	tokenID := chi.URLParam(r, "tokenID")
	owner, err := h.svc.OwnerOf(r.Context(), caller, tokenID)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"token_id": tokenID, "owner": owner})
}

func (h *TokenHandler) Slot(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	slot, err := h.svc.SlotOf(r.Context(), caller, chi.URLParam(r, "tokenID"))
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, slot)
}

func (h *TokenHandler) URI(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	tokenID := chi.URLParam(r, "tokenID")
	uri, err := h.svc.TokenURI(r.Context(), caller, tokenID)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"token_id": tokenID, "token_url": uri})
}

func (h *TokenHandler) TotalSupply(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	n, err := h.svc.TotalSupply(r.Context(), caller)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]int{"total_supply": n})
}

// List answers ?owner= and ?prefix= queries. Exactly one filter is
// expected; owner wins when both are given.
// UpdatePriceInfo adds ("0") or updates ("1") a distribution price on the
// token's slot; an empty type appends a direct-sale price.
func (h *TokenHandler) UpdatePriceInfo(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Type        string          `json:"type"`
		Fields      json.RawMessage `json:"fields"`
		TriggerTime json.Number     `json:"trigger_time"`
		RequestID   string          `json:"request_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := h.svc.UpdatePriceInfo(requestContext(r, req.RequestID), caller, chi.URLParam(r, "tokenID"), req.Type, req.Fields, req.TriggerTime)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, token)
}

func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var (
		rows []models.TokenSummary
		err  error
	)
	switch {
	case q.Has("owner") && q.Has("balance"):
		rows, err = h.svc.QueryByOwnerAndBalance(r.Context(), caller, q.Get("owner"), q.Get("balance"))
	case q.Has("owner"):
		rows, err = h.svc.QueryByOwner(r.Context(), caller, q.Get("owner"))
	case q.Has("prefix"):
		rows, err = h.svc.QueryByTokenIDPrefix(r.Context(), caller, q.Get("prefix"))
	default:
		err = domain.Errorf(domain.CodeNotFound, "owner or prefix query parameter is required")
	}
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	if rows == nil {
		rows = []models.TokenSummary{}
	}
	RespondJSON(w, http.StatusOK, rows)
}
