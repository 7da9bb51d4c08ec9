package handler

import (
	"net/http"

	"github.com/anziyang2000/hq-code-sub003/internal/api/problem"
	"github.com/anziyang2000/hq-code-sub003/internal/service"
)

// ContractHandler serves contract administration and option reads.
type ContractHandler struct {
	svc *service.ContractService
}

func NewContractHandler(svc *service.ContractService) *ContractHandler {
	return &ContractHandler{svc: svc}
}

func (h *ContractHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
		Org    string `json:"org"`
		Admin  string `json:"admin"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	info, err := h.svc.Initialize(r.Context(), caller, req.Name, req.Symbol, req.Org, req.Admin)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, info)
}

func (h *ContractHandler) Info(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	info, err := h.svc.Info(r.Context(), caller)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, info)
}

func (h *ContractHandler) Name(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	name, err := h.svc.Name(r.Context(), caller)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (h *ContractHandler) Symbol(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	symbol, err := h.svc.Symbol(r.Context(), caller)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"symbol": symbol})
}

func (h *ContractHandler) SetOrgAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Org   string `json:"org"`
		Admin string `json:"admin"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	mapping, err := h.svc.SetOrgAdmin(r.Context(), caller, req.Org, req.Admin)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, mapping)
}

func (h *ContractHandler) OrgAdmins(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	mapping, err := h.svc.OrgAdmins(r.Context(), caller)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, mapping)
}

// ToggleLock flips the global lock and returns the new state.
func (h *ContractHandler) ToggleLock(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	locked, err := h.svc.SetLock(r.Context(), caller)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]bool{"locked": locked})
}

func (h *ContractHandler) Lock(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	locked, err := h.svc.Lock(r.Context(), caller)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]bool{"locked": locked})
}

func (h *ContractHandler) ClientAccountID(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	id, err := h.svc.ClientAccountID(r.Context(), caller)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"client_account_id": id})
}

func (h *ContractHandler) ClientAccountBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	n, err := h.svc.ClientAccountBalance(r.Context(), caller)
	if err != nil {
		problem.WriteContract(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]int{"balance": n})
}
