package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/anziyang2000/hq-code-sub003/internal/api/problem"
	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/identity"
	"github.com/anziyang2000/hq-code-sub003/internal/service"
)

// maxBodyBytes caps request payloads; order payloads with many buyers stay
// well below it.
const maxBodyBytes = 4 << 20

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// respondSuccess writes the contract success envelope for calls that
// produce no record.
func respondSuccess(w http.ResponseWriter) {
	RespondJSON(w, http.StatusOK, domain.ContractError{Code: domain.CodeSuccess, Msg: "success"})
}

func requestCaller(w http.ResponseWriter, r *http.Request) (identity.Caller, bool) {
	caller, ok := identity.CallerFrom(r.Context())
	if !ok || caller.ID == "" {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-caller", "missing caller in auth context")
		return identity.Caller{}, false
	}
	return caller, true
}

// decodeBody decodes the JSON request body into dst. An empty body leaves
// dst untouched; malformed bodies are reported as contract parse errors.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		problem.WriteContract(w, r, domain.Errorf(domain.CodeParseError, "invalid request body: %v", err))
		return false
	}
	return true
}

// requestContext carries the body's request_id into the service call so a
// replayed write is rejected by the ledger.
func requestContext(r *http.Request, requestID string) context.Context {
	return service.WithRequestID(r.Context(), requestID)
}
