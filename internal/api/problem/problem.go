package problem

import (
	"encoding/json"
	"net/http"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
)

const contentType = "application/problem+json"
const baseTypeURL = "https://errors.ticketledger.dev/"

// Details represents RFC 7807 Problem Details.
type Details struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	Status       int    `json:"status"`
	Detail       string `json:"detail"`
	Instance     string `json:"instance"`
	RequestID    string `json:"request_id"`
	ContractCode int    `json:"contract_code,omitempty"`
}

func Type(slug string) string {
	return baseTypeURL + slug
}

var contractStatus = map[int]int{
	domain.CodeNumberError:     http.StatusUnprocessableEntity,
	domain.CodeConflict:        http.StatusConflict,
	domain.CodeParseError:      http.StatusBadRequest,
	domain.CodeStoreError:      http.StatusInternalServerError,
	domain.CodeNotFound:        http.StatusBadRequest,
	domain.CodeTypeMismatch:    http.StatusBadRequest,
	domain.CodeNotOwner:        http.StatusForbidden,
	domain.CodeNotExist:        http.StatusNotFound,
	domain.CodeServiceInit:     http.StatusPreconditionFailed,
	domain.CodeServiceIdentity: http.StatusForbidden,
	domain.CodeServiceLock:     http.StatusLocked,
}

// StatusFor maps a contract code to its HTTP status. Unknown codes are
// server errors.
func StatusFor(code int) int {
	if status, ok := contractStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Write sends RFC 7807-compliant errors.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	WriteDetails(w, r, Details{Type: problemType, Title: title, Status: status, Detail: detail})
}

// WriteContract renders err as a problem carrying its contract code.
func WriteContract(w http.ResponseWriter, r *http.Request, err error) {
	ce := domain.AsContractError(err)
	status := StatusFor(ce.Code)
	detail := ce.Msg
	if status == http.StatusInternalServerError {
		detail = "ledger store failure"
	}
	WriteDetails(w, r, Details{
		Type:         Type("contract/" + ce.Name()),
		Status:       status,
		Detail:       detail,
		ContractCode: ce.Code,
	})
}

func WriteDetails(w http.ResponseWriter, r *http.Request, d Details) {
	if d.Title == "" {
		d.Title = http.StatusText(d.Status)
	}
	if d.Type == "" {
		d.Type = "about:blank"
	}
	d.RequestID = w.Header().Get("X-Trace-ID")
	if r != nil {
		d.Instance = r.URL.Path
		if d.RequestID == "" {
			d.RequestID = r.Header.Get("X-Trace-ID")
		}
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(d.Status)
	_ = json.NewEncoder(w).Encode(d)
}
