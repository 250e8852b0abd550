package txpipe

import (
	"encoding/json"
	"net/http"
)

// Result is the uniform outcome of a transaction or query.
type Result struct {
	Success  bool    `json:"success"`
	Error    string  `json:"error,omitempty"`
	Code     Code    `json:"code,omitempty"`
	Expected *uint64 `json:"expected,omitempty"`

	Balance     *int64  `json:"balance,omitempty"`
	Sequence    *uint64 `json:"sequence,omitempty"`
	TotalSupply *int64  `json:"total_supply,omitempty"`
	MaxSupply   *int64  `json:"max_supply,omitempty"`
	Precision   *int    `json:"precision,omitempty"`

	// set for balance answers so that an unknown address renders as null
	hasBalance bool
}

// MarshalJSON renders only the fields relevant to the outcome. A balance
// answer always carries the balance key, null when the address is unknown.
func (r Result) MarshalJSON() ([]byte, error) {
	out := map[string]any{"success": r.Success}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if r.Code != "" {
		out["code"] = r.Code
	}
	if r.Expected != nil {
		out["expected"] = *r.Expected
	}
	if r.hasBalance || r.Balance != nil {
		out["balance"] = r.Balance
	}
	if r.Sequence != nil {
		out["sequence"] = *r.Sequence
	}
	if r.TotalSupply != nil {
		out["total_supply"] = *r.TotalSupply
	}
	if r.MaxSupply != nil {
		out["max_supply"] = *r.MaxSupply
	}
	if r.Precision != nil {
		out["precision"] = *r.Precision
	}
	return json.Marshal(out)
}

func ok() Result {
	return Result{Success: true}
}

func failure(err error) Result {
	code, msg := classify(err)
	res := Result{Success: false, Error: msg, Code: code}
	if se := sequenceError(err); se != nil {
		expected := se.Expected
		res.Expected = &expected
	}
	return res
}

// Reject reports a request that never reached the pipeline, such as an
// unreadable body, as malformed.
func Reject(reason string) Result {
	return failure(malformed("%s", reason))
}

// Status maps a result onto the HTTP status the node answers with.
func (r Result) Status() int {
	if r.Success {
		return http.StatusOK
	}
	switch r.Code {
	case CodeMalformedRequest, CodeUnknownRoute:
		return http.StatusBadRequest
	case CodeBadSignature:
		return http.StatusUnauthorized
	case CodeBadSequenceNumber:
		return http.StatusConflict
	case CodeUnknownAddress, CodeInsufficientBalance, CodeInvalidAmount, CodeSupplyExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
