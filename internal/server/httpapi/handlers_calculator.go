package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carbonx-dev/carbonx/internal/server/services"
)

// calculateRequest keeps the operands raw so that strings, booleans and null
// can be told apart from numbers.
type calculateRequest struct {
	Num1      json.RawMessage `json:"num1"`
	Num2      json.RawMessage `json:"num2"`
	Operation string          `json:"operation"`
}

type calculateResponse struct {
	Result      float64               `json:"result"`
	Calculation *services.Calculation `json:"calculation"`
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	num1, ok1 := jsonNumber(req.Num1)
	num2, ok2 := jsonNumber(req.Num2)
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, codeValidation, "Invalid input numbers")
		return
	}

	result, calc, err := services.Calculate(num1, num2, req.Operation)
	if err != nil {
		if errors.Is(err, services.ErrInvalidOperation) {
			writeError(w, http.StatusBadRequest, codeValidation, "Invalid operation")
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, calculateResponse{Result: result, Calculation: calc})
}

// jsonNumber accepts only a JSON number literal.
func jsonNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}
