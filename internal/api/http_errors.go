package api

import (
	"errors"
	"net/http"
	"sort"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

func httpStatusForDomainError(err error) (int, bool) {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		return 0, false
	}

	switch domErr.Category {
	case core.ErrCatValidation:
		return http.StatusUnprocessableEntity, true
	case core.ErrCatNotFound:
		return http.StatusNotFound, true
	case core.ErrCatConflict, core.ErrCatState:
		return http.StatusConflict, true
	case core.ErrCatNetwork:
		return http.StatusBadGateway, true
	case core.ErrCatTimeout:
		return http.StatusGatewayTimeout, true
	default:
		return http.StatusInternalServerError, true
	}
}

// errorResponse is the error payload. Fields is set for validation failures.
type errorResponse struct {
	Error  string                     `json:"error"`
	Code   string                     `json:"code,omitempty"`
	Fields []settings.ValidationError `json:"fields,omitempty"`
}

// respondDomainError maps err to a status and error payload.
func respondDomainError(w http.ResponseWriter, err error) {
	status, ok := httpStatusForDomainError(err)
	if !ok {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var domErr *core.DomainError
	errors.As(err, &domErr)
	resp := errorResponse{Error: domErr.Message, Code: domErr.Code}
	if domErr.Category == core.ErrCatValidation {
		resp.Fields = fieldsFromDetails(domErr.Details)
	}
	respondJSON(w, status, resp)
}

func fieldsFromDetails(details map[string]interface{}) []settings.ValidationError {
	fields := make([]settings.ValidationError, 0, len(details))
	for k, v := range details {
		msg, _ := v.(string)
		fields = append(fields, settings.ValidationError{Field: k, Message: msg})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return fields
}
