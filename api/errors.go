package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/logger"
)

// =============================================================================
// RESPONSES
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps an engine error kind to an HTTP status.
//
//	ErrValidation             400
//	ErrUnauthorized           403
//	ErrNotFound               404
//	ErrStateConflict          409
//	ErrConcurrentModification 409 (code concurrent_modification, retry)
//	ErrInsufficientBalance    422
//	anything else             500
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error().Err(err).
			Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, leave.ErrValidation):
		return http.StatusBadRequest, "validation", "Validation failed"
	case errors.Is(err, leave.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized", "Not permitted"
	case errors.Is(err, leave.ErrNotFound):
		return http.StatusNotFound, "not_found", "Not found"
	case errors.Is(err, leave.ErrConcurrentModification):
		return http.StatusConflict, "concurrent_modification", "Modified concurrently, please retry"
	case errors.Is(err, leave.ErrStateConflict):
		return http.StatusConflict, "state_conflict", "Conflict, please refresh"
	case errors.Is(err, leave.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "insufficient_balance", "Insufficient balance"
	default:
		return http.StatusInternalServerError, "internal", "Internal error"
	}
}

// =============================================================================
// DECODING
// =============================================================================

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates its shape. Unknown fields
// are rejected. Domain rules stay in the engine.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fieldPath(fe)] = describe(fe)
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Code: "validation", Details: fields})
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// fieldPath drops the struct name from the namespace: "SubmitRequest.breakdown[0].date"
// becomes "breakdown[0].date".
func fieldPath(fe validator.FieldError) string {
	_, rest, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return rest
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
		}
		return "failed " + fe.Tag()
	}
}
