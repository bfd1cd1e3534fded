// Package httpx holds the JSON request/response plumbing shared by the
// module handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Decode reads a JSON body into v and runs struct-tag validation on it.
// Failures come back as apperr Validation errors.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("INVALID_BODY", "invalid request body: %v", err)
	}
	return Validate(v)
}

// Validate runs struct-tag validation on v.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("INVALID_BODY", "invalid request: %v", err)
	}
	fields := make(map[string]any, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		fields[name] = fe.Tag()
		msgs = append(msgs, fmt.Sprintf("%s failed %s", name, fe.Tag()))
	}
	e := apperr.Validation("INVALID_FIELDS", "%s", strings.Join(msgs, "; "))
	e.Details = map[string]any{"fields": fields}
	return e
}

// Respond writes body as JSON with the given status.
func Respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error *apperr.Error `json:"error"`
}

// Error writes err using its apperr classification. Unclassified errors are
// logged and reported as a generic internal error.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = classify(logger, err)
	}
	if e.Kind == apperr.KindInfrastructure && logger != nil {
		logger.Error("infrastructure failure", zap.String("code", e.Code), zap.Error(err))
	}
	Respond(w, apperr.HTTPStatus(e.Kind), errorBody{Error: e})
}

func classify(logger *zap.Logger, err error) *apperr.Error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		if logger != nil {
			logger.Error("unhandled request error", zap.Error(err))
		}
		return &apperr.Error{Kind: apperr.KindInternal, Code: "INTERNAL", Message: "internal server error"}
	}
	e := &apperr.Error{Kind: kind, Code: apperr.CodeOf(err), Message: err.Error()}
	var d interface{ ErrorDetails() map[string]any }
	if errors.As(err, &d) {
		e.Details = d.ErrorDetails()
	}
	return e
}
