package api

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/exact"
)

// ErrorBody is the JSON form of a failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error code and a user-facing message.
type ErrorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// statusOf maps an error to an HTTP status by its code.
func statusOf(err error) int {
	code := errors.GetCode(err)
	switch {
	case code == errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.CategoryOf(code) == errors.CategoryConfiguration:
		return http.StatusBadRequest
	case errors.CategoryOf(code) == errors.CategoryGeometry,
		errors.CategoryOf(code) == errors.CategoryArithmetic:
		return http.StatusUnprocessableEntity
	case code == errors.ErrCodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}

	msg := errors.UserMessage(err)
	if status >= 500 {
		s.opts.Logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", middleware.GetReqID(r.Context()))
		msg = "internal error"
	}
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: msg}})
}

// =============================================================================
// Validation
// =============================================================================

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("curvature", validateCurvature)
	return v
}

// validateCurvature accepts any string ParseLoose understands whose value
// is not zero.
func validateCurvature(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if errors.ValidateNumberString(s) != nil {
		return false
	}
	n, err := exact.ParseLoose(s)
	return err == nil && !n.IsZero()
}

// check runs struct validation and turns failures into INVALID_INPUT.
func (s *Server) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request")
	}
	problems := make([]string, len(verrs))
	for i, fe := range verrs {
		problems[i] = describe(fe)
	}
	return errors.New(errors.ErrCodeInvalidInput, "%s", strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s allows at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "curvature":
		return fmt.Sprintf("%s: %q is not a non-zero exact number", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
