package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sited-io/websites/internal/auth"
	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/status"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes err as {code, message}. Internal causes are logged
// and replaced by a generic message.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	code := status.CodeOf(err)
	message := "internal error"
	if code == status.Internal {
		logger.Error("request failed", zap.Error(err))
	} else {
		var se *status.Error
		if errors.As(err, &se) {
			message = se.Message
		}
	}
	respondJSON(w, code.HTTPStatus(), errorBody{Code: code.String(), Message: message})
}

func (h *handlers) fail(w http.ResponseWriter, err error) {
	respondError(w, h.logger, err)
}

// decode reads a JSON body into v and validates it.
func (h *handlers) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return status.Wrap(status.InvalidArgument, err, "malformed request body")
	}
	if err := h.validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return status.Wrap(status.InvalidArgument, err, "invalid request")
	}
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = fmt.Sprintf("%s failed %s", strings.ToLower(f.Field()), f.Tag())
	}
	return status.InvalidArgumentf("invalid request: %s", strings.Join(msgs, ", "))
}

func userID(r *http.Request) (string, error) {
	return auth.UserID(r.Context())
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, status.InvalidArgumentf("%s must be an integer", name)
	}
	return id, nil
}

func optionalQuery(r *http.Request, name string) *string {
	if !r.URL.Query().Has(name) {
		return nil
	}
	v := r.URL.Query().Get(name)
	return &v
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, status.InvalidArgumentf("%s must be an integer", name)
	}
	return n, nil
}

func pagination(r *http.Request) (models.Pagination, error) {
	page, err := intQuery(r, "page", models.DefaultPage)
	if err != nil {
		return models.Pagination{}, err
	}
	size, err := intQuery(r, "size", models.DefaultPageSize)
	if err != nil {
		return models.Pagination{}, err
	}
	p, err := models.NewPagination(page, size)
	if err != nil {
		return models.Pagination{}, status.Wrap(status.InvalidArgument, err, err.Error())
	}
	return p, nil
}
