package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
)

// validate checks request DTOs against their struct tags. A single instance
// is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// decodeJSON decodes and validates a request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("body", "malformed JSON request body")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return domain.NewValidationError(first.Field(), "failed validation on '"+first.Tag()+"'")
		}
		return domain.NewValidationError("body", "invalid request body")
	}

	return nil
}

// pagination reads offset/limit query parameters with bounds applied.
func pagination(r *http.Request) (offset, limit int) {
	limit = defaultPageSize

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
			if limit > maxPageSize {
				limit = maxPageSize
			}
		}
	}

	return offset, limit
}

// pathID parses a numeric path parameter. A malformed value maps to the
// resource's not-found error so probing with garbage IDs behaves like
// probing with unknown ones.
func pathID(value string, notFound error) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 1 {
		return 0, notFound
	}
	return id, nil
}
