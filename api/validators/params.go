package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
)

// PathParam returns the trimmed URL parameter.
func PathParam(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}

// ParsePathUUID extracts and parses a UUID URL parameter.
func ParsePathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a valid uuid").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}
