package httpx

import (
	"errors"
	"log/slog"
	"net/http"
)

// Mapping binds a sentinel error to its HTTP representation.
type Mapping struct {
	Err    error
	Status int
	Title  string
}

// ErrorMapper translates domain errors into RFC7807 responses. Errors without
// a mapping are logged under the scope and masked as 500.
type ErrorMapper struct {
	logger   *slog.Logger
	scope    string
	mappings []Mapping
}

// NewErrorMapper builds a mapper for one handler scope.
func NewErrorMapper(logger *slog.Logger, scope string, mappings ...Mapping) *ErrorMapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorMapper{logger: logger, scope: scope, mappings: mappings}
}

// Respond writes the problem response for err.
func (m *ErrorMapper) Respond(w http.ResponseWriter, err error) {
	for _, mapping := range m.mappings {
		if errors.Is(err, mapping.Err) {
			Problem(w, mapping.Status, mapping.Title, err.Error())
			return
		}
	}
	m.logger.Error(m.scope, slog.Any("error", err))
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
