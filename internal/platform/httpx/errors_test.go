package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestErrorMapperMapsSentinels(t *testing.T) {
	errMissing := errors.New("thing: not found")
	mapper := NewErrorMapper(nil, "thing request",
		Mapping{Err: errMissing, Status: http.StatusNotFound, Title: "Not Found"})

	rr := httptest.NewRecorder()
	mapper.Respond(rr, fmt.Errorf("lookup: %w", errMissing))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Not Found") {
		t.Fatalf("expected problem title, got: %s", rr.Body.String())
	}
}

func TestErrorMapperMasksUnknownErrors(t *testing.T) {
	mapper := NewErrorMapper(nil, "thing request")

	rr := httptest.NewRecorder()
	mapper.Respond(rr, errors.New("boom"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "boom") {
		t.Fatalf("internal detail leaked: %s", rr.Body.String())
	}
}
