package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	if v, err := parsePositiveInt("", 100, 1, 500); err != nil || v != 100 {
		t.Fatalf("empty should default: %d %v", v, err)
	}
	if v, err := parsePositiveInt(" 42 ", 100, 1, 500); err != nil || v != 42 {
		t.Fatalf("trimmed integer: %d %v", v, err)
	}
	if _, err := parsePositiveInt("900", 100, 1, 500); err == nil {
		t.Fatalf("out of range should fail")
	}
	if _, err := parsePositiveInt("abc", 100, 1, 500); err == nil {
		t.Fatalf("non-integer should fail")
	}
}

func TestParseFloatParam(t *testing.T) {
	t.Parallel()

	if v, err := parseFloatParam("", 0.35, 0, 1); err != nil || v != 0.35 {
		t.Fatalf("empty should default: %f %v", v, err)
	}
	if v, err := parseFloatParam("0.5", 0, 0, 1); err != nil || v != 0.5 {
		t.Fatalf("parse: %f %v", v, err)
	}
	if _, err := parseFloatParam("1.5", 0, 0, 1); err == nil {
		t.Fatalf("above max should fail")
	}
	if _, err := parseFloatParam("not a number", 0, 0, 1); err == nil {
		t.Fatalf("garbage should fail")
	}
}

func TestJSendEnvelopes(t *testing.T) {
	t.Parallel()

	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := success(c, map[string]any{"ok": true}); err != nil {
		t.Fatalf("success: %v", err)
	}
	var envelope map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope["status"] != "success" {
		t.Fatalf("unexpected envelope %v", envelope)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := failValidation(c, map[string]string{"limit": "must be an integer"}); err != nil {
		t.Fatalf("failValidation: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "validation_errors") {
		t.Fatalf("missing validation errors: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := internalError(c, "boom"); err != nil {
		t.Fatalf("internalError: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"error"`) {
		t.Fatalf("missing error status: %s", rec.Body.String())
	}
}

func TestHandleSuggestionsRejectsBadThreshold(t *testing.T) {
	t.Parallel()

	s := &Server{}
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/suggestions?threshold=1.5", nil), rec)
	if err := s.handleSuggestions(c); err != nil {
		t.Fatalf("handleSuggestions: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"threshold"`) {
		t.Fatalf("expected threshold validation error: %s", rec.Body.String())
	}
}

func TestHandleSimilarRejectsBadMin(t *testing.T) {
	t.Parallel()

	s := &Server{}
	e := echo.New()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/assets/abc/similar?min=abc", nil)
	c := e.NewContext(req, rec)
	c.SetParamNames("asset_uuid")
	c.SetParamValues("abc")
	if err := s.handleSimilar(c); err != nil {
		t.Fatalf("handleSimilar: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"min"`) {
		t.Fatalf("expected min validation error: %s", rec.Body.String())
	}
}

func TestHTTPErrorHandlerShapes(t *testing.T) {
	t.Parallel()

	s := &Server{}
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/clusters", nil), rec)
	s.httpErrorHandler(echo.NewHTTPError(http.StatusNotFound, "Cluster not found"), c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"fail"`) {
		t.Fatalf("4xx should be a jsend fail: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil), rec)
	s.httpErrorHandler(echo.NewHTTPError(http.StatusInternalServerError), c)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"error"`) {
		t.Fatalf("5xx should be a jsend error: %s", rec.Body.String())
	}
}
