package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestGenerateSpec_Structure(t *testing.T) {
	g := NewGenerator("1.0.0", "http://localhost:4001/api")
	spec := g.GenerateSpec()

	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected openapi '3.0.3', got %v", spec["openapi"])
	}
	info, ok := spec["info"].(map[string]interface{})
	if !ok {
		t.Fatal("expected info object")
	}
	if info["version"] != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %v", info["version"])
	}
	servers, ok := spec["servers"].([]map[string]string)
	if !ok || len(servers) != 1 || servers[0]["url"] != "http://localhost:4001/api" {
		t.Errorf("unexpected servers %v", spec["servers"])
	}
}

func TestGenerateSpec_Paths(t *testing.T) {
	spec := NewGenerator("1.0.0", "").GenerateSpec()
	paths := spec["paths"].(map[string]interface{})

	count := 0
	for _, item := range paths {
		count += len(item.(map[string]interface{}))
	}
	if count != len(Operations) {
		t.Errorf("expected %d operations, got %d", len(Operations), count)
	}

	patient, ok := paths["/patients/{id}"].(map[string]interface{})
	if !ok {
		t.Fatal("expected /patients/{id}")
	}
	for _, method := range []string{"get", "put", "delete"} {
		if _, ok := patient[method]; !ok {
			t.Errorf("expected %s on /patients/{id}", method)
		}
	}

	put := patient["put"].(map[string]interface{})
	responses := put["responses"].(map[string]interface{})
	for _, code := range []string{"200", "400", "404"} {
		if _, ok := responses[code]; !ok {
			t.Errorf("updatePatient: missing %s response", code)
		}
	}
	if _, ok := put["requestBody"]; !ok {
		t.Error("updatePatient: expected request body")
	}
}

func TestPathParams(t *testing.T) {
	got := pathParams("/patients/{id}/records/{rid}/archive")
	if len(got) != 2 || got[0] != "id" || got[1] != "rid" {
		t.Errorf("unexpected params %v", got)
	}
	if got := pathParams("/export/records"); len(got) != 0 {
		t.Errorf("expected no params, got %v", got)
	}
}

func TestComponentSchemas_References(t *testing.T) {
	spec := NewGenerator("1.0.0", "").GenerateSpec()
	raw, err := json.Marshal(spec)
	if err != nil {
		t.Fatal(err)
	}
	schemas := spec["components"].(map[string]interface{})["schemas"].(map[string]interface{})

	body := string(raw)
	for {
		i := strings.Index(body, `"$ref":"#/components/schemas/`)
		if i < 0 {
			break
		}
		body = body[i+len(`"$ref":"#/components/schemas/`):]
		name := body[:strings.IndexByte(body, '"')]
		if _, ok := schemas[name]; !ok {
			t.Errorf("dangling schema reference %q", name)
		}
	}
}

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	NewGenerator("1.0.0", "http://localhost:4001/api").RegisterRoutes(e.Group("/api"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["openapi"] != "3.0.3" {
		t.Errorf("unexpected document %v", doc["openapi"])
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "swagger-ui") {
		t.Errorf("unexpected docs response %d", rec.Code)
	}
}
