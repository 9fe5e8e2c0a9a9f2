package openapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// Operation describes one route of the records API.
type Operation struct {
	Method      string
	Path        string // OpenAPI form, e.g. /patients/{id}
	ID          string
	Summary     string
	Tag         string
	Request     string // component schema name, empty for no body
	Response    string // component schema name
	ResponseArr bool
	Status      int
	Errors      []int
	Query       []string
}

// Operations lists every documented route, relative to the /api base.
var Operations = []Operation{
	{http.MethodGet, "/patients", "listActivePatients", "List active patients", "patients", "", "Patient", true, 200, []int{500}, nil},
	{http.MethodGet, "/patients/all", "listDirectory", "List non-deleted patients, archived included", "patients", "", "Patient", true, 200, []int{500}, nil},
	{http.MethodGet, "/patients/include-deleted/all", "listAllPatients", "List every patient row", "patients", "", "Patient", true, 200, []int{500}, nil},
	{http.MethodPost, "/patients", "createPatient", "Create a patient with optional attachments", "patients", "Patient", "Patient", false, 201, []int{400, 409, 500}, nil},
	{http.MethodGet, "/patients/{id}", "getPatient", "Fetch a patient with records and attachments", "patients", "", "Patient", false, 200, []int{404, 500}, nil},
	{http.MethodPut, "/patients/{id}", "updatePatient", "Apply a partial update", "patients", "PatientUpdate", "Patient", false, 200, []int{400, 404, 500}, nil},
	{http.MethodPut, "/patients/{id}/archive", "archivePatient", "Archive a patient", "patients", "", "OK", false, 200, []int{500}, nil},
	{http.MethodDelete, "/patients/{id}", "deletePatient", "Soft-delete a patient", "patients", "", "OK", false, 200, []int{500}, nil},
	{http.MethodGet, "/patients/{id}/records", "listRecords", "List a patient's records", "records", "", "MedicalRecord", true, 200, []int{500}, []string{"view"}},
	{http.MethodPost, "/patients/{id}/records", "addRecord", "Add a medical record", "records", "MedicalRecord", "MedicalRecord", false, 201, []int{400, 404, 409, 500}, nil},
	{http.MethodPut, "/patients/{id}/records/{rid}/archive", "archiveRecord", "Archive a medical record", "records", "", "OK", false, 200, []int{500}, nil},
	{http.MethodGet, "/patients/{id}/attachments", "listAttachments", "List a patient's attachments", "attachments", "", "Attachment", true, 200, []int{500}, nil},
	{http.MethodGet, "/export/records", "exportRecords", "Flattened audit export of every record", "export", "", "ExportRow", true, 200, []int{500}, nil},
}

// Generator builds an OpenAPI 3.0 document for the records API.
type Generator struct {
	version string
	baseURL string
}

func NewGenerator(version, baseURL string) *Generator {
	return &Generator{version: version, baseURL: baseURL}
}

// GenerateSpec produces the OpenAPI 3.0 spec as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := make(map[string]interface{})
	for _, op := range Operations {
		item, _ := paths[op.Path].(map[string]interface{})
		if item == nil {
			item = make(map[string]interface{})
			paths[op.Path] = item
		}
		item[strings.ToLower(op.Method)] = buildOperation(op)
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "MediHealth Clinic Records API",
			"version":     g.version,
			"description": "Patients, medical records, attachments and the audit export",
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": componentSchemas(),
		},
	}
}

func buildOperation(op Operation) map[string]interface{} {
	out := map[string]interface{}{
		"summary":     op.Summary,
		"operationId": op.ID,
		"tags":        []string{op.Tag},
	}

	var params []map[string]interface{}
	for _, name := range pathParams(op.Path) {
		params = append(params, map[string]interface{}{
			"name": name, "in": "path", "required": true, "schema": map[string]string{"type": "string"},
		})
	}
	for _, name := range op.Query {
		params = append(params, map[string]interface{}{
			"name": name, "in": "query", "schema": map[string]string{"type": "string"},
		})
	}
	if len(params) > 0 {
		out["parameters"] = params
	}

	if op.Request != "" {
		out["requestBody"] = map[string]interface{}{
			"required": true,
			"content":  jsonContent(ref(op.Request)),
		}
	}

	success := ref(op.Response)
	if op.ResponseArr {
		success = map[string]interface{}{"type": "array", "items": ref(op.Response)}
	}
	responses := map[string]interface{}{
		strconv.Itoa(op.Status): map[string]interface{}{
			"description": http.StatusText(op.Status),
			"content":     jsonContent(success),
		},
	}
	for _, code := range op.Errors {
		responses[strconv.Itoa(code)] = map[string]interface{}{
			"description": http.StatusText(code),
			"content":     jsonContent(ref("Error")),
		}
	}
	out["responses"] = responses
	return out
}

// pathParams returns the {name} segments of path in order.
func pathParams(path string) []string {
	var names []string
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			names = append(names, seg[1:len(seg)-1])
		}
	}
	return names
}

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{"schema": schema},
	}
}

func str() map[string]interface{} { return map[string]interface{}{"type": "string"} }
func nullStr() map[string]interface{} { return map[string]interface{}{"type": "string", "nullable": true} }
func boolean() map[string]interface{} { return map[string]interface{}{"type": "boolean"} }
func strList() map[string]interface{} { return map[string]interface{}{"type": "array", "items": str()} }
func statusEnum() map[string]interface{} {
	return map[string]interface{}{"type": "string", "enum": []string{"Active", "Stable", "Critical", "Discharged"}}
}

func object(required []string, props map[string]interface{}) map[string]interface{} {
	s := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func componentSchemas() map[string]interface{} {
	return map[string]interface{}{
		"Patient": object([]string{"name", "gender"}, map[string]interface{}{
			"id":          str(),
			"name":        str(),
			"age":         map[string]interface{}{"type": "integer", "minimum": 0},
			"gender":      str(),
			"bloodType":   str(),
			"email":       str(),
			"phone":       str(),
			"address":     str(),
			"lastVisit":   map[string]interface{}{"type": "string", "format": "date", "readOnly": true},
			"status":      statusEnum(),
			"comments":    nullStr(),
			"tests":       map[string]interface{}{"type": "array", "items": str(), "nullable": true},
			"archived":    map[string]interface{}{"type": "boolean", "readOnly": true},
			"deletedAt":   map[string]interface{}{"type": "string", "format": "date-time", "nullable": true, "readOnly": true},
			"records":     map[string]interface{}{"type": "array", "items": ref("MedicalRecord"), "readOnly": true},
			"attachments": map[string]interface{}{"type": "array", "items": ref("Attachment")},
		}),
		"PatientUpdate": object(nil, map[string]interface{}{
			"name":      str(),
			"age":       map[string]interface{}{"type": "integer", "minimum": 0},
			"gender":    str(),
			"bloodType": str(),
			"email":     str(),
			"phone":     str(),
			"address":   str(),
			"status":    statusEnum(),
			"comments":  nullStr(),
			"tests":     map[string]interface{}{"type": "array", "items": str(), "nullable": true},
		}),
		"MedicalRecord": object([]string{"date", "diagnosis"}, map[string]interface{}{
			"id":          str(),
			"patientId":   map[string]interface{}{"type": "string", "readOnly": true},
			"date":        map[string]interface{}{"type": "string", "format": "date"},
			"doctor":      str(),
			"diagnosis":   str(),
			"notes":       str(),
			"comment":     nullStr(),
			"medications": strList(),
			"vitals":      ref("Vitals"),
			"archived":    map[string]interface{}{"type": "boolean", "readOnly": true},
		}),
		"Vitals": object(nil, map[string]interface{}{
			"bloodPressure": str(),
			"heartRate":     str(),
			"temperature":   str(),
		}),
		"Attachment": object(nil, map[string]interface{}{
			"id":      str(),
			"name":    str(),
			"content": map[string]interface{}{"type": "string", "description": "data URL"},
		}),
		"ExportRow": object(nil, map[string]interface{}{
			"patientId":      str(),
			"patientName":    str(),
			"recordId":       str(),
			"date":           str(),
			"doctor":         str(),
			"diagnosis":      str(),
			"notes":          str(),
			"comment":        str(),
			"medications":    map[string]interface{}{"type": "string", "description": "pipe-separated"},
			"archived":       boolean(),
			"patientDeleted": boolean(),
		}),
		"OK":    object([]string{"ok"}, map[string]interface{}{"ok": boolean()}),
		"Error": object([]string{"message"}, map[string]interface{}{"message": str()}),
	}
}

// swaggerUIHTML is the Swagger UI page served at /docs.
const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>MediHealth Clinic Records API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
  <style>
    html { box-sizing: border-box; overflow-y: scroll; }
    *, *:before, *:after { box-sizing: inherit; }
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/openapi.json",
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
      layout: "BaseLayout"
    })
  </script>
</body>
</html>`

// RegisterRoutes registers the OpenAPI endpoints.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
	apiGroup.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
