package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AuditEntry describes one access to patient data.
type AuditEntry struct {
	RequestID  string
	Resource   string // patients, records, attachments, export
	PatientID  string
	Action     string // read, create, update, archive, delete, export
	Method     string
	Path       string
	IPAddress  string
	UserAgent  string
	StatusCode int
}

// Audit logs every request that touches patient data (/api/patients* and
// /api/export*) as a records_audit event, after the handler has run so the
// final status is known.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isAuditablePath(req.URL.Path) {
				return next(c)
			}

			err := next(c)

			entry := buildAuditEntry(req, requestIDFrom(c), c.Response().Status)
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}
			entry.IPAddress = c.RealIP()

			evt := logger.Info()
			if entry.Action == "delete" || entry.Action == "export" {
				evt = logger.Warn()
			}
			evt.
				Str("type", "records_audit").
				Str("request_id", entry.RequestID).
				Str("resource", entry.Resource).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Str("user_agent", entry.UserAgent).
				Int("status", entry.StatusCode).
				Msg("patient_data_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return path == "/api/patients" || strings.HasPrefix(path, "/api/patients/") ||
		strings.HasPrefix(path, "/api/export")
}

func buildAuditEntry(req *http.Request, requestID string, status int) AuditEntry {
	path := req.URL.Path
	entry := AuditEntry{
		RequestID:  requestID,
		Method:     req.Method,
		Path:       path,
		UserAgent:  req.UserAgent(),
		StatusCode: status,
	}

	if strings.HasPrefix(path, "/api/export") {
		entry.Resource = "export"
		entry.Action = "export"
		return entry
	}

	// /api/patients[/<id>[/<sub>[/<rid>[/archive]]]]
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/patients"), "/"), "/")
	entry.Resource = "patients"
	if len(segments) > 0 && segments[0] != "" && segments[0] != "all" && segments[0] != "include-deleted" {
		entry.PatientID = segments[0]
	}
	if len(segments) > 1 && entry.PatientID != "" {
		switch segments[1] {
		case "records", "attachments":
			entry.Resource = segments[1]
		}
	}

	entry.Action = methodToAction(req.Method)
	if req.Method == http.MethodPut && segments[len(segments)-1] == "archive" {
		entry.Action = "archive"
	}
	return entry
}

func methodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return "read"
}
