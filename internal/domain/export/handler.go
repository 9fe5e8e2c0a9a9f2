package export

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
	now func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/export/records", h.ExportRecords)
	api.GET("/export/records.csv", h.ExportCSV)
	api.GET("/export/records.xlsx", h.ExportXLSX)
}

func (h *Handler) ExportRecords(c echo.Context) error {
	rows, err := h.svc.ExportAllRecords(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "export failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) ExportCSV(c echo.Context) error {
	return h.download(c, "csv", "text/csv; charset=utf-8", WriteCSV)
}

func (h *Handler) ExportXLSX(c echo.Context) error {
	return h.download(c, "xlsx", xlsxContentType, WriteXLSX)
}

// download renders the whole export before the first byte is sent, so a
// failure never yields a truncated file.
func (h *Handler) download(c echo.Context, ext, contentType string, write func(io.Writer, []Row) error) error {
	rows, err := h.svc.ExportAllRecords(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "export failed").SetInternal(err)
	}
	var buf bytes.Buffer
	if err := write(&buf, rows); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "export failed").SetInternal(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=\"medihealth-records-%s.%s\"", h.now().UTC().Format("2006-01-02"), ext))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}
