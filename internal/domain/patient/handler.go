package patient

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListActive)
	api.GET("/patients/all", h.ListAll)
	api.GET("/patients/include-deleted/all", h.ListAllIncludingDeleted)
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.PUT("/patients/:id/archive", h.ArchivePatient)
	api.DELETE("/patients/:id", h.DeletePatient)

	api.GET("/patients/:id/records", h.ListRecords)
	api.POST("/patients/:id/records", h.AddRecord)
	api.PUT("/patients/:id/records/:rid/archive", h.ArchiveRecord)

	api.GET("/patients/:id/attachments", h.ListAttachments)
}

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func httpError(err error) *echo.HTTPError {
	return echo.NewHTTPError(errorStatus(err), err.Error()).SetInternal(err)
}

type okResponse struct {
	OK bool `json:"ok"`
}

// patientWithRecords always carries the records key, even when empty.
type patientWithRecords struct {
	*Patient
	Records []*MedicalRecord `json:"records"`
}

// -- Patient Handlers --

func (h *Handler) ListActive(c echo.Context) error {
	return h.list(c, ViewDirectory)
}

func (h *Handler) ListAll(c echo.Context) error {
	return h.list(c, ViewAudit)
}

func (h *Handler) ListAllIncludingDeleted(c echo.Context) error {
	return h.list(c, ViewExport)
}

func (h *Handler) list(c echo.Context, view View) error {
	patients, err := h.svc.ListPatients(c.Request().Context(), view)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patientWithRecords{Patient: p, Records: p.Records})
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient body").SetInternal(err)
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, patientWithRecords{Patient: &p, Records: p.Records})
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var u PatientUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid update body").SetInternal(err)
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), c.Param("id"), u)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ArchivePatient(c echo.Context) error {
	if err := h.svc.ArchivePatient(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

func (h *Handler) DeletePatient(c echo.Context) error {
	if err := h.svc.DeletePatient(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

// -- Record Handlers --

// ListRecords returns the full history. ?view=history drops archived records.
func (h *Handler) ListRecords(c echo.Context) error {
	records, err := h.svc.ListRecords(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if c.QueryParam("view") == "history" {
		records = ActiveHistory(records)
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) AddRecord(c echo.Context) error {
	var rec MedicalRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record body").SetInternal(err)
	}
	if err := h.svc.AddRecord(c.Request().Context(), c.Param("id"), &rec); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ArchiveRecord(c echo.Context) error {
	if err := h.svc.ArchiveRecord(c.Request().Context(), c.Param("id"), c.Param("rid")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

// -- Attachment Handlers --

func (h *Handler) ListAttachments(c echo.Context) error {
	attachments, err := h.svc.ListAttachments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	for _, a := range attachments {
		a.PatientID = ""
	}
	return c.JSON(http.StatusOK, attachments)
}
