// Package export flattens every patient and record, deleted and archived
// ones included, into audit rows.
package export

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/boamahfreda240-hash/Medihealth-Project/internal/domain/patient"
)

// MedicationSeparator joins a record's medications into one cell.
const MedicationSeparator = "|"

// Row is one (patient, record) pair.
type Row struct {
	PatientID      string `json:"patientId"`
	PatientName    string `json:"patientName"`
	RecordID       string `json:"recordId"`
	Date           string `json:"date"`
	Doctor         string `json:"doctor"`
	Diagnosis      string `json:"diagnosis"`
	Notes          string `json:"notes"`
	Comment        string `json:"comment"`
	Medications    string `json:"medications"`
	Archived       bool   `json:"archived"`
	PatientDeleted bool   `json:"patientDeleted"`
}

type Service struct {
	patients patient.PatientRepository
	records  patient.RecordRepository
}

func NewService(patients patient.PatientRepository, records patient.RecordRepository) *Service {
	return &Service{patients: patients, records: records}
}

// ExportAllRecords joins every patient row with every record row. Records
// whose patient is missing are skipped and patients without records yield
// nothing. Rows are ordered by patient id, then record id.
func (s *Service) ExportAllRecords(ctx context.Context) ([]Row, error) {
	patients, err := s.patients.ListAllIncludingDeleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: list patients: %w", err)
	}
	records, err := s.records.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: list records: %w", err)
	}

	byID := make(map[string]*patient.Patient, len(patients))
	for _, p := range patient.FilterPatients(patient.ViewExport, patients) {
		byID[p.ID] = p
	}

	rows := make([]Row, 0, len(records))
	for _, r := range records {
		p, ok := byID[r.PatientID]
		if !ok || !patient.RecordVisibleInExport(r) {
			continue
		}
		rows = append(rows, newRow(p, r))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].PatientID != rows[j].PatientID {
			return rows[i].PatientID < rows[j].PatientID
		}
		return rows[i].RecordID < rows[j].RecordID
	})
	return rows, nil
}

func newRow(p *patient.Patient, r *patient.MedicalRecord) Row {
	row := Row{
		PatientID:      p.ID,
		PatientName:    p.Name,
		RecordID:       r.ID,
		Date:           r.Date,
		Doctor:         r.Doctor,
		Diagnosis:      r.Diagnosis,
		Notes:          collapseNewlines(r.Notes),
		Medications:    strings.Join(r.Medications, MedicationSeparator),
		Archived:       r.Archived,
		PatientDeleted: p.IsDeleted(),
	}
	if r.Comment != nil {
		row.Comment = *r.Comment
	}
	return row
}

func collapseNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
