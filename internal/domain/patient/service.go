package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	patients PatientRepository
	records  RecordRepository

	now   func() time.Time
	newID func() string
}

func NewService(patients PatientRepository, records RecordRepository) *Service {
	return &Service{
		patients: patients,
		records:  records,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithClock replaces the clock used for lastVisit and deletion timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator replaces the generator used for ids the caller omitted.
func (s *Service) WithIDGenerator(newID func() string) *Service {
	s.newID = newID
	return s
}

// -- Patient --

// CreatePatient validates p, fills in system-assigned fields and stores it
// together with its attachments. Client-supplied ids are kept.
func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Gender = strings.TrimSpace(p.Gender)
	if p.Name == "" {
		return validationErr("name is required")
	}
	if p.Gender == "" {
		return validationErr("gender is required")
	}
	if p.Age < 0 {
		return validationErr("age must not be negative")
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if !p.Status.Valid() {
		return validationErr("invalid status: %s", p.Status)
	}

	if strings.TrimSpace(p.ID) == "" {
		p.ID = s.newID()
	}
	p.LastVisit = s.now().Format(DateLayout)
	p.Comments = trimmedOrNil(p.Comments)
	p.Archived = false
	p.DeletedAt = nil
	p.Records = []*MedicalRecord{}

	for _, a := range p.Attachments {
		if strings.TrimSpace(a.ID) == "" {
			a.ID = s.newID()
		}
		a.PatientID = p.ID
	}

	return s.patients.Create(ctx, p, p.Attachments)
}

// GetPatient returns the patient with its full record list and attachments.
// Deleted patients are still returned; callers filter by view.
func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Records, err = s.records.ListByPatient(ctx, id); err != nil {
		return nil, err
	}
	if p.Attachments, err = s.patients.ListAttachments(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPatients(ctx context.Context, view View) ([]*Patient, error) {
	var (
		patients []*Patient
		err      error
	)
	switch view {
	case ViewDirectory:
		patients, err = s.patients.ListActive(ctx)
	case ViewAudit:
		patients, err = s.patients.ListAll(ctx)
	case ViewExport:
		patients, err = s.patients.ListAllIncludingDeleted(ctx)
	default:
		return nil, fmt.Errorf("unknown view %d", int(view))
	}
	if err != nil {
		return nil, fmt.Errorf("list %s patients: %w", view, err)
	}
	return patients, nil
}

// UpdatePatient applies a partial update. Soft-deleted patients are treated
// as absent.
func (s *Service) UpdatePatient(ctx context.Context, id string, u PatientUpdate) (*Patient, error) {
	if err := validateUpdate(u); err != nil {
		return nil, err
	}

	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() {
		return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}

	if u.Empty() {
		return p, nil
	}
	if err := s.patients.Update(ctx, id, u); err != nil {
		return nil, err
	}
	return s.patients.GetByID(ctx, id)
}

func validateUpdate(u PatientUpdate) error {
	if u.Name.Set && strings.TrimSpace(u.Name.V) == "" {
		return validationErr("name must not be empty")
	}
	if u.Gender.Set && strings.TrimSpace(u.Gender.V) == "" {
		return validationErr("gender must not be empty")
	}
	if u.Age.Set {
		if u.Age.Null {
			return validationErr("age must not be null")
		}
		if u.Age.V < 0 {
			return validationErr("age must not be negative")
		}
	}
	if u.Status.Set && !u.Status.V.Valid() {
		return validationErr("invalid status: %q", u.Status.V)
	}
	for field, v := range map[string]bool{
		fieldBloodType: u.BloodType.Null,
		fieldEmail:     u.Email.Null,
		fieldPhone:     u.Phone.Null,
		fieldAddress:   u.Address.Null,
	} {
		if v {
			return validationErr("%s must not be null", field)
		}
	}
	return nil
}

// ArchivePatient hides the patient from the directory. Unknown ids succeed.
func (s *Service) ArchivePatient(ctx context.Context, id string) error {
	return s.patients.Archive(ctx, id)
}

// DeletePatient soft-deletes the patient. The first deletion time is kept
// and unknown ids succeed.
func (s *Service) DeletePatient(ctx context.Context, id string) error {
	return s.patients.SoftDelete(ctx, id, s.now())
}

// -- Record --

// ListRecords returns every record of the patient, archived included.
func (s *Service) ListRecords(ctx context.Context, patientID string) ([]*MedicalRecord, error) {
	return s.records.ListByPatient(ctx, patientID)
}

// AddRecord appends a record to the history of a live patient.
func (s *Service) AddRecord(ctx context.Context, patientID string, rec *MedicalRecord) error {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return err
	}
	if p.IsDeleted() {
		return fmt.Errorf("patient %s: %w", patientID, ErrNotFound)
	}

	rec.Date = strings.TrimSpace(rec.Date)
	if rec.Date == "" {
		return validationErr("date is required")
	}
	if _, err := time.Parse(DateLayout, rec.Date); err != nil {
		return validationErr("date must be YYYY-MM-DD, got %q", rec.Date)
	}
	if strings.TrimSpace(rec.Diagnosis) == "" {
		return validationErr("diagnosis is required")
	}

	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = s.newID()
	}
	rec.PatientID = patientID
	rec.Comment = trimmedOrNil(rec.Comment)
	if rec.Medications == nil {
		rec.Medications = []string{}
	}
	rec.Archived = false

	return s.records.Create(ctx, rec)
}

// ArchiveRecord removes a record from the active history. Unknown ids succeed.
func (s *Service) ArchiveRecord(ctx context.Context, patientID, recordID string) error {
	return s.records.Archive(ctx, patientID, recordID)
}

func (s *Service) ListAttachments(ctx context.Context, patientID string) ([]*Attachment, error) {
	return s.patients.ListAttachments(ctx, patientID)
}
