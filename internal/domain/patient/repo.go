package patient

import (
	"context"
	"time"
)

// PatientRepository persists patients and their attachments. Patient rows are
// never removed: Archive and SoftDelete only set flags. Update, Archive and
// SoftDelete are no-ops for unknown ids.
type PatientRepository interface {
	ListActive(ctx context.Context) ([]*Patient, error)
	ListAll(ctx context.Context) ([]*Patient, error)
	ListAllIncludingDeleted(ctx context.Context) ([]*Patient, error)
	GetByID(ctx context.Context, id string) (*Patient, error)

	// Create inserts the patient and its attachments atomically.
	Create(ctx context.Context, p *Patient, attachments []*Attachment) error
	Update(ctx context.Context, id string, u PatientUpdate) error
	Archive(ctx context.Context, id string) error
	// SoftDelete sets deleted_at only if it is not already set.
	SoftDelete(ctx context.Context, id string, at time.Time) error

	ListAttachments(ctx context.Context, patientID string) ([]*Attachment, error)
}

// RecordRepository persists medical records. Reads return archived records
// too; history filtering belongs to the caller.
type RecordRepository interface {
	ListByPatient(ctx context.Context, patientID string) ([]*MedicalRecord, error)
	ListAll(ctx context.Context) ([]*MedicalRecord, error)
	Create(ctx context.Context, r *MedicalRecord) error
	Archive(ctx context.Context, patientID, recordID string) error
}
