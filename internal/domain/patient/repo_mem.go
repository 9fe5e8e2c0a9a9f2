package patient

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// -- In-memory Patient Repository --

// MemoryPatientRepo is a thread-safe PatientRepository kept in process
// memory. Rows are returned in insertion order.
type MemoryPatientRepo struct {
	mu          sync.RWMutex
	order       []string
	patients    map[string]*Patient
	attachments map[string]*Attachment
	attOrder    []string
}

func NewMemoryPatientRepo() *MemoryPatientRepo {
	return &MemoryPatientRepo{
		patients:    make(map[string]*Patient),
		attachments: make(map[string]*Attachment),
	}
}

func (r *MemoryPatientRepo) list(view View) []*Patient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Patient, 0, len(r.order))
	for _, id := range r.order {
		p := r.patients[id]
		if view.Visible(p) {
			out = append(out, clonePatient(p))
		}
	}
	return out
}

func (r *MemoryPatientRepo) ListActive(_ context.Context) ([]*Patient, error) {
	return r.list(ViewDirectory), nil
}

func (r *MemoryPatientRepo) ListAll(_ context.Context) ([]*Patient, error) {
	return r.list(ViewAudit), nil
}

func (r *MemoryPatientRepo) ListAllIncludingDeleted(_ context.Context) ([]*Patient, error) {
	return r.list(ViewExport), nil
}

func (r *MemoryPatientRepo) GetByID(_ context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	return clonePatient(p), nil
}

func (r *MemoryPatientRepo) Create(_ context.Context, p *Patient, attachments []*Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[p.ID]; ok {
		return fmt.Errorf("patient %s: %w", p.ID, ErrConflict)
	}
	seen := make(map[string]bool, len(attachments))
	for _, a := range attachments {
		if _, ok := r.attachments[a.ID]; ok || seen[a.ID] {
			return fmt.Errorf("attachment %s: %w", a.ID, ErrConflict)
		}
		seen[a.ID] = true
	}

	r.patients[p.ID] = clonePatient(p)
	r.order = append(r.order, p.ID)
	for _, a := range attachments {
		c := *a
		c.PatientID = p.ID
		r.attachments[c.ID] = &c
		r.attOrder = append(r.attOrder, c.ID)
	}
	return nil
}

func (r *MemoryPatientRepo) Update(_ context.Context, id string, u PatientUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patients[id]; ok {
		u.Apply(p)
	}
	return nil
}

func (r *MemoryPatientRepo) Archive(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patients[id]; ok {
		p.Archived = true
	}
	return nil
}

func (r *MemoryPatientRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patients[id]; ok && p.DeletedAt == nil {
		t := at.UTC()
		p.DeletedAt = &t
	}
	return nil
}

func (r *MemoryPatientRepo) ListAttachments(_ context.Context, patientID string) ([]*Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Attachment{}
	for _, id := range r.attOrder {
		a := r.attachments[id]
		if a.PatientID == patientID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

// -- In-memory Record Repository --

type MemoryRecordRepo struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*MedicalRecord
}

func NewMemoryRecordRepo() *MemoryRecordRepo {
	return &MemoryRecordRepo{records: make(map[string]*MedicalRecord)}
}

func (r *MemoryRecordRepo) ListByPatient(_ context.Context, patientID string) ([]*MedicalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*MedicalRecord{}
	for _, id := range r.order {
		if rec := r.records[id]; rec.PatientID == patientID {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

func (r *MemoryRecordRepo) ListAll(_ context.Context) ([]*MedicalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*MedicalRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneRecord(r.records[id]))
	}
	return out, nil
}

func (r *MemoryRecordRepo) Create(_ context.Context, rec *MedicalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; ok {
		return fmt.Errorf("record %s: %w", rec.ID, ErrConflict)
	}
	r.records[rec.ID] = cloneRecord(rec)
	r.order = append(r.order, rec.ID)
	return nil
}

func (r *MemoryRecordRepo) Archive(_ context.Context, patientID, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[recordID]; ok && rec.PatientID == patientID {
		rec.Archived = true
	}
	return nil
}
