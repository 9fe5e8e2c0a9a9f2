package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the SQLSTATE for a duplicate key.
const pgUniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func pgWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return storageErr(op, err)
}

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientColsPG = `id, name, age, gender, blood_type, email, phone, address,
	last_visit, status, comments, tests, archived, deleted_at`

var patientColumnsPG = map[string]string{
	fieldName:      "name",
	fieldAge:       "age",
	fieldGender:    "gender",
	fieldBloodType: "blood_type",
	fieldEmail:     "email",
	fieldPhone:     "phone",
	fieldAddress:   "address",
	fieldStatus:    "status",
	fieldComments:  "comments",
	fieldTests:     "tests",
}

func (r *patientRepoPG) list(ctx context.Context, where string) ([]*Patient, error) {
	q := `SELECT ` + patientColsPG + ` FROM patients`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, storageErr("list patients", err)
	}
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		p, err := scanPatientPG(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list patients", err)
	}
	return patients, nil
}

func (r *patientRepoPG) ListActive(ctx context.Context) ([]*Patient, error) {
	return r.list(ctx, `archived = FALSE AND deleted_at IS NULL`)
}

func (r *patientRepoPG) ListAll(ctx context.Context) ([]*Patient, error) {
	return r.list(ctx, `deleted_at IS NULL`)
}

func (r *patientRepoPG) ListAllIncludingDeleted(ctx context.Context) ([]*Patient, error) {
	return r.list(ctx, "")
}

func (r *patientRepoPG) GetByID(ctx context.Context, id string) (*Patient, error) {
	p, err := scanPatientPG(r.pool.QueryRow(ctx, `SELECT `+patientColsPG+` FROM patients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient, attachments []*Attachment) error {
	tests, err := encodeList(p.Tests)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx, `
		INSERT INTO patients (
			id, name, age, gender, blood_type, email, phone, address,
			last_visit, status, comments, tests, archived, deleted_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.Name, int(p.Age), p.Gender, p.BloodType, p.Email, p.Phone, p.Address,
		p.LastVisit, string(p.Status), p.Comments, tests, p.Archived, p.DeletedAt,
	)
	if err != nil {
		return pgWriteErr("insert patient "+p.ID, err)
	}

	for _, a := range attachments {
		_, err := tx.Exec(ctx,
			`INSERT INTO attachments (id, patient_id, name, content) VALUES ($1, $2, $3, $4)`,
			a.ID, p.ID, a.Name, a.Content,
		)
		if err != nil {
			return pgWriteErr("insert attachment "+a.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit patient "+p.ID, err)
	}
	return nil
}

func (r *patientRepoPG) Update(ctx context.Context, id string, u PatientUpdate) error {
	assigns, err := updateAssignments(u)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if len(assigns) == 0 {
		return nil
	}

	q, args := updatePatientSQLPG(id, assigns)
	if _, err := r.pool.Exec(ctx, q, args...); err != nil {
		return storageErr("update patient "+id, err)
	}
	return nil
}

// updatePatientSQLPG numbers the SET placeholders in assignment order; the
// patient id is always the last argument.
func updatePatientSQLPG(id string, assigns []assignment) (string, []interface{}) {
	sets := make([]string, 0, len(assigns)+1)
	args := make([]interface{}, 0, len(assigns)+1)
	for i, a := range assigns {
		sets = append(sets, fmt.Sprintf("%s = $%d", patientColumnsPG[a.field], i+1))
		args = append(args, a.value)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	return fmt.Sprintf(`UPDATE patients SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)), args
}

func (r *patientRepoPG) Archive(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE patients SET archived = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return storageErr("archive patient "+id, err)
	}
	return nil
}

func (r *patientRepoPG) SoftDelete(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE patients SET deleted_at = COALESCE(deleted_at, $2), updated_at = NOW() WHERE id = $1`,
		id, at.UTC(),
	)
	if err != nil {
		return storageErr("delete patient "+id, err)
	}
	return nil
}

func (r *patientRepoPG) ListAttachments(ctx context.Context, patientID string) ([]*Attachment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, patient_id, name, content FROM attachments WHERE patient_id = $1 ORDER BY created_at, id`,
		patientID,
	)
	if err != nil {
		return nil, storageErr("list attachments", err)
	}
	defer rows.Close()

	attachments := []*Attachment{}
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.Name, &a.Content); err != nil {
			return nil, storageErr("scan attachment", err)
		}
		attachments = append(attachments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list attachments", err)
	}
	return attachments, nil
}

func scanPatientPG(row rowScanner) (*Patient, error) {
	var (
		p      Patient
		age    int
		status string
		tests  *string
	)
	err := row.Scan(&p.ID, &p.Name, &age, &p.Gender, &p.BloodType, &p.Email, &p.Phone, &p.Address,
		&p.LastVisit, &status, &p.Comments, &tests, &p.Archived, &p.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, storageErr("scan patient", err)
	}
	p.Age = Age(age)
	p.Status = Status(status)
	if p.Tests, err = decodeList(tests); err != nil {
		return nil, storageErr("patient "+p.ID+" tests", err)
	}
	return &p, nil
}

// -- Record Repository --

type recordRepoPG struct {
	pool *pgxpool.Pool
}

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{pool: pool}
}

const recordColsPG = `id, patient_id, date, doctor, diagnosis, notes, comment, medications, vitals, archived`

func (r *recordRepoPG) query(ctx context.Context, q string, args ...interface{}) ([]*MedicalRecord, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, storageErr("list records", err)
	}
	defer rows.Close()

	records := []*MedicalRecord{}
	for rows.Next() {
		rec, err := scanRecordPG(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list records", err)
	}
	return records, nil
}

func (r *recordRepoPG) ListByPatient(ctx context.Context, patientID string) ([]*MedicalRecord, error) {
	return r.query(ctx, `SELECT `+recordColsPG+` FROM records WHERE patient_id = $1 ORDER BY created_at, id`, patientID)
}

func (r *recordRepoPG) ListAll(ctx context.Context) ([]*MedicalRecord, error) {
	return r.query(ctx, `SELECT `+recordColsPG+` FROM records ORDER BY patient_id, created_at, id`)
}

func (r *recordRepoPG) Create(ctx context.Context, rec *MedicalRecord) error {
	meds, err := encodeMedications(rec.Medications)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	vitals, err := encodeVitals(rec.Vitals)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO records (id, patient_id, date, doctor, diagnosis, notes, comment, medications, vitals, archived)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.ID, rec.PatientID, rec.Date, rec.Doctor, rec.Diagnosis, rec.Notes, rec.Comment, meds, vitals, rec.Archived,
	)
	if err != nil {
		return pgWriteErr("insert record "+rec.ID, err)
	}
	return nil
}

func (r *recordRepoPG) Archive(ctx context.Context, patientID, recordID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE records SET archived = TRUE WHERE id = $1 AND patient_id = $2`, recordID, patientID)
	if err != nil {
		return storageErr("archive record "+recordID, err)
	}
	return nil
}

func scanRecordPG(row rowScanner) (*MedicalRecord, error) {
	var (
		rec    MedicalRecord
		meds   *string
		vitals *string
	)
	if err := row.Scan(&rec.ID, &rec.PatientID, &rec.Date, &rec.Doctor, &rec.Diagnosis, &rec.Notes,
		&rec.Comment, &meds, &vitals, &rec.Archived); err != nil {
		return nil, storageErr("scan record", err)
	}
	var err error
	if rec.Medications, err = decodeMedications(meds); err != nil {
		return nil, storageErr("record "+rec.ID+" medications", err)
	}
	if rec.Vitals, err = decodeVitals(vitals); err != nil {
		return nil, storageErr("record "+rec.ID+" vitals", err)
	}
	return &rec, nil
}
