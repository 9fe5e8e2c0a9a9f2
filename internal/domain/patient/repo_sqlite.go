package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func sqliteWriteErr(op string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%s: %w", op, ErrConflict)
		case sqlite3.SQLITE_CONSTRAINT:
			// Connections without extended result codes only report the
			// primary code.
			if strings.Contains(se.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%s: %w", op, ErrConflict)
			}
		}
	}
	return storageErr(op, err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// -- Patient Repository --

type patientRepoSQLite struct {
	db *sql.DB
}

// NewPatientRepoSQLite returns a PatientRepository over a database opened
// with db.OpenSQLite.
func NewPatientRepoSQLite(db *sql.DB) PatientRepository {
	return &patientRepoSQLite{db: db}
}

const patientColsSQLite = `id, name, age, gender, bloodType, email, phone, address,
	lastVisit, status, comments, tests, archived, deleted_at`

var patientColumnsSQLite = map[string]string{
	fieldName:      "name",
	fieldAge:       "age",
	fieldGender:    "gender",
	fieldBloodType: "bloodType",
	fieldEmail:     "email",
	fieldPhone:     "phone",
	fieldAddress:   "address",
	fieldStatus:    "status",
	fieldComments:  "comments",
	fieldTests:     "tests",
}

func (r *patientRepoSQLite) list(ctx context.Context, where string) ([]*Patient, error) {
	q := `SELECT ` + patientColsSQLite + ` FROM patients`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY rowid`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, storageErr("list patients", err)
	}
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		p, err := scanPatientSQLite(rows)
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

func (r *patientRepoSQLite) ListActive(ctx context.Context) ([]*Patient, error) {
	return r.list(ctx, `archived = 0 AND deleted_at IS NULL`)
}

func (r *patientRepoSQLite) ListAll(ctx context.Context) ([]*Patient, error) {
	return r.list(ctx, `deleted_at IS NULL`)
}

func (r *patientRepoSQLite) ListAllIncludingDeleted(ctx context.Context) ([]*Patient, error) {
	return r.list(ctx, "")
}

func (r *patientRepoSQLite) GetByID(ctx context.Context, id string) (*Patient, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+patientColsSQLite+` FROM patients WHERE id = ?`, id)
	p, err := scanPatientSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (r *patientRepoSQLite) Create(ctx context.Context, p *Patient, attachments []*Attachment) error {
	tests, err := encodeList(p.Tests)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	var deletedAt *string
	if p.DeletedAt != nil {
		s := p.DeletedAt.UTC().Format(time.RFC3339Nano)
		deletedAt = &s
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO patients (
			id, name, age, gender, bloodType, email, phone, address,
			lastVisit, status, comments, tests, archived, deleted_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, int(p.Age), p.Gender, p.BloodType, p.Email, p.Phone, p.Address,
		p.LastVisit, string(p.Status), p.Comments, tests, boolToInt(p.Archived), deletedAt,
	)
	if err != nil {
		return sqliteWriteErr("insert patient "+p.ID, err)
	}

	for _, a := range attachments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attachments (id, patientId, name, dataUrl) VALUES (?, ?, ?, ?)`,
			a.ID, p.ID, a.Name, a.Content,
		)
		if err != nil {
			return sqliteWriteErr("insert attachment "+a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit patient "+p.ID, err)
	}
	return nil
}

func (r *patientRepoSQLite) Update(ctx context.Context, id string, u PatientUpdate) error {
	assigns, err := updateAssignments(u)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if len(assigns) == 0 {
		return nil
	}

	sets := make([]string, 0, len(assigns))
	args := make([]interface{}, 0, len(assigns)+1)
	for _, a := range assigns {
		sets = append(sets, patientColumnsSQLite[a.field]+" = ?")
		args = append(args, a.value)
	}
	args = append(args, id)

	q := `UPDATE patients SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return storageErr("update patient "+id, err)
	}
	return nil
}

func (r *patientRepoSQLite) Archive(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE patients SET archived = 1 WHERE id = ?`, id); err != nil {
		return storageErr("archive patient "+id, err)
	}
	return nil
}

func (r *patientRepoSQLite) SoftDelete(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE patients SET deleted_at = COALESCE(deleted_at, ?) WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return storageErr("delete patient "+id, err)
	}
	return nil
}

func (r *patientRepoSQLite) ListAttachments(ctx context.Context, patientID string) ([]*Attachment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, patientId, name, dataUrl FROM attachments WHERE patientId = ? ORDER BY rowid`, patientID)
	if err != nil {
		return nil, storageErr("list attachments", err)
	}
	defer rows.Close()

	attachments := []*Attachment{}
	for rows.Next() {
		var a Attachment
		var owner, name, content sql.NullString
		if err := rows.Scan(&a.ID, &owner, &name, &content); err != nil {
			return nil, storageErr("scan attachment", err)
		}
		a.PatientID, a.Name, a.Content = owner.String, name.String, content.String
		attachments = append(attachments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list attachments", err)
	}
	return attachments, nil
}

// Rows written by the first server may hold NULL in any column, so every
// text column is scanned through sql.NullString.
func scanPatientSQLite(row rowScanner) (*Patient, error) {
	var (
		p                                          Patient
		name, gender, blood, email, phone, address sql.NullString
		lastVisit, status                          sql.NullString
		comments, tests, deletedAt                 *string
		age                                        interface{}
		archived                                   sql.NullInt64
	)
	err := row.Scan(&p.ID, &name, &age, &gender, &blood, &email, &phone, &address,
		&lastVisit, &status, &comments, &tests, &archived, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storageErr("scan patient", err)
	}
	p.Name, p.Gender, p.BloodType = name.String, gender.String, blood.String
	p.Email, p.Phone, p.Address = email.String, phone.String, address.String
	p.LastVisit, p.Status = lastVisit.String, Status(status.String)
	p.Age = sqliteAge(age)
	p.Archived = archived.Int64 != 0
	p.Comments = comments

	if p.Tests, err = decodeList(tests); err != nil {
		return nil, storageErr("patient "+p.ID+" tests", err)
	}
	if deletedAt != nil {
		t, err := time.Parse(time.RFC3339Nano, *deletedAt)
		if err != nil {
			return nil, storageErr("patient "+p.ID+" deleted_at", err)
		}
		p.DeletedAt = &t
	}
	return &p, nil
}

// sqliteAge reads the age column leniently. The first server stored ages as
// posted, so a row may hold a blank string or a non-numeric value; those
// read as 0 instead of failing the whole list.
func sqliteAge(v interface{}) Age {
	switch v := v.(type) {
	case int64:
		if v < 0 || v > maxAge {
			return 0
		}
		return Age(v)
	case float64:
		if v < 0 || v > maxAge || v != math.Trunc(v) {
			return 0
		}
		return Age(v)
	case string:
		a, err := ParseAge(v)
		if err != nil || a < 0 {
			return 0
		}
		return a
	case []byte:
		return sqliteAge(string(v))
	}
	return 0
}

// -- Record Repository --

type recordRepoSQLite struct {
	db *sql.DB
}

func NewRecordRepoSQLite(db *sql.DB) RecordRepository {
	return &recordRepoSQLite{db: db}
}

const recordColsSQLite = `id, patientId, date, doctor, diagnosis, notes, comment, medications, vitals, archived`

func (r *recordRepoSQLite) query(ctx context.Context, q string, args ...interface{}) ([]*MedicalRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr("list records", err)
	}
	defer rows.Close()

	records := []*MedicalRecord{}
	for rows.Next() {
		rec, err := scanRecordSQLite(rows)
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

func (r *recordRepoSQLite) ListByPatient(ctx context.Context, patientID string) ([]*MedicalRecord, error) {
	return r.query(ctx, `SELECT `+recordColsSQLite+` FROM records WHERE patientId = ? ORDER BY rowid`, patientID)
}

func (r *recordRepoSQLite) ListAll(ctx context.Context) ([]*MedicalRecord, error) {
	return r.query(ctx, `SELECT `+recordColsSQLite+` FROM records ORDER BY rowid`)
}

func (r *recordRepoSQLite) Create(ctx context.Context, rec *MedicalRecord) error {
	meds, err := encodeMedications(rec.Medications)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	vitals, err := encodeVitals(rec.Vitals)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (id, patientId, date, doctor, diagnosis, notes, comment, medications, vitals, archived)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.PatientID, rec.Date, rec.Doctor, rec.Diagnosis, rec.Notes, rec.Comment, meds, vitals,
		boolToInt(rec.Archived),
	)
	if err != nil {
		return sqliteWriteErr("insert record "+rec.ID, err)
	}
	return nil
}

func (r *recordRepoSQLite) Archive(ctx context.Context, patientID, recordID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE records SET archived = 1 WHERE id = ? AND patientId = ?`, recordID, patientID)
	if err != nil {
		return storageErr("archive record "+recordID, err)
	}
	return nil
}

func scanRecordSQLite(row rowScanner) (*MedicalRecord, error) {
	var (
		rec                                   MedicalRecord
		owner, date, doctor, diagnosis, notes sql.NullString
		comment, meds, vitals                 *string
		archived                              sql.NullInt64
	)
	if err := row.Scan(&rec.ID, &owner, &date, &doctor, &diagnosis, &notes,
		&comment, &meds, &vitals, &archived); err != nil {
		return nil, storageErr("scan record", err)
	}
	rec.PatientID, rec.Date, rec.Doctor = owner.String, date.String, doctor.String
	rec.Diagnosis, rec.Notes = diagnosis.String, notes.String
	rec.Comment = comment
	rec.Archived = archived.Int64 != 0

	var err error
	if rec.Medications, err = decodeMedications(meds); err != nil {
		return nil, storageErr("record "+rec.ID+" medications", err)
	}
	if rec.Vitals, err = decodeVitals(vitals); err != nil {
		return nil, storageErr("record "+rec.ID+" vitals", err)
	}
	return &rec, nil
}
