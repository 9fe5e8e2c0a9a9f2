package patient

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/boamahfreda240-hash/Medihealth-Project/internal/platform/db"
	"github.com/boamahfreda240-hash/Medihealth-Project/pkg/optional"
)

func openTestSQLite(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

func TestSQLiteRepo_PatientLifecycle(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestSQLite(t)
	patients := NewPatientRepoSQLite(sqlDB)

	comment := "allergic to penicillin"
	p := &Patient{
		ID: "P1", Name: "Ann", Age: 30, Gender: "Female", BloodType: "O+",
		LastVisit: "2024-03-15", Status: StatusActive, Comments: &comment, Tests: []string{"CBC"},
	}
	att := []*Attachment{{ID: "A1", Name: "scan.png", Content: "data:image/png;base64,AA"}}
	if err := patients.Create(ctx, p, att); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := patients.Create(ctx, &Patient{ID: "P2", Name: "Bob", Gender: "Male", Status: StatusStable}, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := patients.GetByID(ctx, "P1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Ann" || got.Age != 30 || got.BloodType != "O+" || got.Comments == nil || *got.Comments != comment {
		t.Errorf("unexpected patient %+v", got)
	}
	if len(got.Tests) != 1 || got.Tests[0] != "CBC" {
		t.Errorf("unexpected tests %v", got.Tests)
	}

	if err := patients.Update(ctx, "P1", PatientUpdate{Age: optional.Of(Age(31)), Comments: optional.Null[string]()}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = patients.GetByID(ctx, "P1")
	if got.Age != 31 || got.Comments != nil || got.Name != "Ann" {
		t.Errorf("unexpected patient after update %+v", got)
	}

	if err := patients.Archive(ctx, "P2"); err != nil {
		t.Fatal(err)
	}
	first := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	if err := patients.SoftDelete(ctx, "P1", first); err != nil {
		t.Fatal(err)
	}
	if err := patients.SoftDelete(ctx, "P1", first.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	got, _ = patients.GetByID(ctx, "P1")
	if got.DeletedAt == nil || !got.DeletedAt.Equal(first) {
		t.Errorf("expected first deletion time %v, got %v", first, got.DeletedAt)
	}

	counts := []struct {
		name string
		list func(context.Context) ([]*Patient, error)
		want int
	}{
		{"active", patients.ListActive, 0},
		{"all", patients.ListAll, 1},
		{"including deleted", patients.ListAllIncludingDeleted, 2},
	}
	for _, c := range counts {
		ps, err := c.list(ctx)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if len(ps) != c.want {
			t.Errorf("%s: expected %d patients, got %d", c.name, c.want, len(ps))
		}
	}

	atts, err := patients.ListAttachments(ctx, "P1")
	if err != nil {
		t.Fatal(err)
	}
	if len(atts) != 1 || atts[0].Content != "data:image/png;base64,AA" {
		t.Errorf("unexpected attachments %+v", atts)
	}
}

func TestSQLiteRepo_CreateConflictRollsBack(t *testing.T) {
	ctx := context.Background()
	patients := NewPatientRepoSQLite(openTestSQLite(t))

	if err := patients.Create(ctx, &Patient{ID: "P1", Name: "Ann", Gender: "F"}, []*Attachment{{ID: "A1"}}); err != nil {
		t.Fatal(err)
	}
	err := patients.Create(ctx, &Patient{ID: "P1", Name: "Dup", Gender: "F"}, nil)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate patient, got %v", err)
	}

	err = patients.Create(ctx, &Patient{ID: "P2", Name: "Bob", Gender: "M"}, []*Attachment{{ID: "A2"}, {ID: "A1"}})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate attachment, got %v", err)
	}
	if _, err := patients.GetByID(ctx, "P2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected P2 rolled back, got %v", err)
	}
	atts, _ := patients.ListAttachments(ctx, "P2")
	if len(atts) != 0 {
		t.Errorf("expected no orphaned attachments, got %d", len(atts))
	}
}

func TestSQLiteRepo_Records(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestSQLite(t)
	patients := NewPatientRepoSQLite(sqlDB)
	records := NewRecordRepoSQLite(sqlDB)

	if err := patients.Create(ctx, &Patient{ID: "P1", Name: "Ann", Gender: "F"}, nil); err != nil {
		t.Fatal(err)
	}
	r1 := &MedicalRecord{ID: "R1", PatientID: "P1", Date: "2024-01-01", Diagnosis: "Flu",
		Medications: []string{"Oseltamivir", "Acetaminophen"}, Vitals: &Vitals{BloodPressure: "120/80"}}
	r2 := &MedicalRecord{ID: "R2", PatientID: "P1", Date: "2024-02-01", Diagnosis: "Checkup"}
	for _, r := range []*MedicalRecord{r1, r2} {
		if err := records.Create(ctx, r); err != nil {
			t.Fatalf("Create %s: %v", r.ID, err)
		}
	}
	if err := records.Create(ctx, r1); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if err := records.Archive(ctx, "P1", "R2"); err != nil {
		t.Fatal(err)
	}

	got, err := records.ListByPatient(ctx, "P1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if len(got[0].Medications) != 2 || got[0].Vitals == nil || got[0].Vitals.BloodPressure != "120/80" {
		t.Errorf("unexpected first record %+v", got[0])
	}
	if got[1].Medications == nil || !got[1].Archived {
		t.Errorf("unexpected second record %+v", got[1])
	}
}

func TestSQLiteRepo_LegacyRows(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestSQLite(t)

	// Rows as the first server wrote them: pipe-joined medications, "bp"
	// vitals and NULL optional columns.
	if _, err := sqlDB.ExecContext(ctx,
		`INSERT INTO patients (id, name, age, gender, status) VALUES ('1', 'Sarah Jenkins', 42, 'Female', 'Stable')`); err != nil {
		t.Fatal(err)
	}
	if _, err := sqlDB.ExecContext(ctx,
		`INSERT INTO records (id, patientId, date, diagnosis, medications, vitals) VALUES
		 ('r1', '1', '2023-11-24', 'Seasonal Influenza', 'Oseltamivir|Acetaminophen', '{"bp":"120/80","heartRate":"72 bpm"}')`); err != nil {
		t.Fatal(err)
	}

	p, err := NewPatientRepoSQLite(sqlDB).GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p.Archived || p.DeletedAt != nil || p.Tests != nil || p.Email != "" {
		t.Errorf("unexpected legacy patient %+v", p)
	}

	// Ages were stored as posted; blank and free-text values keep TEXT type.
	if _, err := sqlDB.ExecContext(ctx,
		`INSERT INTO patients (id, name, age, gender, status) VALUES
		 ('2', 'Blank Age', '', 'Male', 'Active'),
		 ('3', 'Text Age', 'n/a', 'Female', 'Active'),
		 ('4', 'String Age', '31', 'Male', 'Active')`); err != nil {
		t.Fatal(err)
	}
	all, err := NewPatientRepoSQLite(sqlDB).ListAllIncludingDeleted(ctx)
	if err != nil {
		t.Fatalf("ListAllIncludingDeleted: %v", err)
	}
	wantAges := map[string]Age{"1": 42, "2": 0, "3": 0, "4": 31}
	if len(all) != len(wantAges) {
		t.Fatalf("expected %d patients, got %d", len(wantAges), len(all))
	}
	for _, p := range all {
		if p.Age != wantAges[p.ID] {
			t.Errorf("patient %s: expected age %d, got %d", p.ID, wantAges[p.ID], p.Age)
		}
	}

	recs, err := NewRecordRepoSQLite(sqlDB).ListByPatient(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if len(recs[0].Medications) != 2 || recs[0].Medications[1] != "Acetaminophen" {
		t.Errorf("unexpected medications %v", recs[0].Medications)
	}
	if recs[0].Vitals == nil || recs[0].Vitals.BloodPressure != "120/80" {
		t.Errorf("unexpected vitals %+v", recs[0].Vitals)
	}
}
