package patient

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/boamahfreda240-hash/Medihealth-Project/pkg/optional"
)

func TestUpdatePatientSQLPG(t *testing.T) {
	assigns, err := updateAssignments(PatientUpdate{
		Name:      optional.Of("Ann"),
		BloodType: optional.Of("AB-"),
		Status:    optional.Of(StatusCritical),
		Tests:     optional.Of([]string{}),
	})
	if err != nil {
		t.Fatal(err)
	}

	q, args := updatePatientSQLPG("P1", assigns)
	want := `UPDATE patients SET name = $1, blood_type = $2, status = $3, tests = $4, updated_at = NOW() WHERE id = $5`
	if q != want {
		t.Errorf("unexpected query\n got: %s\nwant: %s", q, want)
	}
	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %d", len(args))
	}
	if args[0] != "Ann" || args[1] != "AB-" || args[2] != "Critical" || args[4] != "P1" {
		t.Errorf("unexpected args %#v", args)
	}
	if tests, ok := args[3].(*string); !ok || tests == nil || *tests != "[]" {
		t.Errorf("expected empty tests encoded as [], got %#v", args[3])
	}
}

func TestUpdatePatientSQLPG_EveryColumnMapped(t *testing.T) {
	assigns, err := updateAssignments(PatientUpdate{
		Name: optional.Of("Ann"), Age: optional.Of(Age(3)), Gender: optional.Of("F"),
		BloodType: optional.Of("O+"), Email: optional.Of("a@b.c"), Phone: optional.Of("1"),
		Address: optional.Of("x"), Status: optional.Of(StatusActive),
		Comments: optional.Null[string](), Tests: optional.Null[[]string](),
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range assigns {
		if patientColumnsPG[a.field] == "" {
			t.Errorf("field %q has no postgres column", a.field)
		}
		if patientColumnsSQLite[a.field] == "" {
			t.Errorf("field %q has no sqlite column", a.field)
		}
	}
	if _, args := updatePatientSQLPG("P1", assigns); len(args) != len(assigns)+1 {
		t.Errorf("expected %d args, got %d", len(assigns)+1, len(args))
	}
}

func TestPGWriteErr(t *testing.T) {
	dup := fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key"})
	if err := pgWriteErr("insert patient P1", dup); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for unique violation, got %v", err)
	}

	fk := &pgconn.PgError{Code: "23503", Message: "foreign key violation"}
	err := pgWriteErr("insert record R1", fk)
	if !errors.Is(err, ErrStorage) || errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrStorage for other errors, got %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Error("expected driver error to stay reachable")
	}
}
