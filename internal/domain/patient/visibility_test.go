package patient

import (
	"testing"
	"time"
)

func TestVisibilityTiers(t *testing.T) {
	deleted := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		p         Patient
		directory bool
		audit     bool
	}{
		{"live", Patient{}, true, true},
		{"archived", Patient{Archived: true}, false, true},
		{"deleted", Patient{DeletedAt: &deleted}, false, false},
		{"archived and deleted", Patient{Archived: true, DeletedAt: &deleted}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisibleInDirectory(&tt.p); got != tt.directory {
				t.Errorf("VisibleInDirectory = %v, want %v", got, tt.directory)
			}
			if got := VisibleInAudit(&tt.p); got != tt.audit {
				t.Errorf("VisibleInAudit = %v, want %v", got, tt.audit)
			}
			if !VisibleInExport(&tt.p) {
				t.Error("VisibleInExport must always be true")
			}
		})
	}
}

func TestFilterPatients_PreservesOrder(t *testing.T) {
	deleted := time.Now()
	ps := []*Patient{
		{ID: "a"},
		{ID: "b", Archived: true},
		{ID: "c"},
		{ID: "d", DeletedAt: &deleted},
	}
	cases := map[View][]string{
		ViewDirectory: {"a", "c"},
		ViewAudit:     {"a", "b", "c"},
		ViewExport:    {"a", "b", "c", "d"},
	}
	for view, want := range cases {
		got := FilterPatients(view, ps)
		if len(got) != len(want) {
			t.Fatalf("%s: expected %v, got %d patients", view, want, len(got))
		}
		for i := range want {
			if got[i].ID != want[i] {
				t.Errorf("%s: position %d expected %s, got %s", view, i, want[i], got[i].ID)
			}
		}
	}
}

func TestActiveHistory(t *testing.T) {
	records := []*MedicalRecord{{ID: "r1"}, {ID: "r2", Archived: true}, {ID: "r3"}}
	got := ActiveHistory(records)
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r3" {
		t.Errorf("unexpected history %+v", got)
	}
	if !RecordVisibleInExport(records[1]) {
		t.Error("archived records must stay exportable")
	}
}
