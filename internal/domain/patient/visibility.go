package patient

// View selects one of the three patient visibility tiers. The tiers are
// never merged into a single filter.
type View int

const (
	// ViewDirectory is the day-to-day staff view: active, non-archived patients.
	ViewDirectory View = iota
	// ViewAudit includes archived patients but not deleted ones.
	ViewAudit
	// ViewExport includes every patient row.
	ViewExport
)

func (v View) String() string {
	switch v {
	case ViewDirectory:
		return "directory"
	case ViewAudit:
		return "audit"
	case ViewExport:
		return "export"
	}
	return "unknown"
}

func VisibleInDirectory(p *Patient) bool {
	return !p.Archived && p.DeletedAt == nil
}

func VisibleInAudit(p *Patient) bool {
	return p.DeletedAt == nil
}

// VisibleInExport is unconditionally true: export reports archive and
// deletion state as columns instead of filtering on them.
func VisibleInExport(_ *Patient) bool {
	return true
}

// RecordVisibleInHistory decides whether a record shows in the current
// history of a patient.
func RecordVisibleInHistory(r *MedicalRecord) bool {
	return !r.Archived
}

func RecordVisibleInExport(_ *MedicalRecord) bool {
	return true
}

// Visible applies the predicate of the given view.
func (v View) Visible(p *Patient) bool {
	switch v {
	case ViewDirectory:
		return VisibleInDirectory(p)
	case ViewAudit:
		return VisibleInAudit(p)
	default:
		return VisibleInExport(p)
	}
}

// FilterPatients returns the patients visible under view, preserving order.
func FilterPatients(view View, patients []*Patient) []*Patient {
	out := make([]*Patient, 0, len(patients))
	for _, p := range patients {
		if view.Visible(p) {
			out = append(out, p)
		}
	}
	return out
}

// ActiveHistory returns the non-archived records, preserving order.
func ActiveHistory(records []*MedicalRecord) []*MedicalRecord {
	out := make([]*MedicalRecord, 0, len(records))
	for _, r := range records {
		if RecordVisibleInHistory(r) {
			out = append(out, r)
		}
	}
	return out
}
