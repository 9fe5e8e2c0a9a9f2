package datasource

import (
	"context"

	"github.com/boamahfreda240-hash/Medihealth-Project/internal/domain/patient"
)

// StaticFixtureSource serves the built-in sample directory. It is used for
// demos and when no records API is reachable.
type StaticFixtureSource struct{}

func NewStaticFixtureSource() *StaticFixtureSource { return &StaticFixtureSource{} }

func (StaticFixtureSource) Name() string { return "static" }

// Patients returns a fresh copy on every call so callers may mutate it.
func (StaticFixtureSource) Patients(context.Context) ([]*patient.Patient, error) {
	return samplePatients(), nil
}

func samplePatients() []*patient.Patient {
	return []*patient.Patient{
		{
			ID:        "1",
			Name:      "Sarah Jenkins",
			Age:       42,
			Gender:    "Female",
			BloodType: "O+",
			Email:     "sarah.j@example.com",
			Phone:     "+1 555-0123",
			Address:   "123 Pine St, Seattle, WA",
			LastVisit: "2023-11-24",
			Status:    patient.StatusStable,
			Records: []*patient.MedicalRecord{{
				ID:          "r1",
				PatientID:   "1",
				Date:        "2023-11-24",
				Doctor:      "Dr. Michael Chen",
				Diagnosis:   "Seasonal Influenza",
				Notes:       "Patient presented with high fever, body aches, and persistent cough. Prescribed rest and fluids.",
				Medications: []string{"Oseltamivir", "Acetaminophen"},
				Vitals:      &patient.Vitals{BloodPressure: "120/80", HeartRate: "72 bpm", Temperature: "101.2°F"},
			}},
		},
		{
			ID:        "2",
			Name:      "Robert Miller",
			Age:       65,
			Gender:    "Male",
			BloodType: "A-",
			Email:     "rob.miller@example.com",
			Phone:     "+1 555-0456",
			Address:   "456 Oak Ln, Portland, OR",
			LastVisit: "2023-12-01",
			Status:    patient.StatusActive,
			Records: []*patient.MedicalRecord{{
				ID:          "r2",
				PatientID:   "2",
				Date:        "2023-12-01",
				Doctor:      "Dr. Sarah Wilson",
				Diagnosis:   "Hypertension Management",
				Notes:       "Regular checkup. BP is slightly elevated compared to last visit. Patient advised to reduce salt intake.",
				Medications: []string{"Lisinopril"},
				Vitals:      &patient.Vitals{BloodPressure: "145/95", HeartRate: "68 bpm", Temperature: "98.6°F"},
			}},
		},
	}
}
