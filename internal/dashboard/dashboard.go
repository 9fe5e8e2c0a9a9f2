// Package dashboard computes the directory search and the summary figures
// shown on the clinic dashboard. All functions are pure over a patient list.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/boamahfreda240-hash/Medihealth-Project/internal/datasource"
	"github.com/boamahfreda240-hash/Medihealth-Project/internal/domain/patient"
)

const (
	DefaultTrendDays     = 14
	DefaultRecentRecords = 8
)

type Stats struct {
	TotalPatients  int `json:"totalPatients"`
	ActivePatients int `json:"activePatients"`
	CriticalCases  int `json:"criticalCases"`
	StablePatients int `json:"stablePatients"`
}

// TrendPoint counts records dated on a single day.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type RecentRecord struct {
	PatientID   string                 `json:"patientId"`
	PatientName string                 `json:"patientName"`
	Phone       string                 `json:"phone"`
	Record      *patient.MedicalRecord `json:"record"`
}

// Search filters the directory. An empty query lists non-archived patients.
// Otherwise a patient matches on name, id, or any record in its history,
// archived records included.
func Search(patients []*patient.Patient, query string) []*patient.Patient {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []*patient.Patient{}
	if q == "" {
		for _, p := range patients {
			if !p.Archived {
				out = append(out, p)
			}
		}
		return out
	}
	for _, p := range patients {
		if matchesPatient(p, q) {
			out = append(out, p)
		}
	}
	return out
}

func matchesPatient(p *patient.Patient, q string) bool {
	if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(p.ID, q) {
		return true
	}
	for _, r := range p.Records {
		if matchesRecord(r, q) {
			return true
		}
	}
	return false
}

func matchesRecord(r *patient.MedicalRecord, q string) bool {
	return strings.Contains(strings.ToLower(r.Diagnosis), q) ||
		strings.Contains(strings.ToLower(r.Notes), q) ||
		strings.Contains(strings.ToLower(r.Doctor), q) ||
		strings.Contains(strings.ToLower(strings.Join(r.Medications, " ")), q) ||
		strings.Contains(r.Date, q)
}

func ComputeStats(patients []*patient.Patient) Stats {
	s := Stats{TotalPatients: len(patients)}
	for _, p := range patients {
		switch p.Status {
		case patient.StatusActive:
			s.ActivePatients++
		case patient.StatusCritical:
			s.CriticalCases++
		case patient.StatusStable:
			s.StablePatients++
		}
	}
	return s
}

// RecordsTrend returns one point per day for the days ending on today,
// oldest first. Records dated outside the window are ignored.
func RecordsTrend(patients []*patient.Patient, days int, today time.Time) []TrendPoint {
	if days <= 0 {
		return []TrendPoint{}
	}
	points := make([]TrendPoint, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		key := today.AddDate(0, 0, i-days+1).Format(patient.DateLayout)
		points[i] = TrendPoint{Date: key}
		index[key] = i
	}
	for _, p := range patients {
		for _, r := range p.Records {
			if i, ok := index[r.Date]; ok {
				points[i].Count++
			}
		}
	}
	return points
}

// RecentRecords returns up to n non-archived records across all patients,
// newest date first. Ties keep directory order.
func RecentRecords(patients []*patient.Patient, n int) []RecentRecord {
	all := []RecentRecord{}
	for _, p := range patients {
		for _, r := range patient.ActiveHistory(p.Records) {
			all = append(all, RecentRecord{PatientID: p.ID, PatientName: p.Name, Phone: p.Phone, Record: r})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Record.Date > all[j].Record.Date
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Summary is the dashboard as a whole.
type Summary struct {
	Source        string             `json:"source"`
	Query         string             `json:"query"`
	Stats         Stats              `json:"stats"`
	Matches       []*patient.Patient `json:"matches"`
	Trend         []TrendPoint       `json:"trend"`
	RecentRecords []RecentRecord     `json:"recentRecords"`
}

// Build loads the directory from src once and derives every dashboard view.
func Build(ctx context.Context, src datasource.DataSource, query string, now time.Time) (*Summary, error) {
	patients, err := src.Patients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s directory: %w", src.Name(), err)
	}
	return &Summary{
		Source:        src.Name(),
		Query:         query,
		Stats:         ComputeStats(patients),
		Matches:       Search(patients, query),
		Trend:         RecordsTrend(patients, DefaultTrendDays, now),
		RecentRecords: RecentRecords(patients, DefaultRecentRecords),
	}, nil
}
