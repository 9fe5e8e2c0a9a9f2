package patient

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/boamahfreda240-hash/Medihealth-Project/pkg/optional"
)

// DateLayout is the calendar date format used for lastVisit and record dates.
const DateLayout = "2006-01-02"

type Status string

const (
	StatusActive     Status = "Active"
	StatusStable     Status = "Stable"
	StatusCritical   Status = "Critical"
	StatusDischarged Status = "Discharged"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusStable, StatusCritical, StatusDischarged:
		return true
	}
	return false
}

// Age is a non-negative age in years. It decodes from a JSON number or a
// numeric string, since form posts commonly send the latter.
type Age int

// maxAge is the largest age the age columns can hold.
const maxAge = math.MaxInt32

func (a *Age) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	v, err := ParseAge(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAge parses a whole number of years. Blank input is 0. Fractional and
// out-of-range values are rejected rather than truncated.
func ParseAge(s string) (Age, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("age: %q is not a number", s)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("age: %q is not a whole number", s)
	}
	if math.Abs(f) > maxAge {
		return 0, fmt.Errorf("age: %q is out of range", s)
	}
	return Age(f), nil
}

// Patient maps to the patients table.
type Patient struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Age         Age              `json:"age"`
	Gender      string           `json:"gender"`
	BloodType   string           `json:"bloodType"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	Address     string           `json:"address"`
	LastVisit   string           `json:"lastVisit"`
	Status      Status           `json:"status"`
	Comments    *string          `json:"comments"`
	Tests       []string         `json:"tests"`
	Archived    bool             `json:"archived"`
	DeletedAt   *time.Time       `json:"deletedAt"`
	Records     []*MedicalRecord `json:"records,omitempty"`
	Attachments []*Attachment    `json:"attachments,omitempty"`
}

// IsDeleted reports whether the patient has been soft-deleted.
func (p *Patient) IsDeleted() bool {
	return p.DeletedAt != nil
}

// Vitals is the optional vital-signs block of a record.
type Vitals struct {
	BloodPressure string `json:"bloodPressure"`
	HeartRate     string `json:"heartRate"`
	Temperature   string `json:"temperature"`
}

func (v *Vitals) UnmarshalJSON(data []byte) error {
	var raw struct {
		BloodPressure string `json:"bloodPressure"`
		BP            string `json:"bp"`
		HeartRate     string `json:"heartRate"`
		Temperature   string `json:"temperature"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.BloodPressure = raw.BloodPressure
	if v.BloodPressure == "" {
		v.BloodPressure = raw.BP
	}
	v.HeartRate = raw.HeartRate
	v.Temperature = raw.Temperature
	return nil
}

// MedicalRecord maps to the records table.
type MedicalRecord struct {
	ID          string   `json:"id"`
	PatientID   string   `json:"patientId"`
	Date        string   `json:"date"`
	Doctor      string   `json:"doctor"`
	Diagnosis   string   `json:"diagnosis"`
	Notes       string   `json:"notes"`
	Comment     *string  `json:"comment"`
	Medications []string `json:"medications"`
	Vitals      *Vitals  `json:"vitals"`
	Archived    bool     `json:"archived"`
}

// Attachment maps to the attachments table. Content is an inline data URL.
type Attachment struct {
	ID        string `json:"id"`
	PatientID string `json:"patientId,omitempty"`
	Name      string `json:"name"`
	Content   string `json:"content"`
}

func (a *Attachment) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string `json:"id"`
		PatientID string `json:"patientId"`
		Name      string `json:"name"`
		Content   string `json:"content"`
		DataURL   string `json:"dataUrl"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.ID = raw.ID
	a.PatientID = raw.PatientID
	a.Name = raw.Name
	a.Content = raw.Content
	if a.Content == "" {
		a.Content = raw.DataURL
	}
	return nil
}

// PatientUpdate carries a partial patient update. Only fields that are Set
// are written. Comments and Tests are the nullable fields: an explicit null
// clears them.
type PatientUpdate struct {
	Name      optional.Value[string]   `json:"name"`
	Age       optional.Value[Age]      `json:"age"`
	Gender    optional.Value[string]   `json:"gender"`
	BloodType optional.Value[string]   `json:"bloodType"`
	Email     optional.Value[string]   `json:"email"`
	Phone     optional.Value[string]   `json:"phone"`
	Address   optional.Value[string]   `json:"address"`
	Status    optional.Value[Status]   `json:"status"`
	Comments  optional.Value[string]   `json:"comments"`
	Tests     optional.Value[[]string] `json:"tests"`
}

// Empty reports whether the update changes nothing.
func (u PatientUpdate) Empty() bool {
	return !u.Name.Set && !u.Age.Set && !u.Gender.Set && !u.BloodType.Set &&
		!u.Email.Set && !u.Phone.Set && !u.Address.Set && !u.Status.Set &&
		!u.Comments.Set && !u.Tests.Set
}

// Apply writes the supplied fields onto p.
func (u PatientUpdate) Apply(p *Patient) {
	if u.Name.Set {
		p.Name = u.Name.V
	}
	if u.Age.Set {
		p.Age = u.Age.V
	}
	if u.Gender.Set {
		p.Gender = u.Gender.V
	}
	if u.BloodType.Set {
		p.BloodType = u.BloodType.V
	}
	if u.Email.Set {
		p.Email = u.Email.V
	}
	if u.Phone.Set {
		p.Phone = u.Phone.V
	}
	if u.Address.Set {
		p.Address = u.Address.V
	}
	if u.Status.Set {
		p.Status = u.Status.V
	}
	if u.Comments.Set {
		p.Comments = normalizeComment(u.Comments)
	}
	if u.Tests.Set {
		if u.Tests.Null {
			p.Tests = nil
		} else {
			p.Tests = append([]string{}, u.Tests.V...)
		}
	}
}

// normalizeComment maps null and blank comments to nil and trims the rest.
func normalizeComment(v optional.Value[string]) *string {
	s, ok := v.Get()
	if !ok {
		return nil
	}
	return trimmedOrNil(&s)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func clonePatient(p *Patient) *Patient {
	c := *p
	if p.Comments != nil {
		s := *p.Comments
		c.Comments = &s
	}
	if p.Tests != nil {
		c.Tests = append([]string{}, p.Tests...)
	}
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	c.Records = nil
	c.Attachments = nil
	return &c
}

func cloneRecord(r *MedicalRecord) *MedicalRecord {
	c := *r
	if r.Comment != nil {
		s := *r.Comment
		c.Comment = &s
	}
	c.Medications = append([]string{}, r.Medications...)
	if r.Vitals != nil {
		v := *r.Vitals
		c.Vitals = &v
	}
	return &c
}
