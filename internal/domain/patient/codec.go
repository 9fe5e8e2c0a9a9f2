package patient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Storage-boundary encoding. List and struct fields are kept as JSON text in
// flat columns; the domain model never sees the serialized form.

// legacyListSep separates medications in rows written by the first version of
// the records server.
const legacyListSep = "|"

// encodeList serializes a nullable list. A nil slice stays NULL.
func encodeList(list []string) (*string, error) {
	if list == nil {
		return nil, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	s := string(b)
	return &s, nil
}

// decodeList parses a list column. JSON arrays are the current format; any
// other non-empty text is treated as the legacy pipe-delimited form.
func decodeList(col *string) ([]string, error) {
	if col == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*col)
	if s == "" {
		return []string{}, nil
	}
	if strings.HasPrefix(s, "[") {
		var list []string
		if err := json.Unmarshal([]byte(s), &list); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return list, nil
	}
	return strings.Split(s, legacyListSep), nil
}

// encodeMedications always produces a value: medications are never NULL.
func encodeMedications(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	s, err := encodeList(list)
	if err != nil {
		return "", err
	}
	return *s, nil
}

func decodeMedications(col *string) ([]string, error) {
	list, err := decodeList(col)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

func encodeVitals(v *Vitals) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode vitals: %w", err)
	}
	s := string(b)
	return &s, nil
}

func decodeVitals(col *string) (*Vitals, error) {
	if col == nil || strings.TrimSpace(*col) == "" {
		return nil, nil
	}
	var v Vitals
	if err := json.Unmarshal([]byte(*col), &v); err != nil {
		return nil, fmt.Errorf("decode vitals: %w", err)
	}
	return &v, nil
}

// Logical patient fields that can appear in a partial update.
const (
	fieldName      = "name"
	fieldAge       = "age"
	fieldGender    = "gender"
	fieldBloodType = "bloodType"
	fieldEmail     = "email"
	fieldPhone     = "phone"
	fieldAddress   = "address"
	fieldStatus    = "status"
	fieldComments  = "comments"
	fieldTests     = "tests"
)

type assignment struct {
	field string
	value interface{}
}

// updateAssignments turns the supplied fields of u into column values in a
// fixed order. Stores map each logical field to their own column name.
func updateAssignments(u PatientUpdate) ([]assignment, error) {
	var out []assignment
	if u.Name.Set {
		out = append(out, assignment{fieldName, u.Name.V})
	}
	if u.Age.Set {
		out = append(out, assignment{fieldAge, int(u.Age.V)})
	}
	if u.Gender.Set {
		out = append(out, assignment{fieldGender, u.Gender.V})
	}
	if u.BloodType.Set {
		out = append(out, assignment{fieldBloodType, u.BloodType.V})
	}
	if u.Email.Set {
		out = append(out, assignment{fieldEmail, u.Email.V})
	}
	if u.Phone.Set {
		out = append(out, assignment{fieldPhone, u.Phone.V})
	}
	if u.Address.Set {
		out = append(out, assignment{fieldAddress, u.Address.V})
	}
	if u.Status.Set {
		out = append(out, assignment{fieldStatus, string(u.Status.V)})
	}
	if u.Comments.Set {
		out = append(out, assignment{fieldComments, normalizeComment(u.Comments)})
	}
	if u.Tests.Set {
		var tests []string
		if !u.Tests.Null {
			tests = u.Tests.V
			if tests == nil {
				tests = []string{}
			}
		}
		enc, err := encodeList(tests)
		if err != nil {
			return nil, err
		}
		out = append(out, assignment{fieldTests, enc})
	}
	return out, nil
}
