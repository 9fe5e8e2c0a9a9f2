package patient

import (
	"encoding/json"
	"testing"
)

func TestParseAge(t *testing.T) {
	tests := []struct {
		in      string
		want    Age
		wantErr bool
	}{
		{"30", 30, false},
		{" 42 ", 42, false},
		{"", 0, false},
		{"30.0", 30, false},
		{"30.9", 0, true},
		{"1e30", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"thirty", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseAge(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAge(%q): err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAge(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAge_UnmarshalJSON(t *testing.T) {
	var p Patient
	if err := json.Unmarshal([]byte(`{"age":"41"}`), &p); err != nil {
		t.Fatalf("unmarshal string age: %v", err)
	}
	if p.Age != 41 {
		t.Errorf("expected 41, got %d", p.Age)
	}

	p = Patient{Age: 7}
	if err := json.Unmarshal([]byte(`{"age":null}`), &p); err != nil {
		t.Fatalf("unmarshal null age: %v", err)
	}
	if p.Age != 7 {
		t.Errorf("expected null to leave age unchanged, got %d", p.Age)
	}

	for _, body := range []string{`{"age":30.9}`, `{"age":1e30}`, `{"age":"30.5"}`} {
		if err := json.Unmarshal([]byte(body), &p); err == nil {
			t.Errorf("expected error for %s", body)
		}
	}
}
