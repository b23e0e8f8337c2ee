package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"budgy/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    string
		wantOK  bool
		wantErr bool
	}{
		{name: "no params", query: url.Values{}, wantOK: false},
		{name: "month picker", query: url.Values{"month": {"2024-03"}}, want: "2024-03", wantOK: true},
		{name: "year and month", query: url.Values{"year": {"2023"}, "month": {"12"}}, want: "2023-12", wantOK: true},
		{name: "month out of range", query: url.Values{"year": {"2024"}, "month": {"13"}}, wantOK: true, wantErr: true},
		{name: "month without year", query: url.Values{"month": {"3"}}, wantOK: true, wantErr: true},
		{name: "bad picker value", query: url.Values{"month": {"2024-3x"}}, wantOK: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, err := ParseMonthParams(tt.query, time.UTC)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidMonth) {
					t.Errorf("err = %v, want ErrInvalidMonth", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != "" && m.String() != tt.want {
				t.Errorf("month = %s, want %s", m, tt.want)
			}
		})
	}
}

func TestParseTargetDate(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skip("tzdata not available")
	}

	got, err := ParseTargetDate("2024-04", loc)
	if err != nil || got == nil {
		t.Fatalf("ParseTargetDate() = %v, %v", got, err)
	}
	if got.Location() != loc || got.Month() != time.April || got.Day() != 1 {
		t.Errorf("unexpected target %v", got)
	}

	got, err = ParseTargetDate("2024-04-20", loc)
	if err != nil || got.Day() != 20 {
		t.Errorf("full date: %v, %v", got, err)
	}

	got, err = ParseTargetDate("  ", loc)
	if err != nil || got != nil {
		t.Errorf("blank: %v, %v", got, err)
	}

	if _, err := ParseTargetDate("April", loc); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"label":" Rent\u0007 ","amount":1250.5,"is_recurring":true}`
	req := httptest.NewRequest(http.MethodPost, "/ledger/fields", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !p.IsJSON() {
		t.Error("expected JSON body")
	}
	if got := p.Get("label"); got != "Rent" {
		t.Errorf("label = %q, want sanitized %q", got, "Rent")
	}
	if got := p.Get("amount"); got != "1250.5" {
		t.Errorf("amount = %q", got)
	}
	if !p.GetBool("is_recurring") {
		t.Error("is_recurring should be true")
	}
	if got := p.Get("missing"); got != "" {
		t.Errorf("missing key = %q", got)
	}
	if p.ContentType() != "application/json" {
		t.Errorf("ContentType() = %q", p.ContentType())
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ledger/fields", strings.NewReader("label=Coffee&kind=counter&recurring=on"))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.IsJSON() {
		t.Error("form body reported as JSON")
	}
	if p.Get("label") != "Coffee" || p.Get("kind") != "counter" {
		t.Errorf("unexpected values: %q %q", p.Get("label"), p.Get("kind"))
	}
	if !p.GetBool("recurring") {
		t.Error("checkbox value on should be true")
	}
	if string(p.GetRaw()) != "label=Coffee&kind=counter&recurring=on" {
		t.Errorf("GetRaw() = %q", p.GetRaw())
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"label":`))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); !errors.Is(err, core.ErrValidation) {
		t.Errorf("malformed JSON: err = %v", err)
	}
	// Parse is memoized.
	if err := p.Parse(); !errors.Is(err, core.ErrValidation) {
		t.Errorf("second Parse: err = %v", err)
	}

	big := strings.NewReader("label=" + strings.Repeat("a", maxBodyBytes+10))
	p = NewRequestBodyParser(httptest.NewRequest(http.MethodPost, "/", big))
	if err := p.Parse(); !errors.Is(err, core.ErrValidation) {
		t.Errorf("oversized body: err = %v", err)
	}

	p = NewRequestBodyParser(httptest.NewRequest(http.MethodPost, "/", nil))
	if err := p.Parse(); err != nil {
		t.Errorf("empty body: err = %v", err)
	}
	if p.Get("label") != "" {
		t.Error("empty body should yield empty values")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  plain  ":        "plain",
		"tab\there":        "tab\there",
		"bell\x07gone":     "bellgone",
		"line\nbreak kept": "line\nbreak kept",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer  abc ", "abc", false},
		{"Basic dXNlcg==", "", true},
		{"Bearer", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, err := bearerToken(req)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("bearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}
