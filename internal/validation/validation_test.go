package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stagehand-music/stagehand/internal/domain"
)

func TestStruct(t *testing.T) {
	capacity := 0
	top := 0
	badURL := "ftp://files.example/rack.png"

	tests := []struct {
		name       string
		req        any
		wantFields []string
	}{
		{
			name: "valid rack",
			req:  &domain.CreateRackRequest{Name: "Main", Capacity: 12, ImageURL: "https://img.example/rack.png"},
		},
		{
			name:       "missing name and capacity",
			req:        &domain.CreateRackRequest{},
			wantFields: []string{"name", "ru_capacity"},
		},
		{
			name:       "non-http image",
			req:        &domain.CreateRackRequest{Name: "Main", Capacity: 12, ImageURL: badURL},
			wantFields: []string{"image_url"},
		},
		{
			name:       "update with zero capacity",
			req:        &domain.UpdateRackRequest{Capacity: &capacity},
			wantFields: []string{"ru_capacity"},
		},
		{
			name:       "update with non-http image",
			req:        &domain.UpdateEquipmentRequest{ImageURL: &badURL},
			wantFields: []string{"image_url"},
		},
		{
			name:       "equipment needs height and position",
			req:        &domain.CreateEquipmentRequest{Model: "Amp"},
			wantFields: []string{"ru", "ru_position"},
		},
		{
			name:       "move needs a position",
			req:        &domain.MoveEquipmentRequest{},
			wantFields: []string{"ru_position"},
		},
		{
			name: "move to zero is allowed",
			req:  &domain.MoveEquipmentRequest{Position: &top},
		},
		{
			name:       "upload needs name and data",
			req:        &domain.UploadRequest{},
			wantFields: []string{"fileName", "fileData"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Struct() error = %v, want nil", err)
				}
				return
			}

			var errs ValidationErrors
			if !errors.As(err, &errs) {
				t.Fatalf("Struct() error = %v, want ValidationErrors", err)
			}
			got := map[string]bool{}
			for _, e := range errs {
				got[e.Field] = true
			}
			for _, f := range tt.wantFields {
				if !got[f] {
					t.Errorf("missing error for field %q in %v", f, errs)
				}
			}
			if len(errs) != len(tt.wantFields) {
				t.Errorf("got %d errors, want %d: %v", len(errs), len(tt.wantFields), errs)
			}
		})
	}
}

func TestValidateHTTPURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://maps.google.com/?q=club", false},
		{"http://localhost:8080/img.png", false},
		{"ftp://example.com/x", true},
		{"/relative/path.png", true},
		{"https://", true},
		{"javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateHTTPURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHTTPURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDateRange(t *testing.T) {
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(2, 0, 0)

	if err := ValidateDateRange(&start, &end); err != nil {
		t.Errorf("ordered range: %v", err)
	}
	if err := ValidateDateRange(&start, nil); err != nil {
		t.Errorf("open range: %v", err)
	}
	if err := ValidateDateRange(&end, &start); err == nil {
		t.Error("reversed range: want error")
	}
}

func TestValidateRackFit(t *testing.T) {
	tests := []struct {
		name                       string
		position, height, capacity int
		wantErr                    bool
	}{
		{"top", 1, 2, 10, false},
		{"bottom", 9, 2, 10, false},
		{"full height", 1, 10, 10, false},
		{"past bottom", 10, 2, 10, true},
		{"zero position", 0, 1, 10, true},
		{"zero height", 1, 0, 10, true},
		{"taller than rack", 1, 11, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRackFit(tt.position, tt.height, tt.capacity)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRackFit(%d, %d, %d) error = %v, wantErr %v",
					tt.position, tt.height, tt.capacity, err, tt.wantErr)
			}
		})
	}
}

func TestValidateContentType(t *testing.T) {
	tests := []struct {
		ct      string
		wantErr bool
	}{
		{"", false},
		{"image/png", false},
		{"image/svg+xml", false},
		{"png", true},
		{"image/", true},
		{"image/png; charset=x y", true},
	}

	for _, tt := range tests {
		t.Run(tt.ct, func(t *testing.T) {
			err := ValidateContentType(tt.ct)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateContentType(%q) error = %v, wantErr %v", tt.ct, err, tt.wantErr)
			}
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	var errs ValidationErrors
	if errs.HasErrors() {
		t.Fatal("empty collection reports errors")
	}
	errs.Add("name", "", "is required")
	errs.Add("ru", "0", "must be at least 1")
	if got, want := errs.Error(), "name: is required (and 1 more errors)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got, want := errs.Fields(), "name,ru"; got != want {
		t.Errorf("Fields() = %q, want %q", got, want)
	}
	if !errors.Is(errs, domain.ErrInvalidInput) {
		t.Error("ValidationErrors should match domain.ErrInvalidInput")
	}

	errs.Add("fileData", strings.Repeat("A", 100), "is not valid base64")
	if got := errs[2].Value; len(got) != 67 {
		t.Errorf("long value not truncated: %d bytes", len(got))
	}
}
