package validation

import (
	"errors"
	"testing"
)

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		want    string
		wantErr bool
	}{
		{
			name:  "dashed mobile number",
			phone: "010-1234-5678",
			want:  "01012345678",
		},
		{
			name:  "spaces and parentheses",
			phone: "(02) 123 4567",
			want:  "021234567",
		},
		{
			name:  "already normalized",
			phone: "01099998888",
			want:  "01099998888",
		},
		{
			name:    "empty string",
			phone:   "",
			wantErr: true,
		},
		{
			name:    "letters only",
			phone:   "abc-defg",
			wantErr: true,
		},
		{
			name:    "too short",
			phone:   "010-123",
			wantErr: true,
		},
		{
			name:    "too long",
			phone:   "010-1234-5678-9",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePhone(tt.phone)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidatePhone(%q) error = %v, wantErr %v", tt.phone, err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("ValidatePhone(%q) returned %T, want *Error", tt.phone, err)
			}
			if got != tt.want {
				t.Errorf("ValidatePhone(%q) = %q, want %q", tt.phone, got, tt.want)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "korean name", input: "김매니저", wantErr: false},
		{name: "two runes", input: "이준", wantErr: false},
		{name: "single rune", input: "김", wantErr: false},
		{name: "single rune with spaces", input: " 김 ", wantErr: false},
		{name: "blank", input: "   ", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{name: "valid email", email: "test@example.com"},
		{name: "valid email with plus", email: "user+tag@example.com"},
		{name: "empty is optional", email: ""},
		{name: "missing @", email: "testexample.com", wantErr: true},
		{name: "missing domain", email: "test@", wantErr: true},
		{name: "spaces in email", email: "test @example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

type answerRequest struct {
	ChapterID string            `json:"chapterId" validate:"required"`
	Answers   map[string]string `json:"answers" validate:"required,min=1,dive,oneof=1 2 3 4"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     answerRequest
		wantField string
		wantErr   bool
	}{
		{
			name:  "valid",
			input: answerRequest{ChapterID: "c1", Answers: map[string]string{"q1": "2"}},
		},
		{
			name:      "missing chapter",
			input:     answerRequest{Answers: map[string]string{"q1": "2"}},
			wantField: "chapterId",
			wantErr:   true,
		},
		{
			name:      "answer out of range",
			input:     answerRequest{ChapterID: "c1", Answers: map[string]string{"q1": "5"}},
			wantField: "answers[q1]",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("Struct() returned %T, want *Error", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}
