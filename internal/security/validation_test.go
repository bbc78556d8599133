package security

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "stocksignal/internal/errors"
)

func TestValidateTicker(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"bbca", "BBCA", false},
		{" tlkm.jk ", "TLKM.JK", false},
		{"BRK-B", "BRK-B", false},
		{"", "", true},
		{"BBCA;DROP", "BBCADROP", false},
		{"ABCDEFGHIJKLMNOP", "", true},
		{"BBCA.JKTX", "", true},
	}
	for _, tt := range tests {
		got, err := ValidateTicker(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTicker(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidateTicker(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ValidateTicker("TOOLONGTICKER1"); !apperrors.Is(err, apperrors.ErrInvalidTicker) {
		t.Errorf("expected ErrInvalidTicker, got %v", err)
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"628123456789", "628123456789", false},
		{"+62 812-3456-789", "628123456789", false},
		{"120363025246125888@g.us", "120363025246125888@g.us", false},
		{"12345", "", true},
		{"62abc", "", true},
		{"abc@g.us", "", true},
	}
	for _, tt := range tests {
		got, err := ValidatePhone(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePhone(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidatePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskCredential(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		"abc":                  "***",
		"abcdef":               "ab****",
		"AIzaSyA1234567890xyz": "AIza************0xyz",
	}
	for in, want := range tests {
		if got := MaskCredential(in); got != want {
			t.Errorf("MaskCredential(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskSensitive(t *testing.T) {
	key := "AIzaSyD" + strings.Repeat("x", 32)
	msg := "request failed: key=" + key
	masked := MaskSensitive(msg)
	if strings.Contains(masked, key) {
		t.Errorf("key leaked: %s", masked)
	}
	if !ContainsSensitiveData(msg) {
		t.Error("expected key to be detected")
	}
	if ContainsSensitiveData("BBCA closed at 9,250") {
		t.Error("plain text flagged as sensitive")
	}
}

func TestProperty_MaskedCredentialKeepsLength(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("masking preserves length and hides the middle", prop.ForAll(
		func(s string) bool {
			m := MaskCredential(s)
			if len(m) != len(s) {
				return false
			}
			return len(s) <= 8 || m[4:len(m)-4] == strings.Repeat("*", len(s)-8)
		},
		gen.AlphaString(),
	))
	properties.TestingRun(t)
}
