// internal/emails/extractor_test.go
package emails

import (
	"reflect"
	"testing"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "collapses whitespace runs",
			input:    "hello\n\tworld  again",
			expected: "hello world again",
		},
		{
			name:     "splits glued TLD boundary",
			input:    "reach me at john@acme.comJane Smith says hi",
			expected: "reach me at john@acme.com Jane Smith says hi",
		},
		{
			name:     "does not split dot-co",
			input:    "mail me jane@startup.co today",
			expected: "mail me jane@startup.co today",
		},
		{
			name:     "rejoins spaces around at sign",
			input:    "user @ domain.com",
			expected: "user@domain.com",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeText(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtract_ValidCorpus(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "simple address",
			input:    "contact jane.doe@acme.io please",
			expected: []string{"jane.doe@acme.io"},
		},
		{
			name:     "plus and underscore local part",
			input:    "a_b+c@sub.example.org works",
			expected: []string{"a_b+c@sub.example.org"},
		},
		{
			name:     "uppercase normalized to lowercase",
			input:    "Mail John.Doe@Acme.COM now",
			expected: []string{"john.doe@acme.com"},
		},
		{
			name:     "mailto link target",
			input:    `click mailto:sales@widgets.net?subject=hi for info`,
			expected: []string{"sales@widgets.net"},
		},
		{
			name:     "multiple distinct preserved in order",
			input:    "first al@alpha.com then bo@beta.org",
			expected: []string{"al@alpha.com", "bo@beta.org"},
		},
		{
			name:     "case-insensitive dedupe keeps first",
			input:    "xx@ybase.com and XX@YBASE.COM again",
			expected: []string{"xx@ybase.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Extract(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtract_InvalidCorpus(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "placeholder address", input: "write to test@test.com"},
		{name: "phone-like local part", input: "call 971234567@gmail.com"},
		{name: "all-digit local part", input: "id is 42@gmail.com"},
		{name: "image filename", input: "see avatar@big.png here"},
		{name: "single-char local part", input: "ping a@gmail.com now"},
		{name: "double dot local part", input: "weird a..b@domain.com text"},
		{name: "no text", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.input); len(got) != 0 {
				t.Errorf("Extract(%q) = %v, want none", tt.input, got)
			}
		})
	}
}

func TestExtract_DeconcatenationRoundTrip(t *testing.T) {
	input := "Thanks! reach me at john@acme.comJane Smith says hi"
	got := Extract(input)
	if len(got) != 1 || got[0] != "john@acme.com" {
		t.Fatalf("Extract(%q) = %v, want exactly [john@acme.com]", input, got)
	}
	for _, e := range got {
		if e == "comjane@acme.com" || e == "jane@acme.comjane" {
			t.Errorf("fabricated candidate %q from concatenated text", e)
		}
	}
}

func TestIsLikelyInvalid(t *testing.T) {
	tests := []struct {
		email   string
		invalid bool
	}{
		{"jane.doe@acme.io", false},
		{"a_b+c@sub.example.org", false},
		{"jane@company.co", false},
		{"971@gmail.com", true},
		{"test@test.com", true},
		{"x@y", true},
		{"ab@visionsquareit.comyppalomadhup.com", true},
		{"ab@domain.toolongtld", true},
		{"a@b.com", true}, // local part too short
	}

	for _, tt := range tests {
		if got := IsLikelyInvalid(tt.email); got != tt.invalid {
			t.Errorf("IsLikelyInvalid(%q) = %v, want %v", tt.email, got, tt.invalid)
		}
	}
}

func TestSanitizeDisplayText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "strips emoji", input: "Jane 🚀 Doe", expected: "Jane Doe"},
		{name: "strips control chars", input: "Jane\x00Doe", expected: "JaneDoe"},
		{name: "collapses whitespace", input: "  Jane   Doe  ", expected: "Jane Doe"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeDisplayText(tt.input); got != tt.expected {
				t.Errorf("SanitizeDisplayText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
