package language

import "testing"

func TestToISO2(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"en", "en"},
		{"eng", "en"},
		{"en-US", "en"},
		{"  fr  ", "fr"},
		{"pt-BR", "pt"},
		{"", ""},
		{"not a language!", ""},
	}
	for _, tc := range cases {
		if got := ToISO2(tc.input); got != tc.want {
			t.Fatalf("ToISO2(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestDisplayNameFallsBackToInput(t *testing.T) {
	if got := DisplayName("en"); got != "English" {
		t.Fatalf("DisplayName(en) = %q", got)
	}
	if got := DisplayName("???"); got != "???" {
		t.Fatalf("expected raw fallback, got %q", got)
	}
	if got := DisplayName(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
