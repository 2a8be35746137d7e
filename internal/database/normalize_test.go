package database

import "testing"

func TestNormalizeIdentityName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase passthrough", "jana", "jana"},
		{"uppercase", "Jana", "jana"},
		{"diacritics", "Jana Nováková", "jana novakova"},
		{"slug form", "jana-novakova", "jana novakova"},
		{"mixed slug and diacritics", "Jiří-Černý", "jiri cerny"},
		{"extra whitespace", "  Jana   Nováková  ", "jana novakova"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeIdentityName(tc.input)
			if got != tc.want {
				t.Errorf("NormalizeIdentityName(%q) = %q; want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizedNamesMatch(t *testing.T) {
	pairs := [][2]string{
		{"jan-novak", "Jan Novák"},
		{"PETR SVOBODA", "petr svoboda"},
		{"Žofie Říhová", "zofie-rihova"},
	}

	for _, pair := range pairs {
		if NormalizeIdentityName(pair[0]) != NormalizeIdentityName(pair[1]) {
			t.Errorf("%q and %q should normalize to the same name", pair[0], pair[1])
		}
	}
}
