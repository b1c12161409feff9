package students

import "testing"

func TestFoldStripsAccents(t *testing.T) {
	cases := map[string]string{
		"Muñoz":     "munoz",
		"José":      "jose",
		"BÁRBARA":   "barbara",
		"O'Higgins": "o'higgins",
		"ñandú":     "nandu",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatches(t *testing.T) {
	s := Student{FirstName: "José", PaternalLastName: "Muñoz", MaternalLastName: "Pérez", RUT: "12.345.678-9"}

	for _, q := range []string{"", "jose", "munoz", "MUÑOZ", "perez", "12.345"} {
		if !matches(s, Fold(q)) {
			t.Errorf("expected query %q to match", q)
		}
	}
	for _, q := range []string{"gonzalez", "99.999"} {
		if matches(s, Fold(q)) {
			t.Errorf("expected query %q not to match", q)
		}
	}
}
