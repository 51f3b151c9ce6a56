package api

import "testing"

func TestValidateEmailRegex(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"a@b.com", true},
		{"a+b@b.com.br", true},
		{"", false},
		{"   ", false},
		{"a@", false},
		{"@b.com", false},
		{"a@b", false},
		{"a b@c.com", false},
	}
	for _, c := range cases {
		err := ValidateEmailRegex(c.in)
		if (err == nil) != c.want {
			t.Fatalf("email=%q wantOk=%v gotErr=%v", c.in, c.want, err)
		}
	}
}

func TestValidateDate(t *testing.T) {
	if err := ValidateDate("2025-02-28"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, bad := range []string{"", "28/02/2025", "2025-02-30", "2025-2-1"} {
		if err := ValidateDate(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestOnlyDigits(t *testing.T) {
	if got := onlyDigits("(11) 99999-0000"); got != "11999990000" {
		t.Fatalf("got %q", got)
	}
}

func TestValidPhone(t *testing.T) {
	for _, ok := range []string{"(11) 99999-0000", "1133334444", "+55 11 99999-0000"} {
		if !validPhone(ok) {
			t.Fatalf("expected valid: %q", ok)
		}
	}
	for _, bad := range []string{"", "12345", "abc", "+55 (11) 99999-0000 ramal 123"} {
		if validPhone(bad) {
			t.Fatalf("expected invalid: %q", bad)
		}
	}
}
