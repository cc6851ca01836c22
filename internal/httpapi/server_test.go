package httpapi

import "testing"

func TestParsePage(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 1},
		{"0", 1},
		{"-1", 1},
		{"abc", 1},
		{"3", 3},
	}
	for _, c := range cases {
		if got := parsePage(c.in); got != c.want {
			t.Errorf("parsePage(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseLimit(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 20},
		{"0", 20},
		{"-5", 20},
		{"abc", 20},
		{"50", 50},
		{"500", 100}, // clamped to max
	}
	for _, c := range cases {
		if got := parseLimit(c.in, 20, 100); got != c.want {
			t.Errorf("parseLimit(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
