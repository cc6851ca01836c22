package httpapi

import "testing"

func TestValidDimension(t *testing.T) {
	cases := []struct {
		v    int
		want bool
	}{
		{256, true},
		{2048, true},
		{1024, true},
		{255, false},
		{2049, false},
		{1023, false}, // not a multiple of 8
		{0, false},
		{-8, false},
	}
	for _, c := range cases {
		if got := validDimension(c.v); got != c.want {
			t.Errorf("validDimension(%d) = %v, want %v", c.v, got, c.want)
		}
	}
}
