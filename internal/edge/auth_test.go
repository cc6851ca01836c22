package edge

import "testing"

func TestIsPublic(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/health", true},
		{"/metrics", true},
		{"/docs", true},
		{"/docs/swagger.json", true},
		{"/v1/auth/login", true},
		{"/v1/auth/register", true},
		{"/v1/auth/refresh", true},
		{"/v1/auth/me", false},
		{"/v1/images/generate", false},
		{"/v1/gallery/", false},
	}
	for _, c := range cases {
		if got := isPublic(c.path); got != c.want {
			t.Errorf("isPublic(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}
