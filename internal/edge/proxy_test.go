package edge

import "testing"

func TestServiceOf(t *testing.T) {
	cases := []struct {
		path    string
		svc     string
		matched bool
	}{
		{"/v1/auth/login", "auth", true},
		{"/v1/images/generate", "images", true},
		{"/v1/tasks/123", "tasks", true},
		{"/v1/gallery/", "gallery", true},
		{"/v1/stats/gpu", "stats", true},
		{"/v1/unknown", "", false},
		{"/v1/", "", false},
	}
	for _, c := range cases {
		svc, ok := serviceOf(c.path)
		if ok != c.matched || svc != c.svc {
			t.Errorf("serviceOf(%q) = (%q, %v), want (%q, %v)", c.path, svc, ok, c.svc, c.matched)
		}
	}
}
