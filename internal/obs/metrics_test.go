package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                             "/",
		"/metrics":                     "/metrics",
		"/v1/auth/login":               "/v1/auth/login",
		"/v1/jobs":                     "/v1/jobs",
		"/v1/jobs/01ABCDEF":            "/v1/jobs/:id",
		"/v1/jobs/01ABCDEF/publish":    "/v1/jobs/:id/publish",
		"/v1/employers/01ABCDEF":       "/v1/employers/:id",
		"/v1/media/01ABCDEF":           "/v1/media/:id",
		"/files/01ABCDEF.png":          "/files/:name",
		"/v1/jobs?status=published":    "/v1/jobs",
		"/v1/jobs/01ABCDEF?expand=yes": "/v1/jobs/:id",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
