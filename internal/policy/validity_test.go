package policy

import "testing"

func TestNewValidator(t *testing.T) {
	t.Parallel()

	t.Run("default pattern compiles", func(t *testing.T) {
		t.Parallel()
		if _, err := NewValidator(DefaultAllowedDomains); err != nil {
			t.Fatalf("NewValidator(DefaultAllowedDomains) error = %v", err)
		}
	})

	t.Run("invalid pattern returns error", func(t *testing.T) {
		t.Parallel()
		if _, err := NewValidator("(["); err == nil {
			t.Fatal("NewValidator with invalid pattern expected error, got nil")
		}
	})
}

func TestValidatorIsValid(t *testing.T) {
	t.Parallel()

	v, err := NewValidator(DefaultAllowedDomains)
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"allowed host html page", "https://www.ics.uci.edu/about/index.html", true},
		{"allowed host bare path", "http://vision.ics.uci.edu/papers", true},
		{"stat subdomain", "https://www.stat.uci.edu/faculty", true},
		{"host outside allowlist", "https://www.example.com/page.html", false},
		{"parent domain without subdomain", "https://uci.edu/", false},
		{"ftp scheme", "ftp://www.ics.uci.edu/pub/file.txt", false},
		{"mailto scheme", "mailto:staff@ics.uci.edu", false},
		{"pdf extension", "https://www.ics.uci.edu/papers/thesis.pdf", false},
		{"uppercase extension", "https://www.ics.uci.edu/slides/TALK.PPTX", false},
		{"archive extension", "https://www.cs.uci.edu/dist/release.tar.gz", false},
		{"image extension", "https://www.ics.uci.edu/img/logo.png", false},
		{"extension-like directory", "https://www.ics.uci.edu/research.html/details", true},
		{"calendar trap", "https://www.ics.uci.edu/events/month/2019-05", false},
		{"session tracking query", "https://www.ics.uci.edu/page?sessionid=abc123", false},
		{"unparseable url", "http://%zz", false},
		{"relative url", "/about/index.html", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := v.IsValid(tt.url); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestValidatorCustomPattern(t *testing.T) {
	t.Parallel()

	v, err := NewValidator(`^(.*\.)?example\.org$`)
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	if !v.IsValid("https://docs.example.org/guide") {
		t.Error("IsValid() = false for host matching custom pattern")
	}
	if v.IsValid("https://www.ics.uci.edu/about") {
		t.Error("IsValid() = true for host outside custom pattern")
	}
}
