package scraper

import "testing"

func TestCleanSnippet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Heavy  snow\n on the A7", "Heavy snow on the A7"},
		{"tags", "<p>Strike at <b>Antwerp</b> port</p>", "Strike at Antwerp port"},
		{"entities", "Rain &amp; wind", "Rain & wind"},
		{"script dropped", "<div>ok<script>alert(1)</script></div>", "ok"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanSnippet(tt.in); got != tt.want {
				t.Errorf("CleanSnippet(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is longer", 7, "this is..."},
		{"汉堡港口罢工影响", 4, "汉堡港口..."},
		{"  padded  ", 10, "padded"},
		{"x", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
