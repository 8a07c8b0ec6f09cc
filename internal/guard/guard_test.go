package guard

import (
	"testing"
)

func TestGuard_EmptyDeniesAll(t *testing.T) {
	g := New(nil)
	for _, u := range []string{
		"https://github.com/octocat/Hello-World/releases/x",
		"https://api.github.com/",
		"",
	} {
		if g.Allowed(u) {
			t.Errorf("Allowed(%q) = true with empty allow-list", u)
		}
	}
}

func TestGuard_BlankEntriesIgnored(t *testing.T) {
	g := New([]string{"", "  "})
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
	if g.Allowed("https://github.com/") {
		t.Error("blank entries must not allow anything")
	}
}

func TestGuard_Substring(t *testing.T) {
	g := New([]string{"octocat/Hello-World", " /torvalds/ "})

	tests := []struct {
		url  string
		want bool
	}{
		{"https://github.com/octocat/Hello-World/releases/download/v1/a.zip", true},
		{"https://api.github.com/repos/octocat/Hello-World", true},
		{"https://github.com/torvalds/linux/archive/v6.0.tar.gz", true},
		{"https://github.com/octocat/Spoon-Knife/archive/main.zip", false},
		{"https://github.com/OCTOCAT/HELLO-WORLD/tags", false},
	}
	for _, tt := range tests {
		if got := g.Allowed(tt.url); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}
}
