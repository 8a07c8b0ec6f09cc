package pattern

import (
	"testing"
)

func TestWide_Classify(t *testing.T) {
	tests := []struct {
		input string
		want  Category
	}{
		{"https://github.com/octocat/Hello-World/releases/download/v1.0/app.tar.gz", ReleaseArchive},
		{"github.com/octocat/Hello-World/archive/refs/heads/main.zip", ReleaseArchive},
		{"http://github.com/octocat/Hello-World/releases/tag/v1", ReleaseArchive},
		{"https://github.com/octocat/Hello-World/blob/main/README.md", FileBlobRaw},
		{"https://github.com/octocat/Hello-World/raw/main/README.md", FileBlobRaw},
		{"https://github.com/octocat/Hello-World/info/refs?service=git-upload-pack", InfoGit},
		{"https://github.com/octocat/Hello-World/git-upload-pack", InfoGit},
		{"https://raw.githubusercontent.com/octocat/Hello-World/main/README", RawHost},
		{"raw.github.com/octocat/Hello-World/main/README", RawHost},
		{"https://gist.githubusercontent.com/octocat/6cad326836d38bd3a7ae/raw/hello.txt", GistHost},
		{"https://gist.github.com/octocat/6cad326836d38bd3a7ae/raw", GistHost},
		{"https://github.com/octocat/Hello-World/tags", TagsPage},
		{"https://github.com/octocat/Hello-World/tags?after=v1", TagsPage},
		{"https://api.github.com/repos/octocat/Hello-World", APIHost},
		{"https://github.com/login/oauth/access_token", OAuthHost},
		{"https://example.com/octocat/Hello-World/releases/x", None},
		{"https://github.com/octocat", None},
		{"https://github.com/octocat/Hello-World", None},
		{"https://objects.githubusercontent.com/github-production-release-asset/1", None},
		{"", None},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Wide.Category(tt.input); got != tt.want {
				t.Errorf("Wide.Category(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNarrow_ExcludesFileShape(t *testing.T) {
	for _, input := range []string{
		"github.com/octocat/Hello-World/blob/main/README.md",
		"https://github.com/octocat/Hello-World/raw/main/README.md",
	} {
		if got := Narrow.Category(input); got != None {
			t.Errorf("Narrow.Category(%q) = %v, want none", input, got)
		}
		if got := Wide.Category(input); got != FileBlobRaw {
			t.Errorf("Wide.Category(%q) = %v, want %v", input, got, FileBlobRaw)
		}
	}
}

func TestNarrow_Order(t *testing.T) {
	want := []Category{ReleaseArchive, GistHost, TagsPage, InfoGit, RawHost, APIHost, OAuthHost}
	if len(Narrow) != len(want) {
		t.Fatalf("len(Narrow) = %d, want %d", len(Narrow), len(want))
	}
	for i, c := range want {
		if Narrow[i].Category != c {
			t.Errorf("Narrow[%d] = %v, want %v", i, Narrow[i].Category, c)
		}
	}
	if len(Wide) != 8 {
		t.Errorf("len(Wide) = %d, want 8", len(Wide))
	}
}

func TestClassify_AnchoredAtStart(t *testing.T) {
	inputs := []string{
		"/github.com/octocat/Hello-World/releases/x",
		"proxy/https://github.com/octocat/Hello-World/releases/x",
		" https://api.github.com/users",
	}
	for _, input := range inputs {
		if got := Wide.Category(input); got != None {
			t.Errorf("Wide.Category(%q) = %v, want none", input, got)
		}
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	if got := Wide.Category("HTTPS://GitHub.COM/Octocat/Hello-World/Releases/tag/v1"); got != ReleaseArchive {
		t.Errorf("Category = %v, want %v", got, ReleaseArchive)
	}
}

func TestClassify_CapturesOwnerRepo(t *testing.T) {
	m := Wide.Classify("https://raw.githubusercontent.com/octocat/Hello-World/main/docs/a.md")
	if !m.Matched() {
		t.Fatal("expected a match")
	}
	if m.Owner != "octocat" || m.Repo != "Hello-World" {
		t.Errorf("owner/repo = %q/%q, want octocat/Hello-World", m.Owner, m.Repo)
	}

	m = Wide.Classify("https://api.github.com/repos/octocat/Hello-World")
	if m.Owner != "" || m.Repo != "" {
		t.Errorf("api match captured owner/repo %q/%q, want empty", m.Owner, m.Repo)
	}
}

func TestClassify_SegmentsDoNotSpanSlashes(t *testing.T) {
	// A blob path containing a "releases" directory is still a file.
	input := "github.com/octocat/Hello-World/blob/main/releases/notes.md"
	if got := Wide.Category(input); got != FileBlobRaw {
		t.Errorf("Wide.Category(%q) = %v, want %v", input, got, FileBlobRaw)
	}
	if got := Narrow.Category(input); got != None {
		t.Errorf("Narrow.Category(%q) = %v, want none", input, got)
	}
}

func TestLookup(t *testing.T) {
	p := Lookup(FileBlobRaw)
	if _, ok := p.Find("github.com/a/b/blob/main/c"); !ok {
		t.Error("Lookup(FileBlobRaw) did not match a blob path")
	}
	if _, ok := Lookup(None).Find("github.com/a/b/blob/main/c"); ok {
		t.Error("Lookup(None) should never match")
	}
}

func TestCategory_String(t *testing.T) {
	tests := []struct {
		c    Category
		want string
	}{
		{None, "none"},
		{ReleaseArchive, "release_archive"},
		{FileBlobRaw, "file_blob_raw"},
		{InfoGit, "info_git"},
		{RawHost, "raw_host"},
		{GistHost, "gist_host"},
		{TagsPage, "tags_page"},
		{APIHost, "api_host"},
		{OAuthHost, "oauth_host"},
		{Category(99), "none"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", int(tt.c), got, tt.want)
		}
	}
}
