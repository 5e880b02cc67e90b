package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newRoot(t *testing.T) (string, *PathResolver) {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "www")
	if err := os.MkdirAll(filepath.Join(root, "docs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "secret"), []byte("s"), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := NewPathResolver(root)
	if err != nil {
		t.Fatal(err)
	}
	return base, p
}

func TestResolveInsideRoot(t *testing.T) {
	_, p := newRoot(t)
	tests := []struct {
		uri  string
		want string
	}{
		{"/", p.Root()},
		{"/docs", filepath.Join(p.Root(), "docs")},
		{"/docs/./a.txt", filepath.Join(p.Root(), "docs", "a.txt")},
		{"/docs/../docs/a.txt", filepath.Join(p.Root(), "docs", "a.txt")},
		{"/missing/file.html", filepath.Join(p.Root(), "missing", "file.html")},
		{"/favicon.ico", filepath.Join(p.Root(), "favicon.ico")},
	}
	for _, tt := range tests {
		got, err := p.Resolve(tt.uri)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tt.uri, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestResolveTraversal(t *testing.T) {
	_, p := newRoot(t)
	for _, uri := range []string{
		"/../secret",
		"/../../etc/passwd",
		"/docs/../../secret",
		"/../../../../../../../../etc/passwd",
		"/..",
	} {
		got, err := p.Resolve(uri)
		if !errors.Is(err, ErrUnsafePath) {
			t.Errorf("Resolve(%q) = %q, %v; want ErrUnsafePath", uri, got, err)
		}
	}
}

func TestResolveSymlinkEscape(t *testing.T) {
	base, p := newRoot(t)
	if err := os.Symlink(base, filepath.Join(p.Root(), "escape")); err != nil {
		t.Skipf("symlink: %v", err)
	}
	for _, uri := range []string{"/escape/secret", "/escape/nothing-here", "/escape"} {
		got, err := p.Resolve(uri)
		if !errors.Is(err, ErrUnsafePath) {
			t.Errorf("Resolve(%q) = %q, %v; want ErrUnsafePath", uri, got, err)
		}
	}
}

func TestResolveSymlinkInsideRoot(t *testing.T) {
	_, p := newRoot(t)
	if err := os.Symlink(filepath.Join(p.Root(), "docs"), filepath.Join(p.Root(), "alias")); err != nil {
		t.Skipf("symlink: %v", err)
	}
	got, err := p.Resolve("/alias/a.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := filepath.Join(p.Root(), "docs", "a.txt"); got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveSiblingPrefix(t *testing.T) {
	base, p := newRoot(t)
	sibling := filepath.Join(base, "www-other")
	if err := os.Mkdir(sibling, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(sibling, filepath.Join(p.Root(), "sib")); err != nil {
		t.Skipf("symlink: %v", err)
	}
	got, err := p.Resolve("/sib")
	if !errors.Is(err, ErrUnsafePath) {
		t.Errorf("Resolve(/sib) = %q, %v; want ErrUnsafePath", got, err)
	}
	if strings.HasPrefix(got, sibling) {
		t.Errorf("sibling directory leaked: %q", got)
	}
}

const mimeTable = `text/html html htm
text/plain txt
# image/fake html
image/png png

application/x-tar tar
`

func newMime(t *testing.T) *MimeTypes {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mime.types")
	if err := os.WriteFile(path, []byte(mimeTable), 0644); err != nil {
		t.Fatal(err)
	}
	return NewMimeTypes(path, "application/octet-stream")
}

func TestMimeLookup(t *testing.T) {
	m := newMime(t)
	tests := []struct {
		path string
		want string
	}{
		{"/www/index.html", "text/html"},
		{"/www/index.htm", "text/html"},
		{"/www/notes.txt", "text/plain"},
		{"/www/logo.png", "image/png"},
		{"/www/a.b.tar", "application/x-tar"},
		{"/www/README", "application/octet-stream"},
		{"/www.d/README", "application/octet-stream"},
		{"/www/file.", "application/octet-stream"},
		{"/www/INDEX.HTML", "application/octet-stream"},
		{"/www/x.unknown", "application/octet-stream"},
	}
	for _, tt := range tests {
		// 重复调用结果一致
		for i := 0; i < 2; i++ {
			if got := m.Lookup(tt.path); got != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.path, got, tt.want)
			}
		}
	}
}

func TestMimeTableMissingFallsBack(t *testing.T) {
	m := NewMimeTypes(filepath.Join(t.TempDir(), "nope"), "text/plain")
	if got := m.Lookup("/www/index.html"); got != "text/plain" {
		t.Errorf("Lookup with unopenable table = %q, want default", got)
	}
}
