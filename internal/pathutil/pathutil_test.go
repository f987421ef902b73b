package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "tilde only", path: "~", want: home},
		{name: "tilde slash", path: "~/styles", want: filepath.Join(home, "styles")},
		{name: "absolute", path: "/srv/site", want: "/srv/site"},
		{name: "relative", path: "styles", want: "styles"},
		{name: "other user", path: "~bob/styles", want: "~bob/styles"},
		{name: "empty", path: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandHome(tt.path); got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestAbsolute(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	got, err := Absolute("a/../b/")
	if err != nil {
		t.Fatalf("Absolute() error = %v", err)
	}
	if want := filepath.Join(wd, "b"); got != want {
		t.Errorf("Absolute() = %q, want %q", got, want)
	}
}

func TestWithin(t *testing.T) {
	root := filepath.FromSlash("/srv/site")

	tests := []struct {
		path string
		want bool
	}{
		{path: "/srv/site", want: true},
		{path: "/srv/site/css/a.less", want: true},
		{path: "/srv/site2/a.less", want: false},
		{path: "/srv", want: false},
		{path: "/srv/site/../other", want: false},
		{path: "/srv/site/..hidden/a.less", want: true},
	}

	for _, tt := range tests {
		if got := Within(root, filepath.FromSlash(tt.path)); got != tt.want {
			t.Errorf("Within(%q, %q) = %v, want %v", root, tt.path, got, tt.want)
		}
	}
}
