package bridge

import "testing"

func TestResolveURI(t *testing.T) {
	tests := []struct {
		name     string
		root     string
		file     string
		resource string
		want     string
		wantErr  bool
	}{
		{name: "nothing requested", root: "/data", want: ""},
		{name: "relative file", root: "/data", file: "notes.txt", want: "file:///data/notes.txt"},
		{name: "nested relative file", root: "/data", file: "docs/guide.md", want: "file:///data/docs/guide.md"},
		{name: "absolute file", root: "/data", file: "/etc/hosts", want: "file:///etc/hosts"},
		{name: "cleaned path", root: "/data", file: "docs/../notes.txt", want: "file:///data/notes.txt"},
		{name: "escaped space", root: "/data", file: "my notes.txt", want: "file:///data/my%20notes.txt"},
		{name: "relative without root", file: "notes.txt", wantErr: true},
		{name: "resource verbatim", root: "/data", resource: "db://tables/users", want: "db://tables/users"},
		{name: "resource wins over file", root: "/data", file: "a.txt", resource: "file:///x/y", want: "file:///x/y"},
		{name: "resource without scheme", resource: "just-a-name", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveURI(tt.root, tt.file, tt.resource)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
