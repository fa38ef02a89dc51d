package thumbnail

import (
	"errors"
	"testing"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		template string
		uri      string
		want     string
		wantErr  bool
	}{
		{
			name:     "uri and output",
			template: "thumb %u %o",
			uri:      "file:///x",
			want:     "thumb 'file:///x' '/tmp/y'",
		},
		{
			name:     "local path and size",
			template: "conv -s %s %i %o",
			uri:      "file:///home/a.svg",
			want:     "conv -s 128 '/home/a.svg' '/tmp/y'",
		},
		{
			name:     "literal percent",
			template: "x %u 100%%",
			uri:      "file:///x",
			want:     "x 'file:///x' 100%",
		},
		{
			name:     "unknown escape dropped",
			template: "x %q%u",
			uri:      "file:///x",
			want:     "x 'file:///x'",
		},
		{
			name:     "unknown multi-byte escape dropped whole",
			template: "x %é%u %→end",
			uri:      "file:///x",
			want:     "x 'file:///x' end",
		},
		{
			name:     "trailing percent dropped",
			template: "x %u %",
			uri:      "file:///x",
			want:     "x 'file:///x' ",
		},
		{
			name:     "single quote escaped",
			template: "%u",
			uri:      "file:///it's",
			want:     `'file:///it'\''s'`,
		},
		{
			name:     "no input reference",
			template: "%o %s",
			uri:      "file:///x",
			wantErr:  true,
		},
		{
			name:     "local path for remote uri does not count",
			template: "x %i %o",
			uri:      "http://example.com/a.png",
			wantErr:  true,
		},
		{
			name:     "remote uri with %u",
			template: "x %i%u",
			uri:      "http://example.com/a.png",
			want:     "x 'http://example.com/a.png'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.template, tt.uri, "/tmp/y", 128)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedCommand) {
					t.Errorf("Expand() error = %v, want ErrMalformedCommand", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}
