package mediaurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		mediaBase string
		apiBase   string
		in        string
		want      string
	}{
		{name: "empty", apiBase: "http://h/api/", in: "", want: ""},
		{name: "absolute passthrough", mediaBase: "http://cdn", in: "HTTPS://x.y/p.png", want: "HTTPS://x.y/p.png"},
		{name: "media base", mediaBase: "http://cdn.example.com/", in: "/media/p.png", want: "http://cdn.example.com/media/p.png"},
		{name: "leading slash added", mediaBase: "http://cdn.example.com", in: "media/p.png", want: "http://cdn.example.com/media/p.png"},
		{name: "api origin fallback", apiBase: "http://localhost:8000/api/", in: "/media/p.png", want: "http://localhost:8000/media/p.png"},
		{name: "no base", in: "/media/p.png", want: "/media/p.png"},
		{name: "trailing slashes trimmed", mediaBase: "http://cdn//", in: "/a.png", want: "http://cdn/a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.mediaBase, tt.apiBase).Resolve(tt.in))
		})
	}
}
