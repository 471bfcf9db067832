package access

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"none", nil, ""},
		{"cloudflare", map[string]string{"CF-IPCountry": "de"}, "DE"},
		{"unknown country", map[string]string{"CF-IPCountry": "XX"}, ""},
		{"fallback header", map[string]string{"X-Geo-Country": "FR"}, "FR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, LocationFromHeader(h))
		})
	}
}

func TestRecorder_TruncatesUserAgent(t *testing.T) {
	r := NewRecorder(nil, nil)
	entry := r.entry(Visitor{IP: "1.1.1.1", UserAgent: strings.Repeat("a", 2000)})

	assert.Len(t, entry.UserAgent, maxUserAgentLength)
	assert.False(t, entry.AccessedAt.IsZero())
}
