package share

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsUniqueVisit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := []AccessLogEntry{
		{IP: "10.0.0.1", AccessedAt: now.Add(-2 * time.Hour)},
		{IP: "10.0.0.2", AccessedAt: now.Add(-30 * time.Hour)},
	}

	tests := []struct {
		name string
		ip   string
		want bool
	}{
		{"same ip within window", "10.0.0.1", false},
		{"same ip outside window", "10.0.0.2", true},
		{"new ip", "10.0.0.3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueVisit(log, tt.ip, now, UniqueViewWindow))
		})
	}
}

func TestAppendCapped_DropsOldest(t *testing.T) {
	var log []AccessLogEntry
	for i := 0; i < 105; i++ {
		log = AppendCapped(log, AccessLogEntry{IP: fmt.Sprintf("ip-%d", i)}, MaxAccessLogEntries)
	}

	assert.Len(t, log, MaxAccessLogEntries)
	assert.Equal(t, "ip-5", log[0].IP)
	assert.Equal(t, "ip-104", log[len(log)-1].IP)
}

func TestAppendCapped_DoesNotAliasInput(t *testing.T) {
	base := make([]AccessLogEntry, 1, 4)
	base[0] = AccessLogEntry{IP: "a"}

	first := AppendCapped(base, AccessLogEntry{IP: "b"}, 10)
	second := AppendCapped(base, AccessLogEntry{IP: "c"}, 10)

	assert.Equal(t, "b", first[1].IP)
	assert.Equal(t, "c", second[1].IP)
}

func TestShareLink_Predicates(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	max := 2

	link := &ShareLink{ExpiresAt: &past, MaxViews: &max, Stats: Stats{TotalViews: 2}}
	assert.True(t, link.IsExpired(now))
	assert.True(t, link.IsQuotaExhausted())
	assert.False(t, link.HasPassword())

	link.PasswordHash = "$2a$04$x"
	assert.True(t, link.HasPassword())
}
