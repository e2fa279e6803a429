package cache

import (
	"testing"
	"time"
)

func TestCacheEntry_Expiry(t *testing.T) {
	tests := []struct {
		name        string
		expires     time.Time
		wantExpired bool
		wantTTL     bool
	}{
		{name: "page cached last week", expires: time.Now().Add(-DefaultTTL), wantExpired: true},
		{name: "page expired a second ago", expires: time.Now().Add(-time.Second), wantExpired: true},
		{name: "page cached today", expires: time.Now().Add(DefaultTTL - time.Hour), wantTTL: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{Data: []byte(`{"code":200}`), Expires: tt.expires}

			if got := entry.IsExpired(); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
			if ttl := entry.TTL(); (ttl > 0) != tt.wantTTL {
				t.Errorf("TTL() = %v, want positive: %v", ttl, tt.wantTTL)
			}
		})
	}
}
