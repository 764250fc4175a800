package cache

import (
	"testing"
	"time"
)

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{
			name:    "expired entry",
			expires: time.Now().Add(-1 * time.Hour),
			want:    true,
		},
		{
			name:    "valid entry",
			expires: time.Now().Add(1 * time.Hour),
			want:    false,
		},
		{
			name:    "just expired",
			expires: time.Now().Add(-1 * time.Second),
			want:    true,
		},
		{
			name:    "zero expires",
			expires: time.Time{},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{
				Expires: tt.expires,
			}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		wantMin time.Duration
		wantMax time.Duration
	}{
		{
			name:    "one day remaining",
			expires: time.Now().Add(24 * time.Hour),
			wantMin: 23*time.Hour + 59*time.Minute,
			wantMax: 24*time.Hour + 1*time.Second,
		},
		{
			name:    "already expired",
			expires: time.Now().Add(-1 * time.Hour),
			wantMin: 0,
			wantMax: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{
				Expires: tt.expires,
			}
			got := entry.TTL()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("TTL() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestEntry_HasValidator(t *testing.T) {
	if (&Entry{}).HasValidator() {
		t.Error("entry without ETag or Last-Modified should have no validator")
	}
	if !(&Entry{ETag: `W/"abc"`}).HasValidator() {
		t.Error("entry with ETag should have a validator")
	}
	if !(&Entry{LastModified: time.Now()}).HasValidator() {
		t.Error("entry with Last-Modified should have a validator")
	}
}
