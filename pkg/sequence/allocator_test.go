package sequence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/procurio/procurio/pkg/domain"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock detected", &pq.Error{Code: "40P01"}, true},
		{"wrapped serialization failure", fmt.Errorf("allocate: %w", &pq.Error{Code: "40001"}), true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"plain error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackoffDoubles(t *testing.T) {
	base := 25 * time.Millisecond
	wants := []time.Duration{
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
	}
	for i, want := range wants {
		if got := Backoff(base, i+1); got != want {
			t.Errorf("Backoff(attempt %d) = %v, want %v", i+1, got, want)
		}
	}
}

func TestNextNumberRejectsUnknownDocType(t *testing.T) {
	a := NewAllocator(nil, nil, Config{}, nil)

	_, err := a.NextNumber(context.Background(), uuid.New(), domain.DocType("memo"))
	if !errors.Is(err, domain.ErrUnknownDocType) {
		t.Errorf("NextNumber() = %v, want ErrUnknownDocType", err)
	}
}

func TestNewAllocatorDefaults(t *testing.T) {
	a := NewAllocator(nil, nil, Config{}, nil)
	if a.config.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", a.config.MaxAttempts, DefaultMaxAttempts)
	}
	if a.config.BaseBackoff != DefaultBaseBackoff {
		t.Errorf("BaseBackoff = %v, want %v", a.config.BaseBackoff, DefaultBaseBackoff)
	}

	a = NewAllocator(nil, nil, Config{MaxAttempts: 3, BaseBackoff: time.Second}, nil)
	if a.config.MaxAttempts != 3 || a.config.BaseBackoff != time.Second {
		t.Errorf("config = %+v, want explicit values kept", a.config)
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("sleep() on canceled context = %v, want context.Canceled", err)
	}
}
