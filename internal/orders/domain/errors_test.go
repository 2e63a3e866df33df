package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dejobratic/orderdesk/internal/orders/domain"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"nil", nil, ""},
		{"invalid argument", domain.ErrInvalidArgument, domain.KindInvalidArgument},
		{"wrapped not found", fmt.Errorf("cancel order 3: %w", domain.ErrNotFound), domain.KindNotFound},
		{"duplicate batch", domain.ErrDuplicateBatch, domain.KindDuplicateBatch},
		{"malformed input", domain.ErrMalformedInput, domain.KindMalformedInput},
		{"store unavailable", domain.ErrStoreUnavailable, domain.KindStoreUnavailable},
		{"inconsistency", domain.ErrInternalInconsistency, domain.KindInternalInconsistency},
		{"duplicate wins over store fault", fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, domain.ErrDuplicateBatch), domain.KindDuplicateBatch},
		{"plain error", errors.New("boom"), domain.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := domain.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("returns nil for nil", func(t *testing.T) {
		if domain.Classify(nil) != nil {
			t.Error("expected nil")
		}
	})

	t.Run("keeps classified errors", func(t *testing.T) {
		err := fmt.Errorf("import: %w", domain.ErrDuplicateBatch)
		if got := domain.Classify(err); got != err {
			t.Errorf("expected error to be returned unchanged, got %v", got)
		}
	})

	t.Run("marks unknown errors as store faults", func(t *testing.T) {
		cause := errors.New("connection refused")
		got := domain.Classify(cause)
		if !errors.Is(got, domain.ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable, got %v", got)
		}
		if !errors.Is(got, cause) {
			t.Error("expected original cause to be preserved")
		}
	})

	t.Run("marks timeouts as store faults", func(t *testing.T) {
		got := domain.Classify(fmt.Errorf("select order: %w", context.DeadlineExceeded))
		if domain.KindOf(got) != domain.KindStoreUnavailable {
			t.Errorf("expected store_unavailable, got %q", domain.KindOf(got))
		}
	})
}
