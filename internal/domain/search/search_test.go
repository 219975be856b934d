package search

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/knowbase/internal/domain"
)

func TestNormalize_Defaults(t *testing.T) {
	opts, err := Options{}.Normalize(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", opts.Limit, DefaultLimit)
	}
}

func TestNormalize_CapsAtMax(t *testing.T) {
	opts, err := Options{Limit: 100}.Normalize(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Limit != 10 {
		t.Errorf("Limit = %d, want 10", opts.Limit)
	}
}

func TestNormalize_KeepsValidLimit(t *testing.T) {
	opts, err := Options{Limit: 3}.Normalize(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Limit != 3 {
		t.Errorf("Limit = %d, want 3", opts.Limit)
	}
}

func TestNormalize_RejectsNegativeLimit(t *testing.T) {
	_, err := Options{Limit: -1}.Normalize(10)
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestNormalize_RejectsThresholdOutOfRange(t *testing.T) {
	for _, threshold := range []float64{-0.1, 1.01, 2} {
		if _, err := (Options{Threshold: threshold}).Normalize(10); !errors.Is(err, domain.ErrInvalidFilter) {
			t.Errorf("threshold %v: expected ErrInvalidFilter, got %v", threshold, err)
		}
	}
}

func TestNormalize_AcceptsBoundaryThresholds(t *testing.T) {
	for _, threshold := range []float64{0, 0.5, 1} {
		if _, err := (Options{Threshold: threshold}).Normalize(10); err != nil {
			t.Errorf("threshold %v: unexpected error %v", threshold, err)
		}
	}
}
