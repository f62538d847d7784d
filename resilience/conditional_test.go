package resilience

import (
	"context"
	"errors"
	"testing"
)

type uploadParams struct {
	Object            string
	IfGenerationMatch *int64
}

func generationSpecified(p *int64) bool { return p != nil }

func newUploadRetrier(t *testing.T) *ConditionalRetrier[uploadParams] {
	t.Helper()
	c, err := NewConditionalRetrier(
		Require(func(p uploadParams) *int64 { return p.IfGenerationMatch }, generationSpecified),
		RetrierConfig{Clock: newFakeClock(), MaxTries: 4},
	)
	if err != nil {
		t.Fatalf("NewConditionalRetrier() error = %v", err)
	}
	return c
}

func TestConditionalRetrier_PolicyIfConditionsMet(t *testing.T) {
	c := newUploadRetrier(t)
	gen := int64(7)

	if got := c.PolicyIfConditionsMet(uploadParams{Object: "a"}); got != nil {
		t.Error("PolicyIfConditionsMet() without generation = non-nil, want nil")
	}
	if got := c.PolicyIfConditionsMet(uploadParams{Object: "a", IfGenerationMatch: &gen}); got != c.SimpleRetrier {
		t.Error("PolicyIfConditionsMet() with generation should return the retrier")
	}
}

func TestConditionalRetrier_NilConditionAlwaysApplies(t *testing.T) {
	c, err := NewConditionalRetrier[string](nil, RetrierConfig{})
	if err != nil {
		t.Fatalf("NewConditionalRetrier() error = %v", err)
	}
	if c.PolicyIfConditionsMet("anything") == nil {
		t.Error("PolicyIfConditionsMet() = nil, want retrier")
	}
}

func TestNewConditionalRetrier_InvalidConfig(t *testing.T) {
	_, err := NewConditionalRetrier[string](nil, RetrierConfig{Kind: "sometimes"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("NewConditionalRetrier() error = %v, want ErrUnknownKind", err)
	}
}

func TestInvoke(t *testing.T) {
	gen := int64(7)
	transient := errors.New("503 service unavailable")

	tests := []struct {
		name         string
		params       uploadParams
		wantAttempts int
		wantErr      error
	}{
		{"condition not met calls once", uploadParams{Object: "a"}, 1, transient},
		{"condition met retries", uploadParams{Object: "a", IfGenerationMatch: &gen}, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newUploadRetrier(t)

			attempts := 0
			got, err := Invoke(context.Background(), c, "upload", tt.params,
				func(ctx context.Context, p uploadParams) (string, error) {
					attempts++
					if attempts < 3 {
						return "", transient
					}
					return p.Object, nil
				})

			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if err != tt.wantErr {
				t.Errorf("Invoke() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != "a" {
				t.Errorf("Invoke() = %q, want a", got)
			}
		})
	}
}
