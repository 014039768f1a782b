package domain

import (
	"errors"
	"testing"
)

func TestGenerateRequestShotTypeCycles(t *testing.T) {
	cases := map[int]string{0: "closeup", 1: "bustShot", 2: "fullShot", 3: "kneeShot", 5: "bustShot", 8: "closeup"}
	for index, want := range cases {
		req := GenerateRequest{Mode: ModeShotType, TriggerWord: "fh_ryder", Index: index}
		if got := req.ShotType(); got != want {
			t.Fatalf("ShotType(%d) = %q, want %q", index, got, want)
		}
	}
}

func TestGenerateRequestNormalizeDefaultsMode(t *testing.T) {
	req := GenerateRequest{TriggerWord: "  fh_ryder ", Expression: " SMILE ", Angle: "Front"}
	req.Normalize()
	if req.Mode != ModeShotType {
		t.Fatalf("mode = %q, want shot_type", req.Mode)
	}
	if req.TriggerWord != "fh_ryder" {
		t.Fatalf("trigger = %q", req.TriggerWord)
	}
	if req.Expression != "smile" || req.Angle != "front" {
		t.Fatalf("identifiers not normalized: %q %q", req.Expression, req.Angle)
	}
}

func TestGenerateRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  GenerateRequest
		ok   bool
	}{
		{"shot type", GenerateRequest{Mode: ModeShotType, TriggerWord: "fh_ryder", Index: 5}, true},
		{"expression", GenerateRequest{Mode: ModeExpression, TriggerWord: "fh_ryder", Expression: "smile", Angle: "front"}, true},
		{"missing trigger", GenerateRequest{Mode: ModeShotType}, false},
		{"pattern in trigger", GenerateRequest{Mode: ModeShotType, TriggerWord: "fh_*"}, false},
		{"negative index", GenerateRequest{Mode: ModeShotType, TriggerWord: "fh_ryder", Index: -1}, false},
		{"expression without angle", GenerateRequest{Mode: ModeExpression, TriggerWord: "fh_ryder", Expression: "smile"}, false},
		{"unknown mode", GenerateRequest{Mode: "portrait", TriggerWord: "fh_ryder"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestGenerateRequestQualifier(t *testing.T) {
	req := GenerateRequest{Mode: ModeExpression, Expression: "angry", Angle: "left_three_quarter"}
	if got := req.Qualifier(); got != "angry_left_three_quarter" {
		t.Fatalf("qualifier = %q", got)
	}
	if got := req.ShotType(); got != ExpressionShotType {
		t.Fatalf("shot type = %q", got)
	}
}
