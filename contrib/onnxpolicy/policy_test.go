//go:build onnx

package onnxpolicy

import (
	"os"
	"testing"

	"bombkernel/internal/engine"
)

func TestArgmaxPicksHighestLogit(t *testing.T) {
	cases := []struct {
		policy []float32
		want   int
	}{
		{[]float32{0, 0, 0, 0, 0, 1}, 5},
		{[]float32{0.9, 0.1, 0, 0, 0, 0}, 0},
		{[]float32{-1, -2, -3, 5, -4, -5}, 3},
	}
	for _, c := range cases {
		if got := argmax(c.policy); got != c.want {
			t.Errorf("argmax(%v) = %d, want %d", c.policy, got, c.want)
		}
	}
}

func TestActionOrderCoversEveryKind(t *testing.T) {
	seen := map[engine.ActionKind]bool{}
	for _, a := range actionOrder {
		seen[a.Kind] = true
	}
	if !seen[engine.ActionWait] || !seen[engine.ActionMove] || !seen[engine.ActionPlaceBomb] {
		t.Fatalf("expected actionOrder to cover wait, move, and place_bomb, got %+v", actionOrder)
	}
}

// TestPolicyActAgainstRealModel exercises a real exported model end to end,
// the same way the teacher's BenchmarkOnnxSessionRun only runs when a model
// is actually present on disk.
func TestPolicyActAgainstRealModel(t *testing.T) {
	modelPath := os.Getenv("BOMBKERNEL_TEST_ONNX_MODEL")
	if modelPath == "" {
		t.Skip("BOMBKERNEL_TEST_ONNX_MODEL not set; skipping real-model test")
	}
	if _, err := os.Stat(modelPath); err != nil {
		t.Skipf("model not found at %s: %v", modelPath, err)
	}

	p, err := New(modelPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	obs := make([]float32, InputSize)
	action := p.Act(obs)
	if action.Kind == "" {
		t.Fatalf("expected a non-empty action kind")
	}
}
