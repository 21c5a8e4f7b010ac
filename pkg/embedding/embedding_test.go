package embedding

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashed_Deterministic(t *testing.T) {
	h := NewHashed()
	a, err := h.Embed(context.Background(), "refund my order")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	b, err := h.Embed(context.Background(), "refund my order")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if cosine(a, b) < 0.999 {
		t.Errorf("identical text produced different vectors, cosine = %v", cosine(a, b))
	}
}

func TestHashed_SimilarTextMoreSimilarThanUnrelated(t *testing.T) {
	h := NewHashed()
	ctx := context.Background()
	refund1, _ := h.Embed(ctx, "refund my recent order")
	refund2, _ := h.Embed(ctx, "refund my order please")
	weather, _ := h.Embed(ctx, "what is the weather today")

	simRefund := cosine(refund1, refund2)
	simUnrelated := cosine(refund1, weather)

	if simRefund <= simUnrelated {
		t.Errorf("expected related queries to be more similar: refund=%v unrelated=%v", simRefund, simUnrelated)
	}
}

func TestHashed_Dimension(t *testing.T) {
	h := NewHashed()
	if h.Dimension() != hashedDimension {
		t.Errorf("Dimension() = %d, want %d", h.Dimension(), hashedDimension)
	}
}
