package providers

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedDeterministicAndNormalized(t *testing.T) {
	p := NewMockProvider(16)
	a, _, err := p.Embed(context.Background(), EmbedRequest{Operation: "embed_chunk", Inputs: []string{"some text"}})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, _, _ := p.Embed(context.Background(), EmbedRequest{Operation: "embed_chunk", Inputs: []string{"some text"}})
	var norm float64
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatal("mock embedding not deterministic")
		}
		norm += float64(a[0][i]) * float64(a[0][i])
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-3 {
		t.Fatalf("expected unit norm, got %f", math.Sqrt(norm))
	}
}

func TestMockEmbedDistinctInputsDiffer(t *testing.T) {
	p := NewMockProvider(16)
	vecs, _, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"alpha", "beta"}})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	same := true
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different inputs produced identical vectors")
	}
}
