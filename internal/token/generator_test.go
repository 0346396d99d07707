package token

import "testing"

func TestRandomGenerator_Length(t *testing.T) {
	g := NewRandomGenerator()

	for i := 0; i < 1000; i++ {
		tok := g.Generate()
		if !IsValid(tok) {
			t.Fatalf("Generate() = %q; want %d base62 characters", tok, Length)
		}
	}
}

func TestRandomGenerator_Spread(t *testing.T) {
	g := NewRandomGenerator()
	seen := make(map[string]struct{})

	for i := 0; i < 1000; i++ {
		seen[g.Generate()] = struct{}{}
	}

	// 62^6 possible values; a handful of repeats in 1000 draws would mean a broken source
	if len(seen) < 990 {
		t.Errorf("expected mostly distinct tokens, got %d unique of 1000", len(seen))
	}
}

func TestGeneratorFunc(t *testing.T) {
	g := GeneratorFunc(func() string { return "fixed1" })
	if got := g.Generate(); got != "fixed1" {
		t.Errorf("Generate() = %q; want fixed1", got)
	}
}
