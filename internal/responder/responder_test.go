package responder

import (
	"math/rand"
	"testing"

	"github.com/ziadkadry99/convobot/internal/corpus"
)

func TestSelectDeterministicWithSeed(t *testing.T) {
	in := corpus.Intent{
		Name: "greeting",
		Responses: corpus.ResponseSet{
			Pool: []string{"Hi!", "Hello!", "Hey there!"},
		},
	}

	a := New(rand.NewSource(42))
	b := New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		if got, want := a.Select(in, ""), b.Select(in, ""); got != want {
			t.Fatalf("draw %d diverged: %q vs %q", i, got, want)
		}
	}
}

func TestSelectStaysInPool(t *testing.T) {
	pool := []string{"one", "two", "three"}
	in := corpus.Intent{Name: "x", Responses: corpus.ResponseSet{Pool: pool}}
	s := New(rand.NewSource(1))

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		got := s.Select(in, "")
		seen[got] = true
		found := false
		for _, p := range pool {
			if got == p {
				found = true
			}
		}
		if !found {
			t.Fatalf("Select returned %q, not in pool", got)
		}
	}
	if len(seen) < 2 {
		t.Error("100 draws never varied; selection looks stuck")
	}
}

func TestSelectKeyedPool(t *testing.T) {
	in := corpus.Intent{
		Name: "product_selection",
		Responses: corpus.ResponseSet{
			ByKey: map[string][]string{
				"analytics":     {"Analytics crunches your data."},
				"cloud":         {"Cloud scales with you."},
				"cybersecurity": {"Security first."},
			},
		},
	}
	s := New(rand.NewSource(7))

	if got := s.Select(in, "cloud"); got != "Cloud scales with you." {
		t.Errorf("keyed select = %q", got)
	}
	if got := s.Select(in, "analytics"); got != "Analytics crunches your data." {
		t.Errorf("keyed select = %q", got)
	}
}

func TestSelectUnknownKeyFallsBackToPool(t *testing.T) {
	in := corpus.Intent{
		Name: "product_selection",
		Responses: corpus.ResponseSet{
			Pool:  []string{"We offer several products."},
			ByKey: map[string][]string{"cloud": {"Cloud scales with you."}},
		},
	}
	s := New(rand.NewSource(7))

	if got := s.Select(in, "mainframe"); got != "We offer several products." {
		t.Errorf("unknown key select = %q", got)
	}
	if got := s.Select(in, ""); got != "We offer several products." {
		t.Errorf("no-key select = %q", got)
	}
}

func TestSelectFlattensKeyedOnlySet(t *testing.T) {
	in := corpus.Intent{
		Name: "product_selection",
		Responses: corpus.ResponseSet{
			ByKey: map[string][]string{
				"a": {"alpha"},
				"b": {"beta"},
			},
		},
	}
	s := New(rand.NewSource(3))

	for i := 0; i < 20; i++ {
		got := s.Select(in, "")
		if got != "alpha" && got != "beta" {
			t.Fatalf("flattened select = %q", got)
		}
	}
}

func TestSelectEmptySet(t *testing.T) {
	s := New(rand.NewSource(1))
	if got := s.Select(corpus.Intent{Name: "empty"}, ""); got != "" {
		t.Errorf("empty set select = %q, want empty", got)
	}
}
