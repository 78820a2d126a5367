package steps

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
)

type matchInput struct {
	Selection string
	Labels    []string
}

// FuzzMatchPart_Structured checks the matcher's invariants over generated
// selections and tables.
func FuzzMatchPart_Structured(f *testing.F) {
	f.Add([]byte("Pnuematic valve\x00Pneumatic Valve"))
	f.Add([]byte("Sieve bed Refurbished"))

	f.Fuzz(func(t *testing.T, data []byte) {
		var in matchInput
		if err := fuzz.NewConsumer(data).GenerateStruct(&in); err != nil {
			return
		}

		norm := NormalizePartName(in.Selection)
		if again := NormalizePartName(norm); again != norm {
			t.Fatalf("normalization is not idempotent: %q -> %q -> %q", in.Selection, norm, again)
		}

		idx := MatchPart(in.Selection, in.Labels)
		if idx < -1 || idx >= len(in.Labels) {
			t.Fatalf("index %d out of range for %d labels", idx, len(in.Labels))
		}
		want := PartTokens(in.Selection)
		if idx >= 0 && !containsAll(PartTokens(in.Labels[idx]), want) {
			t.Fatalf("label %q does not cover selection %q", in.Labels[idx], in.Selection)
		}
		last := idx
		if last < 0 {
			last = len(in.Labels)
		}
		for i := 0; i < last; i++ {
			if len(want) > 0 && containsAll(PartTokens(in.Labels[i]), want) {
				t.Fatalf("earlier label %d (%q) also matches %q", i, in.Labels[i], in.Selection)
			}
		}

		// A selection always finds itself.
		if len(want) > 0 && MatchPart(in.Selection, append(in.Labels, in.Selection)) < 0 {
			t.Fatalf("selection %q did not match its own label", in.Selection)
		}
	})
}
