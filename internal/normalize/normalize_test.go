package normalize

import "testing"

func TestTitle_Basic(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello, World! 123", "helloworld123"},
		{"Foo &amp; Bar", "foobar"},
		{"résumé", "resume"},
	}
	for _, c := range cases {
		if got := Title(c.in); got != c.want {
			t.Errorf("Title(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTitle_GreekTransliteration(t *testing.T) {
	got := Title("εpsolute: Efficiently querying databases")
	want := "epsilonpsoluteefficientlyqueryingdatabases"
	if got != want {
		t.Errorf("Title() = %q, want %q", got, want)
	}
}

func TestTitle_MathSymbols(t *testing.T) {
	got := Title("O(√n) complexity with ∞ bound")
	if got != "osqrtncomplexitywithinfinitybound" {
		t.Errorf("unexpected normalisation: %q", got)
	}
}

func TestTitle_Idempotent(t *testing.T) {
	inputs := []string{
		"Attention Is All You Need",
		"εpsolute: Efficiently querying databases",
		"B ¨UNZ et al.",
	}
	for _, in := range inputs {
		once := Title(in)
		twice := Title(once)
		if once != twice {
			t.Errorf("Title not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestTitle_OnlyAlnumLower(t *testing.T) {
	got := Title("Détection, Réseaux & Données — 2024!")
	for _, r := range got {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			t.Errorf("Title() produced disallowed rune %q in %q", r, got)
		}
	}
}

func TestTitlesMatch_Exact(t *testing.T) {
	if !TitlesMatch("Detecting Hallucinated References", "Detecting Hallucinated References") {
		t.Error("expected exact titles to match")
	}
}

func TestTitlesMatch_MinorTypo(t *testing.T) {
	if !TitlesMatch(
		"Detecting Hallucinated References in Academic Papers",
		"Detecting Hallucinated References in Academic Paper",
	) {
		t.Error("expected minor typo to still match")
	}
}

func TestTitlesMatch_Different(t *testing.T) {
	if TitlesMatch("Detecting Hallucinated References", "Completely Different Title About Cats") {
		t.Error("expected unrelated titles not to match")
	}
}

func TestTitlesMatch_Empty(t *testing.T) {
	if TitlesMatch("", "Something") || TitlesMatch("Something", "") {
		t.Error("expected empty title never to match")
	}
}

func TestTitlesMatch_SubtitleAware(t *testing.T) {
	short := "Won't Somebody Think of the Children in Modern Privacy Law Today"
	long := short + "? Examining COPPA compliance across a decade of mobile apps in extensive detail across many pages of analysis"
	if TitlesMatch(short, long) {
		t.Error("expected subtitle-divergent long title not to match short title without ≥70%% coverage")
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	if s := Similarity("abc", "abc"); s != 100 {
		t.Errorf("expected 100 for identical strings, got %v", s)
	}
	if s := Similarity("abc", "xyz"); s < 0 || s > 100 {
		t.Errorf("similarity out of bounds: %v", s)
	}
}
