package backend

import "testing"

func TestTitlesMatchLenientExact(t *testing.T) {
	if !titlesMatchLenient("Attention Is All You Need", "Attention Is All You Need") {
		t.Fatal("expected exact match")
	}
}

func TestTitlesMatchLenientSuffix(t *testing.T) {
	if !titlesMatchLenient("Oasis: A universe in a transformer", "Oasis: A Universe in a Transformer - OpenReview") {
		t.Fatal("expected suffix-tolerant match")
	}
}

func TestTitlesMatchLenientPrefix(t *testing.T) {
	if !titlesMatchLenient("Oasis: A universe in a transformer", "October 31, 2024 Oasis: A Universe in a Transformer") {
		t.Fatal("expected prefix-tolerant match")
	}
}

func TestTitlesMatchLenientCaseInsensitive(t *testing.T) {
	if !titlesMatchLenient("attention is all you need", "ATTENTION IS ALL YOU NEED") {
		t.Fatal("expected case-insensitive match")
	}
}

func TestTitlesMatchLenientRejectsDifferent(t *testing.T) {
	if titlesMatchLenient("Attention Is All You Need", "BERT: Pre-training of Deep Bidirectional Transformers") {
		t.Fatal("expected distinct titles not to match")
	}
}
