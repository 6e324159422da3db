package cache

import (
	"testing"
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
)

func TestKey(t *testing.T) {
	if got := Key("CrossRef", "attentionisallyouneed"); got != "CrossRef\x1fattentionisallyouneed" {
		t.Errorf("Key() = %q", got)
	}
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	m := NewMemoryCache(time.Hour, time.Minute, time.Minute)
	entry := domain.CacheEntry{FoundTitle: "Attention Is All You Need", Class: domain.OutcomeClassPositive, InsertedAt: time.Now()}

	if _, found := m.Lookup("CrossRef", "attentionisallyouneed"); found {
		t.Fatal("expected miss before insert")
	}

	if err := m.Insert("CrossRef", "attentionisallyouneed", entry); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, found := m.Lookup("CrossRef", "attentionisallyouneed")
	if !found {
		t.Fatal("expected hit after insert")
	}
	if got.FoundTitle != entry.FoundTitle {
		t.Errorf("got %+v, want %+v", got, entry)
	}
}

func TestMemoryCache_ClearNegatives(t *testing.T) {
	m := NewMemoryCache(time.Hour, time.Hour, time.Minute)
	_ = m.Insert("CrossRef", "a", domain.CacheEntry{Class: domain.OutcomeClassPositive})
	_ = m.Insert("CrossRef", "b", domain.CacheEntry{Class: domain.OutcomeClassNegative})

	if err := m.ClearNegatives(); err != nil {
		t.Fatalf("ClearNegatives failed: %v", err)
	}

	if _, found := m.Lookup("CrossRef", "a"); !found {
		t.Error("expected positive entry to survive ClearNegatives")
	}
	if _, found := m.Lookup("CrossRef", "b"); found {
		t.Error("expected negative entry to be removed by ClearNegatives")
	}
}

func TestLayeredCache_PromotesFromPersistent(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour, time.Hour)
	layered := NewLayeredCache(time.Hour, time.Hour, disk)

	entry := domain.CacheEntry{FoundTitle: "Foo", Class: domain.OutcomeClassPositive}
	if err := disk.Insert("arXiv", "foo", entry); err != nil {
		t.Fatalf("disk insert failed: %v", err)
	}

	got, found := layered.Lookup("arXiv", "foo")
	if !found {
		t.Fatal("expected layered cache to find disk-only entry")
	}
	if got.FoundTitle != "Foo" {
		t.Errorf("got %+v", got)
	}

	if _, found := layered.memory.Lookup("arXiv", "foo"); !found {
		t.Error("expected disk hit to be promoted into memory")
	}
}

func TestDiskCache_ExpiresNegativeEntry(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour, time.Millisecond)
	_ = disk.Insert("PubMed", "x", domain.CacheEntry{Class: domain.OutcomeClassNegative})

	time.Sleep(5 * time.Millisecond)

	if _, found := disk.Lookup("PubMed", "x"); found {
		t.Error("expected expired negative entry to be evicted on lookup")
	}
}
