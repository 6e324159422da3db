package authors

import "testing"

func TestValidate_Basic(t *testing.T) {
	v := Validate([]string{"John Smith", "Alice Jones"}, []string{"John Smith", "Bob Brown"})
	if v != Match {
		t.Errorf("expected Match, got %v", v)
	}
}

func TestValidate_NoOverlap(t *testing.T) {
	v := Validate([]string{"John Smith"}, []string{"Bob Brown"})
	if v != Mismatch {
		t.Errorf("expected Mismatch, got %v", v)
	}
}

func TestValidate_SurnameOnlyMode(t *testing.T) {
	v := Validate([]string{"Smith", "Jones"}, []string{"John Smith", "Alice Jones"})
	if v != Match {
		t.Errorf("expected Match in surname-only mode, got %v", v)
	}
}

func TestValidate_MultiWordSurname(t *testing.T) {
	v := Validate([]string{"Jay Van Bavel"}, []string{"J. J. Van Bavel"})
	if v != Match {
		t.Errorf("expected Match for multi-word surname, got %v", v)
	}
}

func TestValidate_AAAIFormat(t *testing.T) {
	v := Validate([]string{"Bail, C. A.", "Jones, M."}, []string{"Christopher Bail", "Michael Jones"})
	if v != Match {
		t.Errorf("expected Match for AAAI-style names, got %v", v)
	}
}

func TestValidate_Empty(t *testing.T) {
	if v := Validate(nil, []string{"Smith"}); v != Unknown {
		t.Errorf("expected Unknown for empty ref authors, got %v", v)
	}
	if v := Validate([]string{"Smith"}, nil); v != Unknown {
		t.Errorf("expected Unknown for empty found authors, got %v", v)
	}
}

func TestNormalizeAuthor_Springer(t *testing.T) {
	if got := normalizeAuthor("Abrahao S"); got != "S abrahao" {
		t.Errorf("normalizeAuthor() = %q, want %q", got, "S abrahao")
	}
}

func TestNormalizeAuthor_Standard(t *testing.T) {
	if got := normalizeAuthor("John Smith"); got != "J smith" {
		t.Errorf("normalizeAuthor() = %q, want %q", got, "J smith")
	}
}

func TestNormalizeAuthor_AAAI(t *testing.T) {
	if got := normalizeAuthor("Bail, C. A."); got != "C bail" {
		t.Errorf("normalizeAuthor() = %q, want %q", got, "C bail")
	}
}

func TestLastName_MultiWord(t *testing.T) {
	if got := lastName("Jay Van Bavel"); got != "van bavel" {
		t.Errorf("lastName() = %q, want %q", got, "van bavel")
	}
}

func TestResolveUnknown(t *testing.T) {
	if v := ResolveUnknown(Unknown, 99, 98); v != Match {
		t.Errorf("expected near-exact title to upgrade Unknown to Match, got %v", v)
	}
	if v := ResolveUnknown(Unknown, 90, 98); v != Unknown {
		t.Errorf("expected Unknown to stay Unknown below threshold, got %v", v)
	}
	if v := ResolveUnknown(Mismatch, 100, 98); v != Mismatch {
		t.Errorf("expected non-Unknown verdict to pass through unchanged, got %v", v)
	}
}
