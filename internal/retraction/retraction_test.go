package retraction

import "testing"

func TestFromWork_UpdateToRetraction(t *testing.T) {
	work := map[string]interface{}{
		"update-to": []interface{}{
			map[string]interface{}{"type": "Retraction", "DOI": "10.1/retraction-doi"},
		},
	}
	r := FromWork(work)
	if r == nil || !r.IsRetracted || r.RetractionDOI != "10.1/retraction-doi" {
		t.Fatalf("expected retraction, got %+v", r)
	}
}

func TestFromWork_IsRetractedByRelation(t *testing.T) {
	work := map[string]interface{}{
		"relation": map[string]interface{}{
			"is-retracted-by": []interface{}{
				map[string]interface{}{"id": "10.1/other"},
			},
		},
	}
	r := FromWork(work)
	if r == nil || !r.IsRetracted || r.RetractionDOI != "10.1/other" {
		t.Fatalf("expected retraction, got %+v", r)
	}
}

func TestFromWork_ExpressionOfConcern(t *testing.T) {
	work := map[string]interface{}{
		"relation": map[string]interface{}{
			"has-expression-of-concern": []interface{}{
				map[string]interface{}{"id": "10.1/concern"},
			},
		},
	}
	r := FromWork(work)
	if r == nil || r.Source != "Expression of Concern" {
		t.Fatalf("expected expression-of-concern retraction, got %+v", r)
	}
}

func TestFromWork_NoRetraction(t *testing.T) {
	if r := FromWork(map[string]interface{}{}); r != nil {
		t.Fatalf("expected nil for clean work, got %+v", r)
	}
}
