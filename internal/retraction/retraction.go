// Package retraction extracts inline retraction metadata from a
// CrossRef-shaped work record.
package retraction

import "github.com/ppiankov/refcheck/internal/domain"

// FromWork inspects a CrossRef "message" object (already decoded into
// a generic map) for update-to relations, is-retracted-by, or
// has-expression-of-concern relations, and returns a populated
// domain.Retraction if any is found.
func FromWork(work map[string]interface{}) *domain.Retraction {
	if updates, ok := work["update-to"].([]interface{}); ok {
		for _, u := range updates {
			update, ok := u.(map[string]interface{})
			if !ok {
				continue
			}
			updateType, _ := update["type"].(string)
			switch toLower(updateType) {
			case "retraction", "removal":
				doi, _ := update["DOI"].(string)
				label := updateType
				if label == "" {
					label = "Retraction"
				}
				return &domain.Retraction{
					IsRetracted:   true,
					RetractionDOI: doi,
					Source:        label,
				}
			}
		}
	}

	relation, _ := work["relation"].(map[string]interface{})
	if relation == nil {
		return nil
	}

	if retractedBy, ok := relation["is-retracted-by"].([]interface{}); ok && len(retractedBy) > 0 {
		if first, ok := retractedBy[0].(map[string]interface{}); ok {
			id, _ := first["id"].(string)
			return &domain.Retraction{IsRetracted: true, RetractionDOI: id, Source: "Retraction"}
		}
	}

	if concerns, ok := relation["has-expression-of-concern"].([]interface{}); ok && len(concerns) > 0 {
		if first, ok := concerns[0].(map[string]interface{}); ok {
			id, _ := first["id"].(string)
			return &domain.Retraction{IsRetracted: true, RetractionDOI: id, Source: "Expression of Concern"}
		}
	}

	return nil
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
