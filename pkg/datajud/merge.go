package datajud

import "fmt"

// mergeHits combines several instances (G1, G2...) of the same process.
// The first hit is the base record; movements of every hit are merged and
// deduplicated by code, timestamp and name. A duplicate keeps the position of
// its first occurrence and the content of its last.
func mergeHits(hits []CaseRecord) *CaseRecord {
	if len(hits) == 0 {
		return nil
	}

	base := hits[0]
	if len(hits) == 1 {
		return &base
	}

	positions := make(map[string]int)
	merged := make([]Movement, 0, len(base.Movements))
	for _, hit := range hits {
		for _, m := range hit.Movements {
			key := movementKey(m)
			if pos, ok := positions[key]; ok {
				merged[pos] = m
				continue
			}
			positions[key] = len(merged)
			merged = append(merged, m)
		}
	}

	base.Movements = merged
	return &base
}

func movementKey(m Movement) string {
	return fmt.Sprintf("%d|%s|%s", m.Code, m.DateTime, m.Name)
}
