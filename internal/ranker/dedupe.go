package ranker

import (
	"ContentCurator/internal/domain"
)

const (
	similarityThreshold = 0.8
	similarityPrefixLen = 500
)

// Deduplicate removes exact URL duplicates and near-duplicates by content
// similarity, keeping the first occurrence and preserving order. Two items
// are near-duplicates when the quick ratio of the first 500 characters of
// their content exceeds 0.8; empty content never matches.
func (r *Ranker) Deduplicate(items []domain.PoolItem) []domain.PoolItem {
	seenURLs := make(map[string]struct{}, len(items))
	kept := make([]domain.PoolItem, 0, len(items))
	keptPrefixes := make([]string, 0, len(items))

	for _, item := range items {
		if _, ok := seenURLs[item.URL]; ok {
			continue
		}
		seenURLs[item.URL] = struct{}{}

		prefix := contentPrefix(item.Content, similarityPrefixLen)
		duplicate := false
		if prefix != "" {
			for _, keptPrefix := range keptPrefixes {
				if keptPrefix == "" {
					continue
				}
				if quickRatio(prefix, keptPrefix) > similarityThreshold {
					duplicate = true
					break
				}
			}
		}
		if duplicate {
			continue
		}

		kept = append(kept, item)
		keptPrefixes = append(keptPrefixes, prefix)
	}

	if len(kept) != len(items) && r.logger != nil {
		r.logger.Info("deduplicated batch", "before", len(items), "after", len(kept))
	}

	return kept
}
