package mcptools

import (
	"strings"

	"github.com/samber/lo"

	"github.com/cortexmem/hme/internal/engine/errs"
)

// reservedTagSeparator guards Invariant M-2: whichever tag encoding an
// implementation picks, a tag containing the encoding's own delimiter would
// break round-trip fidelity. This store encodes tags as a JSON array, which
// does not actually break on a literal comma, but the boundary still rejects
// it so the documented error catalog ("tag containing reserved separator")
// holds regardless of encoding.
const reservedTagSeparator = ","

// normalizeTags validates and deduplicates a tag list per the boundary rule:
// empty strings are rejected outright, a reserved separator in any tag is
// rejected, and duplicates are removed preserving first occurrence.
func normalizeTags(tags []string) ([]string, error) {
	if tags == nil {
		return []string{}, nil
	}
	for _, t := range tags {
		if strings.TrimSpace(t) == "" {
			return nil, errs.InvalidArgument("tags must not contain empty strings")
		}
		if strings.Contains(t, reservedTagSeparator) {
			return nil, errs.InvalidArgument("tags must not contain the reserved separator character ','")
		}
	}
	return lo.Uniq(tags), nil
}

// exactlyOneSelector enforces memory_summarize's "exactly one of
// memory_id|query|topic" boundary rule.
func exactlyOneSelector(memoryID, query, topic *string) error {
	set := 0
	for _, p := range []*string{memoryID, query, topic} {
		if p != nil && strings.TrimSpace(*p) != "" {
			set++
		}
	}
	if set != 1 {
		return errs.InvalidArgument("exactly one of memory_id, query, or topic must be provided")
	}
	return nil
}
