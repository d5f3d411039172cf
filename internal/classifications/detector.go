package classifications

import (
	"fmt"
)

// Detect runs the batch-local checks in order and returns the first
// category of findings: missing mandatory fields, duplicate (key, domain)
// pairs, then identifier collisions. Records are compared after Normalize.
// It never touches a store.
func Detect(batch []Record) error {
	batch = Normalize(batch)
	for i, r := range batch {
		switch {
		case r.Key == "":
			return &ValidationError{
				Reason: fmt.Sprintf("record %d: key is required", i),
				Domain: r.Domain,
			}
		case r.Domain == "":
			return &ValidationError{
				Reason: fmt.Sprintf("record %d: domain is required", i),
				Key:    r.Key,
			}
		}
	}

	if dups := duplicates(batch, Record.ref); len(dups) > 0 {
		return &ConflictError{Reason: "duplicate key and domain in batch", Keys: dups}
	}

	withID := make([]Record, 0, len(batch))
	for _, r := range batch {
		if r.ID != "" {
			withID = append(withID, r)
		}
	}
	if dups := duplicates(withID, func(r Record) string { return r.ID }); len(dups) > 0 {
		return &ConflictError{Reason: "duplicate classification id in batch", Keys: dups}
	}

	return nil
}

// duplicates returns each repeated identity once, in first-seen order.
func duplicates(batch []Record, identity func(Record) string) []string {
	seen := make(map[string]int, len(batch))
	var out []string
	for _, r := range batch {
		id := identity(r)
		seen[id]++
		if seen[id] == 2 {
			out = append(out, id)
		}
	}
	return out
}
