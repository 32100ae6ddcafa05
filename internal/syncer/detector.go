package syncer

import "sort"

// ChangeSet classifies a collection's files against its sync records.
// The four sets are disjoint and sorted for deterministic processing order.
type ChangeSet struct {
	Unchanged []string
	Changed   []string
	New       []string
	Deleted   []string
}

// Total returns the number of live files (everything except deleted).
func (c ChangeSet) Total() int {
	return len(c.Unchanged) + len(c.Changed) + len(c.New)
}

// Classify joins the live path→hash listing against the stored sync records.
// A file is changed if a record exists with a different hash, new if no
// record exists, deleted if a record has no live file, otherwise unchanged.
// force reclassifies unchanged files as changed.
//
// Pure: no I/O, no side effects.
func Classify(live map[string]string, records map[string]FileSyncRecord, force bool) ChangeSet {
	var cs ChangeSet

	for path, hash := range live {
		rec, ok := records[path]
		switch {
		case !ok:
			cs.New = append(cs.New, path)
		case rec.ContentHash != hash || force:
			cs.Changed = append(cs.Changed, path)
		default:
			cs.Unchanged = append(cs.Unchanged, path)
		}
	}

	for path := range records {
		if _, ok := live[path]; !ok {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	sort.Strings(cs.Unchanged)
	sort.Strings(cs.Changed)
	sort.Strings(cs.New)
	sort.Strings(cs.Deleted)
	return cs
}
