package segment

import "github.com/ZaguanLabs/gotlm"

// DiffResult describes how the segments of a source changed between two
// revisions.
type DiffResult struct {
	// Added are segments whose path did not exist before.
	Added []Value

	// Removed are segments whose path no longer exists.
	Removed []Value

	// Unchanged are segments with the same path and content.
	Unchanged []Value

	// Modified pairs segments at the same path whose content changed.
	// Translations of the old content no longer apply.
	Modified []Modified
}

// Modified is a segment whose content changed in place.
type Modified struct {
	Old Value
	New Value
}

// DiffStats contains summary statistics for a diff.
type DiffStats struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
	Modified  int `json:"modified"`
}

// Stats returns summary statistics for the diff.
func (d *DiffResult) Stats() DiffStats {
	return DiffStats{
		Added:     len(d.Added),
		Removed:   len(d.Removed),
		Unchanged: len(d.Unchanged),
		Modified:  len(d.Modified),
	}
}

// HasChanges returns true if there are any differences.
func (d *DiffResult) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0
}

// NeedsTranslation returns the string segments that have no valid
// translation after the change: new ones and modified ones.
func (d *DiffResult) NeedsTranslation() []StringValue {
	var out []StringValue
	for _, v := range d.Added {
		if s, ok := v.(StringValue); ok {
			out = append(out, s)
		}
	}
	for _, m := range d.Modified {
		if s, ok := m.New.(StringValue); ok {
			out = append(out, s)
		}
	}
	return out
}

// Fingerprint identifies a segment's content independently of its path.
func Fingerprint(v Value) string {
	switch v := v.(type) {
	case StringValue:
		return "s:" + gotlm.HashText(v.Source.HTMLWithIDs())
	case TemplateValue:
		return "t:" + gotlm.HashContent(v.Format, v.Template)
	case RelatedObjectValue:
		return "r:" + v.ContentType + ":" + v.TranslationKey
	}
	return ""
}

// slot identifies a segment within a revision. A rich text field emits
// its template and all of its strings under one path, so segments are
// told apart by kind and by their position among same-path segments.
type slot struct {
	kind string
	path string
	n    int
}

func slots(values []Value) []slot {
	seen := make(map[slot]int, len(values))
	out := make([]slot, len(values))
	for i, v := range values {
		base := slot{kind: ToRecord(v).Type, path: v.Path()}
		k := base
		k.n = seen[base]
		seen[base]++
		out[i] = k
	}
	return out
}

// Diff compares two revisions of a source's segments by path and content.
// Results follow the order of the input slices.
func Diff(oldValues, newValues []Value) *DiffResult {
	result := &DiffResult{}

	oldSlots := slots(oldValues)
	newSlots := slots(newValues)

	oldBySlot := make(map[slot]Value, len(oldValues))
	for i, v := range oldValues {
		oldBySlot[oldSlots[i]] = v
	}
	inNew := make(map[slot]bool, len(newValues))
	for _, k := range newSlots {
		inNew[k] = true
	}

	for i, v := range oldValues {
		if !inNew[oldSlots[i]] {
			result.Removed = append(result.Removed, v)
		}
	}

	for i, v := range newValues {
		old, ok := oldBySlot[newSlots[i]]
		switch {
		case !ok:
			result.Added = append(result.Added, v)
		case Fingerprint(old) == Fingerprint(v):
			result.Unchanged = append(result.Unchanged, v)
		default:
			result.Modified = append(result.Modified, Modified{Old: old, New: v})
		}
	}

	return result
}
