package audit

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Diff computes the field-level change set between two snapshots of a
// resource. The result holds an entry for every key whose value
// differs under deep structural equality, including keys present on
// only one side (the absent side reads as nil). Identical snapshots
// yield an empty map.
func Diff(before, after map[string]any) map[string]Change {
	changes := make(map[string]Change)
	for key, fromValue := range before {
		toValue, inAfter := after[key]
		if !inAfter {
			changes[key] = Change{From: fromValue, To: nil}
			continue
		}
		if !valuesEqual(fromValue, toValue) {
			changes[key] = Change{From: fromValue, To: toValue}
		}
	}
	for key, toValue := range after {
		if _, inBefore := before[key]; !inBefore {
			changes[key] = Change{From: nil, To: toValue}
		}
	}
	return changes
}

// valuesEqual compares by canonical JSON so that equivalent values of
// different dynamic types (int 5 vs float64 5) compare equal the same
// way they would after a marshal round-trip. Unserializable values
// fall back to reflect.DeepEqual.
func valuesEqual(a, b any) bool {
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(aJSON, bJSON)
}
