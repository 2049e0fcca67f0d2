package livediff

import "reflect"

// DiffBindings compares two binding maps and produces the change hint for
// re-rendering with the new one. Inputs present in both maps with deeply
// equal values are confirmed unchanged; added, removed, or changed inputs are
// left out of the set so any slot reading them recomputes. A nil old map
// means there is no prior render to compare against and yields the Unknown
// hint.
func DiffBindings(old, new map[string]interface{}) ChangeHint {
	if old == nil {
		return HintUnknown()
	}

	var unchanged []string
	for name, newVal := range new {
		oldVal, ok := old[name]
		if !ok {
			continue
		}
		if reflect.DeepEqual(oldVal, newVal) {
			unchanged = append(unchanged, name)
		}
	}
	return HintUnchanged(unchanged...)
}
