package wishlist

import (
	"encoding/json"
	"strings"
)

// legacyEntry is the older persisted shape: an array of objects.
type legacyEntry struct {
	PlaceID string `json:"place_id"`
}

// decodeIDs parses a persisted wishlist. It accepts the canonical array of ids
// and the older array of {"place_id": ...} objects, including a mix of both.
// Duplicates and blank ids are dropped, first occurrence wins. ok is false
// when the value is corrupt; the returned set is then empty.
func decodeIDs(raw string) (ids []string, ok bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil || elems == nil {
		return []string{}, false
	}

	ids = make([]string, 0, len(elems))
	seen := make(map[string]struct{}, len(elems))
	for _, e := range elems {
		var id string
		if err := json.Unmarshal(e, &id); err != nil {
			var legacy legacyEntry
			if err := json.Unmarshal(e, &legacy); err != nil {
				return []string{}, false
			}
			id = legacy.PlaceID
		}
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, true
}

// encodeIDs writes the canonical shape. An empty set is "[]", never "null".
func encodeIDs(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	data, _ := json.Marshal(ids)
	return string(data)
}
