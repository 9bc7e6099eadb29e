package rfq

import "github.com/hyperjump/rfqrocket/internal/models"

// Merge folds partials, in order, into a fresh final record. Object fields are
// shallow-merged with later partials winning on key collisions; list fields
// accumulate, with a non-list value appended as a single item. Fields a partial
// does not carry, and keys outside the schema, contribute nothing.
func Merge(partials []models.Record) models.Record {
	out := models.NewRecord()
	for _, p := range partials {
		mergeInto(out, p)
	}
	return out
}

func mergeInto(dst, partial models.Record) {
	for _, f := range models.Fields {
		v, ok := partial[string(f)]
		if !ok {
			continue
		}
		switch models.Schema[f] {
		case models.KindObject:
			src, isObj := v.(map[string]any)
			if !isObj {
				continue
			}
			obj := dst.Object(f)
			for k, val := range src {
				obj[k] = val
			}
		case models.KindList:
			list := dst.List(f)
			if items, isList := v.([]any); isList {
				list = append(list, items...)
			} else {
				list = append(list, v)
			}
			dst[string(f)] = list
		}
	}
}
