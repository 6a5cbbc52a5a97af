// Package locator finds the list of records inside an arbitrary API payload.
package locator

import "github.com/mcncl/deskview/internal/models"

// PriorityKeys are the member names APIs commonly use for a record list,
// checked in this order before any recursive search.
var PriorityKeys = []string{"requests", "request", "data", "result", "results", "records", "response"}

// createdKeys are checked by LocateCreated after a top-level "request" object.
var createdKeys = []string{"requests", "data", "result", "results", "records", "response"}

// Locate returns the sequence of records represented by v.
//
// An array is returned unchanged. For an object, the first priority key holding
// an array wins; otherwise members are searched depth-first in insertion order
// and the first array found is returned. found is false when v holds no array
// at all, meaning the whole value should be treated as a single row. An empty
// array is a valid result and is reported as found.
func Locate(v models.Value) (records []models.Value, found bool) {
	switch v.Kind() {
	case models.KindArray:
		items, _ := v.AsArray()
		return items, true
	case models.KindObject:
		obj, _ := v.AsObject()
		return locateInObject(obj)
	default:
		return nil, false
	}
}

func locateInObject(obj *models.Object) ([]models.Value, bool) {
	for _, key := range PriorityKeys {
		if member, ok := obj.Get(key); ok {
			if items, isArray := member.AsArray(); isArray {
				return items, true
			}
		}
	}

	var (
		records []models.Value
		found   bool
	)
	obj.Each(func(_ string, member models.Value) bool {
		records, found = Locate(member)
		return !found
	})
	return records, found
}

// LocateCreated picks the part of a create response that describes the new
// record. A top-level "request" object wins; otherwise the first of the other
// collection keys holding an array or an object is used. found is false when
// none applies and the whole payload should be shown as one row.
func LocateCreated(v models.Value) (models.Value, bool) {
	obj, ok := v.AsObject()
	if !ok {
		if v.Kind() == models.KindArray {
			return v, true
		}
		return models.Null(), false
	}

	if member, ok := obj.Get("request"); ok && member.Kind() == models.KindObject {
		return member, true
	}
	for _, key := range createdKeys {
		member, ok := obj.Get(key)
		if !ok {
			continue
		}
		if k := member.Kind(); k == models.KindArray || k == models.KindObject {
			return member, true
		}
	}
	return models.Null(), false
}
