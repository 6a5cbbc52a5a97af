// Package tabular turns located JSON records into flat tables with dotted
// column names and projects them onto a preferred column list.
//
// Arrays are never recursed into: an array member is kept as a single leaf
// value and rendered as compact JSON text. Empty objects are leaves too, so
// flattening never drops a member.
package tabular

import (
	"strings"

	"github.com/mcncl/deskview/internal/models"
)

// Separator joins path segments into column names.
const Separator = "."

// ValueColumn holds records that are not objects.
const ValueColumn = "value"

// Flatten walks obj and returns one cell per leaf, named by its dotted path.
func Flatten(obj *models.Object) models.Row {
	row := models.Row{}
	flattenInto(row, nil, obj, "")
	return row
}

// flattenInto also appends each new column name to order, when non-nil,
// so callers can build first-seen column order without sorting map keys.
func flattenInto(row models.Row, order *[]string, obj *models.Object, prefix string) {
	obj.Each(func(key string, value models.Value) bool {
		name := key
		if prefix != "" {
			name = prefix + Separator + key
		}
		if nested, ok := value.AsObject(); ok && nested.Len() > 0 {
			flattenInto(row, order, nested, name)
			return true
		}
		if _, exists := row[name]; !exists && order != nil {
			*order = append(*order, name)
		}
		row[name] = value
		return true
	})
}

// FromRecords builds a table with one row per record. Object records are
// flattened; any other record becomes a single cell under ValueColumn.
// Columns are the union of every row's cells in first-seen order and every
// row holds a cell for every column.
func FromRecords(records []models.Value) models.Table {
	table := models.Table{Columns: []string{}, Rows: make([]models.Row, 0, len(records))}
	seen := make(map[string]struct{})

	for _, record := range records {
		row := models.Row{}
		var order []string
		if obj, ok := record.AsObject(); ok {
			flattenInto(row, &order, obj, "")
		} else {
			row[ValueColumn] = record
			order = []string{ValueColumn}
		}
		for _, name := range order {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				table.Columns = append(table.Columns, name)
			}
		}
		table.Rows = append(table.Rows, row)
	}

	fillMissing(table)
	return table
}

// Normalize builds a table from any JSON value: an array yields one row per
// element, an object yields a single row, null yields an empty table and any
// other scalar yields a single ValueColumn cell.
func Normalize(v models.Value) models.Table {
	switch v.Kind() {
	case models.KindNull:
		return models.Table{Columns: []string{}, Rows: []models.Row{}}
	case models.KindArray:
		items, _ := v.AsArray()
		return FromRecords(items)
	default:
		return FromRecords([]models.Value{v})
	}
}

// Project restricts table to the preferred columns that it actually has, in
// preferred order. When none of them are present the table is returned
// unchanged so nothing is hidden.
func Project(table models.Table, preferred []string) models.Table {
	present := make([]string, 0, len(preferred))
	picked := make(map[string]struct{}, len(preferred))
	for _, name := range preferred {
		if _, dup := picked[name]; dup || !table.HasColumn(name) {
			continue
		}
		picked[name] = struct{}{}
		present = append(present, name)
	}
	if len(present) == 0 {
		return table
	}

	projected := models.Table{Columns: present, Rows: make([]models.Row, 0, len(table.Rows))}
	for i := range table.Rows {
		row := make(models.Row, len(present))
		for _, name := range present {
			row[name] = table.Cell(i, name)
		}
		projected.Rows = append(projected.Rows, row)
	}
	return projected
}

// Unflatten rebuilds a nested object from row by splitting column names on
// Separator. columns fixes the member order.
//
// Rows built from records of different shapes can hold both a value at a
// path and values below it. A null never displaces data at a colliding path,
// and a non-null value below another non-null value is kept under its full
// dotted name at the top level, so no cell with data is dropped.
func Unflatten(row models.Row, columns []string) *models.Object {
	filled := make(map[string]struct{})
	ancestors := make(map[string]struct{})
	for _, name := range columns {
		if value, ok := row[name]; ok && !value.IsNull() {
			filled[name] = struct{}{}
			for _, prefix := range prefixes(name) {
				ancestors[prefix] = struct{}{}
			}
		}
	}

	root := models.NewObject()
	for _, name := range columns {
		value, ok := row[name]
		if !ok {
			continue
		}

		shadowed := false
		for _, prefix := range prefixes(name) {
			if _, ok := filled[prefix]; ok {
				shadowed = true
				break
			}
		}

		if value.IsNull() {
			if _, hasData := ancestors[name]; hasData || shadowed {
				continue
			}
		} else if shadowed {
			root.Set(name, value)
			continue
		}

		if !place(root, strings.Split(name, Separator), value) && !value.IsNull() {
			root.Set(name, value)
		}
	}
	return root
}

// place stores value at the nested path segments below root. It reports
// false, leaving root untouched, when the path runs into a member that is
// not an object or would replace an object with a leaf.
func place(root *models.Object, segments []string, value models.Value) bool {
	parent := root
	for _, segment := range segments[:len(segments)-1] {
		child, exists := parent.Get(segment)
		if !exists {
			nested := models.NewObject()
			parent.Set(segment, models.ObjectValue(nested))
			parent = nested
			continue
		}
		nested, isObject := child.AsObject()
		if !isObject {
			return false
		}
		parent = nested
	}

	last := segments[len(segments)-1]
	if existing, exists := parent.Get(last); exists {
		if obj, isObject := existing.AsObject(); isObject && obj.Len() > 0 {
			return false
		}
	}
	parent.Set(last, value)
	return true
}

// prefixes returns the proper dotted prefixes of name, shortest first
func prefixes(name string) []string {
	var out []string
	for i := 0; i < len(name); i++ {
		if name[i] == Separator[0] {
			out = append(out, name[:i])
		}
	}
	return out
}

// HasLeaf reports whether v contains at least one scalar value.
func HasLeaf(v models.Value) bool {
	switch v.Kind() {
	case models.KindArray:
		items, _ := v.AsArray()
		for _, item := range items {
			if HasLeaf(item) {
				return true
			}
		}
		return false
	case models.KindObject:
		obj, _ := v.AsObject()
		leaf := false
		obj.Each(func(_ string, member models.Value) bool {
			leaf = HasLeaf(member)
			return !leaf
		})
		return leaf
	default:
		return true
	}
}

func fillMissing(table models.Table) {
	for _, row := range table.Rows {
		for _, name := range table.Columns {
			if _, ok := row[name]; !ok {
				row[name] = models.Null()
			}
		}
	}
}
