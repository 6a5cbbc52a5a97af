package models

// Row maps a dotted column name to a leaf value.
type Row map[string]Value

// Table is an ordered set of rows sharing an ordered list of unique columns.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows
func (t Table) Len() int {
	return len(t.Rows)
}

// IsEmpty reports whether the table has nothing to show
func (t Table) IsEmpty() bool {
	return len(t.Rows) == 0 || len(t.Columns) == 0
}

// HasColumn reports whether name is one of the table's columns
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Cell returns the value at row i, column name. Missing cells are null.
func (t Table) Cell(i int, name string) Value {
	if i < 0 || i >= len(t.Rows) {
		return Null()
	}
	return t.Rows[i][name]
}

// Records returns each row as cell text in column order
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for i := range t.Rows {
		record := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			record[j] = t.Cell(i, c).Text()
		}
		out = append(out, record)
	}
	return out
}
