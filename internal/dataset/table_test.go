package dataset

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestTableCSVRoundTrip(t *testing.T) {
	table := &Table{
		Columns: []string{"id", "value"},
		Rows: []Row{
			{"id": "a", "value": "1"},
			{"id": "b", "value": "with, comma"},
		},
	}

	path := filepath.Join(t.TempDir(), "table.csv")
	if err := table.WriteCSV(path); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	reloaded, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	if !reflect.DeepEqual(reloaded.Columns, table.Columns) {
		t.Fatalf("columns = %v, want %v", reloaded.Columns, table.Columns)
	}
	if !reflect.DeepEqual(reloaded.Rows, table.Rows) {
		t.Fatalf("rows = %v, want %v", reloaded.Rows, table.Rows)
	}
}

func TestIndexLastRowWins(t *testing.T) {
	table := &Table{
		Columns: []string{"user_id", "v"},
		Rows: []Row{
			{"user_id": "u1", "v": "old"},
			{"user_id": "u1", "v": "new"},
			{"user_id": "", "v": "ignored"},
		},
	}

	index := table.Index("user_id")
	if len(index) != 1 {
		t.Fatalf("index size = %d, want 1", len(index))
	}
	if index["u1"]["v"] != "new" {
		t.Fatalf("index[u1] = %v, want the later row", index["u1"])
	}
}

func TestEnsureColumn(t *testing.T) {
	table := &Table{
		Columns: []string{"id"},
		Rows:    []Row{{"id": "a"}},
	}

	table.EnsureColumn("extra")
	table.EnsureColumn("extra")

	if got := len(table.Columns); got != 2 {
		t.Fatalf("columns = %v", table.Columns)
	}
	if v, ok := table.Rows[0]["extra"]; !ok || v != "" {
		t.Fatalf("row not padded: %v", table.Rows[0])
	}
}

func TestRowFloat(t *testing.T) {
	row := Row{"a": "1.5", "b": "junk", "c": ""}

	if got := row.Float("a"); got != 1.5 {
		t.Errorf("Float(a) = %v", got)
	}
	if got := row.Float("b"); got != 0 {
		t.Errorf("Float(b) = %v, want 0", got)
	}
	if got := row.Float("missing"); got != 0 {
		t.Errorf("Float(missing) = %v, want 0", got)
	}
}
