package series

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// sparseWindow holds two samples, neither carrying every field.
func sparseWindow(t *testing.T, display Display) Window {
	t.Helper()
	return NewWindow(waterFields, pivotRows(t,
		Row{Time: at(10, 0, 0), Field: "ph", Value: "7.20"},
		Row{Time: at(10, 0, 0), Field: "turbidez", Value: "3.5"},
		Row{Time: at(10, 1, 0), Field: "ph", Value: "7.10"},
	), display)
}

func TestTable_RendersAbsentAsNA(t *testing.T) {
	table := sparseWindow(t, Display{}).Table()

	want := Table{
		Columns: []string{"ph", "turbidez", "conductividad"},
		Rows: []TableRow{
			{Time: "2024-05-01 10:00:00", Cells: []string{"7.20", "3.50", "N/A"}},
			{Time: "2024-05-01 10:01:00", Cells: []string{"7.10", "N/A", "N/A"}},
		},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Errorf("Table() mismatch (-want +got):\n%s", diff)
	}
}

func TestCombined_AlignedDatasets(t *testing.T) {
	chart := sparseWindow(t, Display{}).Combined()

	if diff := cmp.Diff([]string{"10:00:00", "10:01:00"}, chart.Labels); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
	if len(chart.Datasets) != 3 {
		t.Fatalf("len(Datasets) = %d, want 3", len(chart.Datasets))
	}
	for _, ds := range chart.Datasets {
		if len(ds.Data) != len(chart.Labels) {
			t.Errorf("dataset %s has %d points, want %d", ds.Field, len(ds.Data), len(chart.Labels))
		}
	}

	want := Dataset{Field: "turbidez", Data: []Value{Some(3.5), Absent()}}
	if diff := cmp.Diff(want, chart.Datasets[1]); diff != "" {
		t.Errorf("turbidez dataset mismatch (-want +got):\n%s", diff)
	}
}

func TestSingle(t *testing.T) {
	window := sparseWindow(t, Display{})

	ph := window.Single("ph")
	if diff := cmp.Diff(Dataset{Field: "ph", Data: []Value{Some(7.2), Some(7.1)}}, ph); diff != "" {
		t.Errorf("Single(ph) mismatch (-want +got):\n%s", diff)
	}

	unknown := window.Single("temperature")
	if unknown.Data == nil || len(unknown.Data) != 0 {
		t.Errorf("Single(temperature).Data = %v, want empty non-nil slice", unknown.Data)
	}
}

func TestDisplay_LocationAndLayouts(t *testing.T) {
	mexico := time.FixedZone("CST", -6*3600)
	window := sparseWindow(t, Display{
		Location:    mexico,
		LabelLayout: "15:04",
		TableLayout: "02/01/2006 15:04",
	})

	if got := window.Labels()[0]; got != "04:00" {
		t.Errorf("Labels()[0] = %q, want %q", got, "04:00")
	}
	if got := window.Table().Rows[1].Time; got != "01/05/2024 04:01" {
		t.Errorf("Table().Rows[1].Time = %q, want %q", got, "01/05/2024 04:01")
	}
}

func TestViews_EmptyWindow(t *testing.T) {
	window := EmptyWindow(waterFields, Display{})

	chart := window.Combined()
	if len(chart.Labels) != 0 || len(chart.Datasets) != 3 {
		t.Errorf("Combined() on empty window = %+v", chart)
	}
	if rows := window.Table().Rows; len(rows) != 0 {
		t.Errorf("Table().Rows = %v, want none", rows)
	}
}
