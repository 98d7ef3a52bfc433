package series

import (
	"time"
)

const (
	// DefaultLabelLayout formats chart labels as time of day.
	DefaultLabelLayout = "15:04:05"

	// DefaultTableLayout formats table timestamps with date and time.
	DefaultTableLayout = "2006-01-02 15:04:05"
)

// Display controls how timestamps are rendered by the derived views.
//
// The zero Display renders in UTC with the default layouts.
type Display struct {
	// Location is the time zone timestamps are shown in. nil means UTC.
	Location *time.Location

	// LabelLayout is the time layout for chart labels.
	LabelLayout string

	// TableLayout is the time layout for table rows.
	TableLayout string
}

func (d Display) location() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

// Label formats t as a chart label.
func (d Display) Label(t time.Time) string {
	layout := d.LabelLayout
	if layout == "" {
		layout = DefaultLabelLayout
	}
	return t.In(d.location()).Format(layout)
}

// Stamp formats t as a table timestamp.
func (d Display) Stamp(t time.Time) string {
	layout := d.TableLayout
	if layout == "" {
		layout = DefaultTableLayout
	}
	return t.In(d.location()).Format(layout)
}

// Dataset is the aligned readings of one field across a window.
type Dataset struct {
	Field string  `json:"field"`
	Data  []Value `json:"data"`
}

// Chart is a set of datasets sharing one label axis.
type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Table is the display form of a window: one formatted row per sample.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

// TableRow is one sample formatted for display. Cells follow the table's
// column order.
type TableRow struct {
	Time  string   `json:"time"`
	Cells []string `json:"cells"`
}

// Labels returns the formatted timestamp of every sample.
func (w Window) Labels() []string {
	labels := make([]string, len(w.samples))
	for i, s := range w.samples {
		labels[i] = w.display.Label(s.Time)
	}
	return labels
}

// Combined returns one dataset per recognised field, all aligned to the
// same label axis. Gaps are absent values.
func (w Window) Combined() Chart {
	datasets := make([]Dataset, len(w.fields))
	for i, name := range w.fields {
		datasets[i] = w.dataset(name)
	}
	return Chart{
		Labels:   w.Labels(),
		Datasets: datasets,
	}
}

// Single returns the dataset for one field. If field is not recognised the
// dataset has no data.
func (w Window) Single(field string) Dataset {
	for _, name := range w.fields {
		if name == field {
			return w.dataset(field)
		}
	}
	return Dataset{Field: field, Data: []Value{}}
}

func (w Window) dataset(field string) Dataset {
	data := make([]Value, len(w.samples))
	for i, s := range w.samples {
		data[i] = s.Fields[field]
	}
	return Dataset{Field: field, Data: data}
}

// Table returns every sample in display form, oldest first. Numbers have
// exactly two decimals and absent readings read "N/A".
func (w Window) Table() Table {
	rows := make([]TableRow, len(w.samples))
	for i, s := range w.samples {
		cells := make([]string, len(w.fields))
		for j, name := range w.fields {
			cells[j] = s.Fields[name].String()
		}
		rows[i] = TableRow{
			Time:  w.display.Stamp(s.Time),
			Cells: cells,
		}
	}
	return Table{
		Columns: w.Fields(),
		Rows:    rows,
	}
}
