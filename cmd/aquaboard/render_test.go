package main

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/jpalmerr/aquaboard"
	"github.com/jpalmerr/aquaboard/series"
)

func TestRenderTable(t *testing.T) {
	ph, err := aquaboard.NewField("ph", aquaboard.WithLabel("pH"))
	if err != nil {
		t.Fatal(err)
	}
	turb, err := aquaboard.NewField("turbidez", aquaboard.WithLabel("Turbidez"), aquaboard.WithUnit("NTU"))
	if err != nil {
		t.Fatal(err)
	}

	table := series.Table{
		Columns: []string{"ph", "turbidez", "cloro"},
		Rows: []series.TableRow{
			{Time: "2024-03-01 10:00:00", Cells: []string{"7.20", "3.50", "N/A"}},
			{Time: "2024-03-01 10:01:00", Cells: []string{"7.10", "N/A", "0.80"}},
		},
	}

	out := renderTable(table, []aquaboard.Field{ph, turb})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	// header, divider, one line per row
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	for _, want := range []string{"Time", "pH", "Turbidez (NTU)", "cloro"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("header missing %q: %q", want, lines[0])
		}
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[1]), "---") {
		t.Errorf("divider = %q", lines[1])
	}
	for _, want := range []string{"2024-03-01 10:00:00", "7.20", "3.50", "N/A"} {
		if !strings.Contains(lines[2], want) {
			t.Errorf("row missing %q: %q", want, lines[2])
		}
	}
	if !strings.Contains(lines[3], "0.80") {
		t.Errorf("row missing 0.80: %q", lines[3])
	}
}

func TestStatusStyle(t *testing.T) {
	tests := []struct {
		status aquaboard.Status
		want   lipgloss.Style
	}{
		{aquaboard.StatusReady, readyStyle},
		{aquaboard.StatusEmpty, warnStyle},
		{aquaboard.StatusLoading, warnStyle},
		{aquaboard.StatusConfigError, errorStyle},
		{aquaboard.StatusQueryError, errorStyle},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			got := statusStyle(tt.status)
			if got.GetForeground() != tt.want.GetForeground() || got.GetBold() != tt.want.GetBold() {
				t.Errorf("statusStyle(%s) foreground = %v, want %v", tt.status, got.GetForeground(), tt.want.GetForeground())
			}
		})
	}
}
