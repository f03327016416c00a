package sched

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Row is one labelled counter value for a report table.
type Row struct {
	Label string
	Value any
}

// Report collects named Row groups (one per component) for a final debug
// dump, the role core.PrintState plays for the teacher's per-cycle
// waveform, adapted here to an end-of-run summary since spec.md §1
// explicitly excludes the statistics-formatting concern beyond naming what
// a report contains.
type Report struct {
	groups []group
}

type group struct {
	title string
	rows  []Row
}

// Add appends one named counter group (e.g. a bank's or memory tile's
// Counters struct, reflected into Rows by the caller).
func (r *Report) Add(title string, rows []Row) {
	r.groups = append(r.groups, group{title: title, rows: rows})
}

// WriteTo renders every group as a go-pretty table, one per component, the
// way core.PrintState renders its register/buffer tables.
func (r *Report) WriteTo(w io.Writer) {
	for _, g := range r.groups {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetTitle(g.title)
		t.AppendHeader(table.Row{"Counter", "Value"})
		for _, row := range g.rows {
			t.AppendRow(table.Row{row.Label, fmt.Sprint(row.Value)})
		}
		t.Render()
	}
}
