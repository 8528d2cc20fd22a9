package commands

import (
	"io"
	"path/filepath"

	"appreviews/internal/batch"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func renderSummary(w io.Writer, s *batch.Summary, outputDir string) {
	t := newTable(w)
	t.SetTitle("Run " + s.Timestamp)
	t.AppendHeader(table.Row{"App", "ID", "Pages", "Reviews", "File", "Error"})
	for _, a := range s.Apps {
		var file, errText string
		if a.File != "" {
			file = filepath.Join(outputDir, a.File)
		}
		if a.Err != nil {
			errText = a.Err.Error()
		}
		t.AppendRow(table.Row{a.App.AppName, a.App.AppID, a.Pages, a.Reviews, file, errText})
	}

	var master string
	if s.MasterFile != "" {
		master = filepath.Join(outputDir, s.MasterFile)
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"all", "", "", s.Rows, master, ""})
	t.Render()
}
