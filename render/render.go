// Package render turns a query's result sequence into terminal output.
// Every renderer treats Err entries as data: a broken record is shown and
// never terminates the output.
package render

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/veldt/estuary/res"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

// Format names accepted by the query command's --format flag
const (
	FormatTable = "table"
	FormatJSONL = "jsonl"
	FormatGPX   = "gpx"
)

// timeLayout is the display layout for record timestamps
const timeLayout = "2006-01-02 15:04:05"

// Table renders the sequence as an aligned table. Records implementing
// Describer get their own summary; others fall back to their Go
// representation.
func Table(w io.Writer, seq stream.Seq[source.Record]) error {
	data := pterm.TableData{{"TIME", "RECORD"}}
	for r := range seq {
		data = append(data, tableRow(r))
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out+"\n")
	return err
}

func tableRow(r res.Res[source.Record]) []string {
	if f := r.Failure(); f != nil {
		label := "ERROR"
		if f.Source != "" {
			label = "ERROR " + f.Source
		}
		return []string{label, f.Msg}
	}
	rec := r.Value()
	return []string{rec.Timestamp().UTC().Format(timeLayout), describe(rec)}
}

func describe(rec source.Record) string {
	if d, ok := rec.(source.Describer); ok {
		return d.Describe()
	}
	return fmt.Sprintf("%+v", rec)
}
