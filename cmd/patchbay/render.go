package main

import (
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/output"
)

// renderResult writes a vendor result. JSON mode passes the vendor body
// through; human mode renders lists as tables and objects as key/value
// pairs of the operation's columns.
func renderResult(printer *output.Printer, result *connector.Result) error {
	if printer.IsJSON() {
		return renderJSON(printer, result)
	}

	switch {
	case result.Empty():
		renderStatus(printer, result)
	case result.IsList():
		renderList(printer, result)
	default:
		return renderObject(printer, result)
	}
	return nil
}

func renderJSON(printer *output.Printer, result *connector.Result) error {
	if !result.Empty() {
		return printer.WriteJSON(result.Body)
	}
	data := map[string]any{"status": result.Status}
	if result.ID != "" {
		data["id"] = result.ID
	}
	return printer.WriteJSON(data)
}

func renderStatus(printer *output.Printer, result *connector.Result) {
	msg := fmt.Sprintf("%s: %d %s", result.Target.Name(), result.Status, http.StatusText(result.Status))
	if result.ID != "" {
		msg += " (id " + result.ID + ")"
	}
	_ = printer.Success(map[string]any{"message": msg})
}

func renderList(printer *output.Printer, result *connector.Result) {
	if len(result.Items) == 0 {
		printer.Println("No results.")
		return
	}

	columns := result.Columns()
	if len(columns) == 0 {
		rows := make([][]string, 0, len(result.Items))
		for _, s := range result.Summaries() {
			rows = append(rows, []string{s.ID, s.Name})
		}
		printer.Table([]string{"ID", "NAME"}, rows)
	} else {
		headers := make([]string, 0, len(columns))
		for _, c := range columns {
			headers = append(headers, c.Header)
		}
		printer.Table(headers, result.Rows())
	}

	if result.Pages > 1 {
		printer.Stderr("%s items across %d pages\n", humanize.Comma(int64(len(result.Items))), result.Pages)
	}
}

func renderObject(printer *output.Printer, result *connector.Result) error {
	obj := result.Object()
	columns := result.Columns()
	if obj == nil || len(columns) == 0 {
		return printer.WriteJSON(result.Body)
	}
	for _, c := range columns {
		printer.KeyValue(c.Header, c.Render(obj))
	}
	if result.ID != "" {
		printer.KeyValue("ID", result.ID)
	}
	return nil
}
