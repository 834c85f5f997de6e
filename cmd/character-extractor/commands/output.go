package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/menta2k/character-extractor/pkg/types"
)

// newTable returns a borderless left-aligned table writing to w
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

// printResult renders one row per crop and attribute, both sorted
func printResult(w io.Writer, result types.Result) {
	if len(result) == 0 {
		fmt.Fprintln(w, "No characters found")
		return
	}

	table := newTable(w, "Crop", "Attribute", "Value")
	crops := lo.Keys(result)
	sort.Strings(crops)
	for _, crop := range crops {
		attrs := result[crop]
		names := lo.Keys(attrs)
		sort.Strings(names)
		for _, name := range names {
			table.Append([]string{crop, name, attrs[name]})
		}
	}
	table.Render()
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSuccess writes a green status line. Colour is dropped when the
// terminal does not support it.
func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.New(color.FgGreen).Render(fmt.Sprintf(format, args...)))
}
