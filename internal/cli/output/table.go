package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by view types that know their tabular
// shape. Views live next to the commands that print them.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// PrintTable renders data as a borderless, left-aligned table in the
// kubectl style: an upper-cased header line and two-space gutters.
func PrintTable(w io.Writer, data TableRenderer) error {
	t := tablewriter.NewWriter(w)
	t.SetHeader(data.Headers())
	t.SetAutoFormatHeaders(true)
	t.SetAutoWrapText(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetBorder(false)
	t.SetHeaderLine(false)
	t.SetRowSeparator("")
	t.SetColumnSeparator("")
	t.SetCenterSeparator("")
	t.SetTablePadding("  ")
	t.SetNoWhiteSpace(true)
	t.AppendBulk(data.Rows())
	t.Render()
	return nil
}
