package client

import (
	"consult-chat/domain"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
)

// WriteHistory dumps the timeline as a borderless table.
func WriteHistory(out io.Writer, messages []domain.Message) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Time", "From", "Kind", "Content"})
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

	for _, msg := range messages {
		content := msg.Text()
		if msg.Kind == domain.KindFile {
			content = describeAttachment(msg)
		}
		table.Append([]string{msg.Timestamp.Format(time.TimeOnly), msg.Sender, msg.Kind.String(), content})
	}
	table.Render()
}
