// Package summary renders the weekly pay summary as Markdown for the terminal.
package summary

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/nurpe/payroll-breakdowns/internal/model"
	"github.com/nurpe/payroll-breakdowns/internal/report"
)

func WriteMarkdown(w io.Writer, summary model.Summary) error {
	md := markdown.NewMarkdown(w)

	md.H1("Weekly technician summary " + summary.Date.Format("2006-01-02"))
	md.PlainText("")

	if len(summary.Lines) == 0 {
		md.PlainText("No breakdowns were generated.")
		md.PlainText("")
	} else {
		rows := make([][]string, 0, len(summary.Lines)+1)
		for _, line := range summary.Lines {
			rows = append(rows, []string{
				line.Technician,
				strconv.Itoa(line.Jobs),
				report.FormatUSD(line.JobAmount),
				report.FormatUSD(line.Charges),
				report.FormatUSD(line.Total),
			})
		}
		rows = append(rows, []string{"**Total**", "", "", "", "**" + report.FormatUSD(summary.GrandTotal) + "**"})
		md.Table(markdown.TableSet{
			Header: []string{"Technician", "Jobs", "Job pay", "Charges", "Total"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	writeNames(md, "Not in the technician list", summary.UnmatchedInFile)
	writeNames(md, "Not in the file", summary.UnmatchedInRegistry)

	return md.Build()
}

func writeNames(md *markdown.Markdown, title string, names []string) {
	if len(names) == 0 {
		return
	}
	md.H2(title)
	md.PlainText("")
	md.BulletList(names...)
	md.PlainText("")
}
