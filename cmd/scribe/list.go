package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"scribe/internal/jobs"
)

// renderJobsTable formats all jobs for the --list output.
func renderJobsTable(all []*jobs.Job) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Created", "Model", "Status", "Tasks", "Done", "Skipped", "Failed"})

	for _, job := range all {
		counts := job.TaskCounts()
		tw.AppendRow(table.Row{
			job.ID,
			job.CreatedAt.Local().Format(time.DateTime),
			job.Model,
			string(job.Status),
			counts.Total,
			counts.Completed,
			counts.Skipped,
			counts.Failed,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})

	if len(all) == 0 {
		return fmt.Sprintf("%s\nno jobs yet", tw.Render())
	}
	return tw.Render()
}

// renderJobsPlain is the tab-separated variant for non-interactive output.
func renderJobsPlain(all []*jobs.Job) string {
	var b strings.Builder
	b.WriteString("ID\tCreated\tModel\tStatus\tTasks\tDone\tSkipped\tFailed")
	for _, job := range all {
		counts := job.TaskCounts()
		fmt.Fprintf(&b, "\n%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d",
			job.ID,
			job.CreatedAt.Local().Format(time.DateTime),
			job.Model,
			string(job.Status),
			counts.Total,
			counts.Completed,
			counts.Skipped,
			counts.Failed,
		)
	}
	return b.String()
}
