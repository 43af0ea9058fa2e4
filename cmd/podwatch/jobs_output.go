package main

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"podwatch/internal/ipc"
)

var labelCaser = cases.Title(language.English)

// displayLabel renders a wire identifier like "conversion" or "processing"
// as a human-facing label.
func displayLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return labelCaser.String(value)
}

func jobDetail(job ipc.Job) string {
	switch {
	case job.Error != "":
		return job.Error
	case job.ArtifactURL != "":
		return job.ArtifactURL
	default:
		return ""
	}
}

func buildJobRows(jobs []ipc.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		title := job.Title
		if title == "" {
			title = "-"
		}
		rows = append(rows, []string{
			displayLabel(job.Kind),
			job.ID,
			displayLabel(job.Status),
			title,
			job.ReceivedAt.Local().Format(time.Kitchen),
			jobDetail(job),
		})
	}
	return rows
}
