package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"aerial/internal/api"
)

func buildRunStatusRows(stats api.RunStats) [][]string {
	buckets := []struct {
		label string
		count int
	}{
		{"Pending", stats.Pending},
		{"Processing", stats.Processing},
		{"Completed", stats.Completed},
		{"Failed", stats.Failed},
		{"Review", stats.Review},
	}

	rows := make([][]string, 0, len(buckets))
	for _, bucket := range buckets {
		if bucket.count == 0 {
			continue
		}
		rows = append(rows, []string{bucket.label, fmt.Sprintf("%d", bucket.count)})
	}
	return rows
}

func buildRunListRows(runs []api.Run) [][]string {
	if len(runs) == 0 {
		return nil
	}
	sorted := make([]api.Run, len(runs))
	copy(sorted, runs)

	sort.Slice(sorted, func(i, j int) bool {
		ti := parseRunTime(sorted[i].CreatedAt)
		tj := parseRunTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, run := range sorted {
		rows = append(rows, []string{
			fmt.Sprintf("%d", run.ID),
			run.Origin,
			formatStatusLabel(run.Status),
			formatProgress(run.Progress),
			formatDisplayTime(run.CreatedAt),
			fmt.Sprintf("%d", run.SelectedChannels),
		})
	}
	return rows
}

func formatProgress(progress api.RunProgress) string {
	stage := strings.TrimSpace(progress.Stage)
	if stage == "" {
		return "-"
	}
	return fmt.Sprintf("%s %d%%", stage, int(progress.Percent))
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t := parseRunTime(value); !t.IsZero() {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func parseRunTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
