package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"meetscribe/internal/model"
)

// Export formats for a meeting record.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ExportJSON renders the full meeting record, summary included, as
// indented JSON. The output round-trips back into model.Meeting.
func ExportJSON(m *model.Meeting) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// ExportMarkdown renders the meeting as a readable Markdown document.
func ExportMarkdown(m *model.Meeting) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", m.Title)
	fmt.Fprintf(&b, "- **Date:** %s\n", m.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "- **Duration:** %s\n", formatDuration(m.Duration))
	fmt.Fprintf(&b, "- **Status:** %s\n", m.Status)
	if len(m.Participants) > 0 {
		names := make([]string, len(m.Participants))
		for i, p := range m.Participants {
			names[i] = p.Name
		}
		fmt.Fprintf(&b, "- **Participants:** %s\n", strings.Join(names, ", "))
	}
	if len(m.Tags) > 0 {
		names := make([]string, len(m.Tags))
		for i, tag := range m.Tags {
			names[i] = tag.Name
		}
		fmt.Fprintf(&b, "- **Tags:** %s\n", strings.Join(names, ", "))
	}

	if m.Summary != nil {
		writeSection(&b, "Key Points", m.Summary.KeyPoints)
		writeSection(&b, "Decisions", m.Summary.Decisions)
		writeSection(&b, "Action Items", m.Summary.ActionItems)
		if m.Summary.Transcript != "" {
			b.WriteString("\n## Transcript\n\n")
			b.WriteString(m.Summary.Transcript)
			b.WriteString("\n")
		}
	}

	return []byte(b.String())
}

// ExportFilename derives a download filename from the meeting title.
func ExportFilename(m *model.Meeting, format string) string {
	ext := ".json"
	if format == FormatMarkdown {
		ext = ".md"
	}
	slug := slugPattern.ReplaceAllString(strings.ToLower(m.Title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "meeting"
	}
	return slug + ext
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func writeSection(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "unknown"
	}
	m := seconds / 60
	s := seconds % 60
	if m == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dm %02ds", m, s)
}
