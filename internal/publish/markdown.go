// Package publish renders a timeline as a standalone markdown
// document, suitable for a keepsake export or pasting into notes.
package publish

import (
	"bytes"
	"fmt"
	"strings"

	"babysteps/internal/model"
	"babysteps/internal/timeline"
)

func RenderTimelineMarkdown(tl *model.Timeline) (string, error) {
	if tl == nil {
		return "", fmt.Errorf("missing timeline")
	}

	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	name := strings.TrimSpace(tl.BabyName)
	if name == "" {
		name = "Baby"
	}
	writeLn("# " + name + "'s Journey")
	writeLn("")
	writeLn("Born " + timeline.FormatDate(tl.BirthDate))
	writeLn("")

	items := timeline.SortByDate(tl.Items)
	if len(items) == 0 {
		writeLn("_No milestones yet._")
		return buf.String(), nil
	}

	counts := timeline.CountByCategory(items)
	writeLn(fmt.Sprintf("%d milestones so far.", counts.All))
	writeLn("")

	for _, m := range items {
		writeLn("## " + timeline.Icon(m.Category) + " " + strings.TrimSpace(m.Title))
		writeLn("")
		writeLn("- Date: " + timeline.FormatDate(m.Date))
		if m.Category != model.CategoryNone {
			writeLn("- Category: " + timeline.Label(m.Category))
		}
		if strings.TrimSpace(m.Photo) != "" && !strings.HasPrefix(m.Photo, "data:") {
			writeLn("- Photo: " + m.Photo)
		}
		writeLn("")
		desc := strings.TrimSpace(m.Description)
		if desc != "" {
			writeLn(desc)
			writeLn("")
		}
	}
	return buf.String(), nil
}
