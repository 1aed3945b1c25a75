package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
)

// SteamDeckHQ publishes long editorial reviews; fed whole into a 2-3 sentence
// summary they drown out the short community notes, so that source is
// excluded from the summary input on purpose.
const excludedSummarySource = domain.SourceSteamDeckHQ

const summaryInstruction = "Summarize the following Steam Deck performance reports in 2-3 sentences. " +
	"Do not mention the game's name and do not add a title line. " +
	"Focus on performance and technical aspects: frame rates, settings, battery, stability."

// BuildSummaryInput selects and orders the notes fed to the summarizer:
// non-empty notes only, the excluded source dropped, newest first with
// undated reports last.
func BuildSummaryInput(reports []domain.ReportBody) string {
	selected := make([]domain.ReportBody, 0, len(reports))
	for _, report := range reports {
		if report.Source == excludedSummarySource {
			continue
		}
		if strings.TrimSpace(report.Notes) == "" {
			continue
		}
		selected = append(selected, report)
	}
	if len(selected) == 0 {
		return ""
	}

	domain.SortReportsByPostedAt(selected)

	parts := make([]string, len(selected))
	for i, report := range selected {
		parts[i] = fmt.Sprintf("Report %d: \n%s", i+1, report.Notes)
	}
	return strings.Join(parts, "\n\n")
}

// SummaryPrompt renders the full prompt for the external model.
func SummaryPrompt(input string) string {
	return summaryInstruction + "\n\n" + input
}

var (
	summaryLeadingLabel = regexp.MustCompile(`(?i)^\s*summary:\s*`)
	whitespaceRuns      = regexp.MustCompile(`\s+`)
)

// CleanSummary normalizes a raw model response into one plain sentence block:
// a leading "Summary:" label goes, whitespace runs collapse to single spaces,
// and a leading markdown heading marker is dropped.
func CleanSummary(text string) string {
	text = summaryLeadingLabel.ReplaceAllString(text, "")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	text = strings.TrimPrefix(strings.TrimSpace(text), "#")
	return strings.TrimSpace(text)
}
