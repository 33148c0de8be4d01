package app

import (
	"strings"

	"healthmate/pkg/domain"
)

type summarySection int

const (
	sectionNone summarySection = iota
	sectionEnglish
	sectionUrdu
	sectionFindings
	sectionQuestions
	sectionMetrics
)

// parseSummarySections pulls structured fields out of the model's free-form
// answer. English always carries the verbatim response; the remaining fields
// are a best-effort reading of its sections and stay empty when the model
// did not follow the requested layout.
func parseSummarySections(raw string) domain.Summary {
	summary := domain.Summary{English: strings.TrimSpace(raw)}
	current := sectionNone
	var urdu []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if section, ok := classifyHeader(line); ok {
			current = section
			continue
		}
		switch current {
		case sectionUrdu:
			urdu = append(urdu, line)
		case sectionFindings:
			if item := stripListMarker(line); item != "" {
				summary.KeyFindings = append(summary.KeyFindings, item)
			}
		case sectionQuestions:
			if item := stripListMarker(line); item != "" {
				summary.DoctorQuestions = append(summary.DoctorQuestions, item)
			}
		case sectionMetrics:
			applyMetric(&summary.HealthMetrics, stripListMarker(line))
		}
	}

	summary.Urdu = strings.Join(urdu, " ")
	return summary
}

func classifyHeader(line string) (summarySection, bool) {
	header := strings.ToLower(stripListMarker(line))
	header = strings.Trim(header, "*#: ")
	// Headers are short; a long line mentioning "summary" is body text.
	if len(header) > 60 {
		return sectionNone, false
	}
	switch {
	case strings.Contains(header, "english summary"):
		return sectionEnglish, true
	case strings.Contains(header, "urdu"):
		return sectionUrdu, true
	case strings.Contains(header, "finding"):
		return sectionFindings, true
	case strings.Contains(header, "question"):
		return sectionQuestions, true
	case strings.Contains(header, "health metric") || header == "metrics":
		return sectionMetrics, true
	}
	return sectionNone, false
}

// stripListMarker removes leading bullets and numbering like "- ", "* ",
// "1. " or "3)" from a line.
func stripListMarker(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-*•")
	trimmed := strings.TrimLeft(line, "0123456789")
	if trimmed != line && len(trimmed) > 0 && (trimmed[0] == '.' || trimmed[0] == ')') {
		line = trimmed[1:]
	}
	return strings.TrimSpace(line)
}

func applyMetric(metrics *domain.HealthMetrics, line string) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	switch normalized := strings.ToLower(strings.TrimSpace(key)); {
	case strings.Contains(normalized, "bp") || strings.Contains(normalized, "blood pressure"):
		metrics.BP = value
	case strings.Contains(normalized, "sugar") || strings.Contains(normalized, "glucose"):
		metrics.Sugar = value
	case strings.Contains(normalized, "weight"):
		metrics.Weight = value
	case strings.Contains(normalized, "pulse") || strings.Contains(normalized, "heart rate"):
		metrics.Pulse = value
	}
}
