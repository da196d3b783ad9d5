package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/crossfade/internal/models"
)

var _ list.Item = outcomeItem{}

// outcomeItem wraps [models.TrackOutcome] to implement [list.Item].
type outcomeItem struct {
	outcome models.TrackOutcome
}

func (i outcomeItem) FilterValue() string { return i.outcome.Source.Title }
func (i outcomeItem) Title() string {
	return fmt.Sprintf("%d. %s - %s", i.outcome.Index+1, i.outcome.Source.Artist, i.outcome.Source.Title)
}
func (i outcomeItem) Description() string {
	o := i.outcome
	switch o.Kind {
	case models.OutcomeMatched:
		return fmt.Sprintf("matched • %s - %s (%s, %.0f%%)", o.Matched.Artist, o.Matched.Title, o.Method, o.Confidence*100)
	case models.OutcomeUnmatched:
		return "not found on destination"
	case models.OutcomeError:
		return "error • " + o.Error
	default:
		return string(o.Kind)
	}
}

// outcomeItems orders unmatched and failed tracks first so they are visible without scrolling.
func outcomeItems(outcomes []models.TrackOutcome) []list.Item {
	items := make([]list.Item, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Kind != models.OutcomeMatched {
			items = append(items, outcomeItem{outcome: o})
		}
	}
	for _, o := range outcomes {
		if o.Kind == models.OutcomeMatched && o.Matched != nil {
			items = append(items, outcomeItem{outcome: o})
		}
	}
	return items
}
