package catalog

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// markdown renderer shared by preview projections. GFM covers the tables
// and task lists that appear in imported case-study prose.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
	),
)

// screenTokenPattern matches "[Screen N]" references in accordion markdown.
var screenTokenPattern = regexp.MustCompile(`\[Screen (\d+)\]`)

// PreviewModel is the pure projection of a draft the editor shows side by
// side with the form. Producing it never touches the datastore.
type PreviewModel struct {
	Title           string
	Category        string
	AppIcon         string
	Revenue         string
	Downloads       string
	BusinessModel   string
	FounderType     string
	Rating          float64
	OnboardingSteps int
	Tabs            []PreviewTab
	Active          *PreviewSection
}

// PreviewTab is one entry of the section tab strip.
type PreviewTab struct {
	SectionID    string
	SectionLabel string
	Active       bool
}

// PreviewSection is the expanded view of the active section.
type PreviewSection struct {
	SectionID    string
	SectionLabel string
	IntroHTML    string
	Accordions   []PreviewAccordion
	Screenshots  []PreviewScreenshot
}

// PreviewAccordion is one rendered accordion panel. ID is stable across
// reorders within a render pass so open/closed UI state keyed by it cannot
// drift onto a neighbouring panel.
type PreviewAccordion struct {
	ID       string
	Title    string
	BodyHTML string
	Open     bool
}

// PreviewScreenshot is one entry of the rendered screenshot strip.
// Position is the 1-based strip position that "[Screen N]" tokens address.
type PreviewScreenshot struct {
	Ref      string
	URL      string
	Title    string
	Position int
}

// RenderPreview projects a draft into the view the end user would see for
// the given active section. openAccordions tracks panels toggled open,
// keyed by the stable accordion id; accordions marked DefaultOpen render
// open unless explicitly closed there. Switching the active section is a
// pure state change, all sections are already present in the draft.
func RenderPreview(draft Draft, activeSectionID string, openAccordions map[string]bool) PreviewModel {
	model := PreviewModel{
		Title:           draft.Title,
		Category:        draft.Category,
		AppIcon:         draft.AppIcon,
		Revenue:         draft.Revenue,
		Downloads:       draft.Downloads,
		BusinessModel:   draft.BusinessModel,
		FounderType:     draft.FounderType,
		Rating:          draft.Rating,
		OnboardingSteps: draft.OnboardingSteps,
		Tabs:            make([]PreviewTab, 0, len(draft.Sections)),
	}

	if activeSectionID == "" && len(draft.Sections) > 0 {
		activeSectionID = draft.Sections[0].SectionID
	}

	var active *SectionDraft
	for i := range draft.Sections {
		section := &draft.Sections[i]
		isActive := section.SectionID == activeSectionID
		model.Tabs = append(model.Tabs, PreviewTab{
			SectionID:    section.SectionID,
			SectionLabel: section.SectionLabel,
			Active:       isActive,
		})
		if isActive && active == nil {
			active = section
		}
	}
	if active == nil {
		return model
	}

	rendered := &PreviewSection{
		SectionID:    active.SectionID,
		SectionLabel: active.SectionLabel,
		IntroHTML:    renderMarkdown(active.IntroText),
		Accordions:   make([]PreviewAccordion, 0, len(active.Accordions)),
		Screenshots:  make([]PreviewScreenshot, 0, len(active.Screenshots)),
	}

	for position, screenshot := range active.Screenshots {
		rendered.Screenshots = append(rendered.Screenshots, PreviewScreenshot{
			Ref:      screenshot.Ref,
			URL:      screenshot.URL,
			Title:    screenshot.Title,
			Position: position + 1,
		})
	}

	for _, accordion := range active.Accordions {
		id := accordion.Key
		if id == "" {
			id = AccordionKey(active.SectionID, accordion.Title, accordion.SortOrder)
		}
		open := accordion.DefaultOpen
		if explicit, ok := openAccordions[id]; ok {
			open = explicit
		}
		body := ResolveScreenTokens(accordion.Content, active.Screenshots)
		rendered.Accordions = append(rendered.Accordions, PreviewAccordion{
			ID:       id,
			Title:    accordion.Title,
			BodyHTML: renderMarkdown(body),
			Open:     open,
		})
	}

	model.Active = rendered
	return model
}

// AccordionKey derives a fallback identity for accordions that entered the
// draft without a key, combining the owning section, the title and the sort
// order. Accordions added through AddAccordion or loaded from storage carry
// a unique Key instead; only that key survives removes and re-adds without
// colliding.
func AccordionKey(sectionID, title string, sortOrder int) string {
	return fmt.Sprintf("%s/%d/%s", sectionID, sortOrder, title)
}

// ResolveScreenTokens rewrites "[Screen N]" references into links that
// target the Nth screenshot's stable ref. N addresses the current 1-based
// strip position; the emitted link carries the ref, so a later reorder of
// the strip moves the link target with the screenshot. Tokens pointing past
// the strip are left as plain text.
func ResolveScreenTokens(content string, screenshots []ScreenshotDraft) string {
	if content == "" || len(screenshots) == 0 {
		return content
	}
	return screenTokenPattern.ReplaceAllStringFunc(content, func(token string) string {
		digits := screenTokenPattern.FindStringSubmatch(token)[1]
		position, err := strconv.Atoi(digits)
		if err != nil || position < 1 || position > len(screenshots) {
			return token
		}
		ref := screenshots[position-1].Ref
		if ref == "" {
			return token
		}
		return fmt.Sprintf("[Screen %d](#screen-%s)", position, html.EscapeString(ref))
	})
}

func renderMarkdown(source string) string {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return html.EscapeString(source)
	}
	return buf.String()
}
