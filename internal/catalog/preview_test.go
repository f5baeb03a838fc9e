package catalog

import (
	"strings"
	"testing"
)

func previewDraft() Draft {
	return Draft{
		Title: "Headway",
		Sections: []SectionDraft{
			{
				SectionID:    "overview",
				SectionLabel: "Overview & Store",
				IntroText:    "Store **positioning** notes",
				SortOrder:    0,
			},
			{
				SectionID:    "onboarding",
				SectionLabel: "Onboarding",
				SortOrder:    1,
				Accordions: []AccordionDraft{
					{Title: "Quiz flow", Content: "Starts at [Screen 1], ends at [Screen 2]", SortOrder: 0, DefaultOpen: true},
					{Title: "Paywall", Content: "Token past strip: [Screen 9]", SortOrder: 1},
				},
				Screenshots: []ScreenshotDraft{
					{Ref: "ref-quiz", URL: "/uploads/quiz.png", SortOrder: 0},
					{Ref: "ref-paywall", URL: "/uploads/paywall.png", SortOrder: 1},
				},
			},
		},
	}
}

func TestRenderPreviewDefaultsToFirstSection(t *testing.T) {
	model := RenderPreview(previewDraft(), "", nil)

	if len(model.Tabs) != 2 {
		t.Fatalf("expected 2 tabs, got %d", len(model.Tabs))
	}
	if !model.Tabs[0].Active || model.Tabs[1].Active {
		t.Fatalf("expected first tab active by default")
	}
	if model.Active == nil || model.Active.SectionID != "overview" {
		t.Fatalf("expected overview active, got %+v", model.Active)
	}
	if !strings.Contains(model.Active.IntroHTML, "<strong>positioning</strong>") {
		t.Fatalf("expected markdown intro rendered, got %q", model.Active.IntroHTML)
	}
}

func TestRenderPreviewSwitchesSection(t *testing.T) {
	model := RenderPreview(previewDraft(), "onboarding", nil)

	if model.Active == nil || model.Active.SectionID != "onboarding" {
		t.Fatalf("expected onboarding active")
	}
	if len(model.Active.Screenshots) != 2 {
		t.Fatalf("expected 2 screenshots, got %d", len(model.Active.Screenshots))
	}
	if model.Active.Screenshots[0].Position != 1 || model.Active.Screenshots[1].Position != 2 {
		t.Fatalf("expected 1-based positions")
	}
}

func TestRenderPreviewAccordionOpenState(t *testing.T) {
	draft := previewDraft()

	model := RenderPreview(draft, "onboarding", nil)
	if !model.Active.Accordions[0].Open {
		t.Fatalf("expected DefaultOpen accordion to render open")
	}
	if model.Active.Accordions[1].Open {
		t.Fatalf("expected second accordion closed")
	}

	// Explicit state wins over DefaultOpen and is keyed by the stable id.
	key := AccordionKey("onboarding", "Quiz flow", 0)
	model = RenderPreview(draft, "onboarding", map[string]bool{key: false})
	if model.Active.Accordions[0].Open {
		t.Fatalf("expected explicitly closed accordion")
	}
	if model.Active.Accordions[0].ID != key {
		t.Fatalf("expected stable accordion id %q, got %q", key, model.Active.Accordions[0].ID)
	}
}

func TestRenderPreviewOpenStateFollowsDraftKeys(t *testing.T) {
	draft, err := NewDraft().AddAccordion(0)
	if err != nil {
		t.Fatalf("add accordion failed: %v", err)
	}
	draft, err = draft.AddAccordion(0)
	if err != nil {
		t.Fatalf("add accordion failed: %v", err)
	}

	// Two untitled accordions share a title and, after a remove/re-add
	// cycle, can share a sort order; the draft keys still address exactly
	// one panel each.
	first := draft.Sections[0].Accordions[0].Key
	second := draft.Sections[0].Accordions[1].Key

	model := RenderPreview(draft, "overview", map[string]bool{second: true})
	if model.Active.Accordions[0].Open {
		t.Fatalf("expected first accordion closed")
	}
	if !model.Active.Accordions[1].Open {
		t.Fatalf("expected second accordion open")
	}
	if model.Active.Accordions[0].ID != first || model.Active.Accordions[1].ID != second {
		t.Fatalf("expected preview ids to match draft keys")
	}
}

func TestRenderPreviewMissingSectionLeavesNoActivePane(t *testing.T) {
	model := RenderPreview(previewDraft(), "missing", nil)
	if model.Active != nil {
		t.Fatalf("expected no active section, got %+v", model.Active)
	}
	if len(model.Tabs) != 2 {
		t.Fatalf("expected tabs still rendered")
	}
}

func TestResolveScreenTokensLinksStableRefs(t *testing.T) {
	screenshots := []ScreenshotDraft{
		{Ref: "ref-quiz"},
		{Ref: "ref-paywall"},
	}

	resolved := ResolveScreenTokens("Start at [Screen 1], pay at [Screen 2]", screenshots)
	if !strings.Contains(resolved, "[Screen 1](#screen-ref-quiz)") {
		t.Fatalf("expected first token linked, got %q", resolved)
	}
	if !strings.Contains(resolved, "[Screen 2](#screen-ref-paywall)") {
		t.Fatalf("expected second token linked, got %q", resolved)
	}
}

func TestResolveScreenTokensLeavesOutOfRangeText(t *testing.T) {
	screenshots := []ScreenshotDraft{{Ref: "ref-quiz"}}

	resolved := ResolveScreenTokens("Broken link [Screen 4]", screenshots)
	if resolved != "Broken link [Screen 4]" {
		t.Fatalf("expected token untouched, got %q", resolved)
	}

	resolved = ResolveScreenTokens("No strip [Screen 1]", nil)
	if resolved != "No strip [Screen 1]" {
		t.Fatalf("expected token untouched without screenshots, got %q", resolved)
	}
}

func TestResolveScreenTokensTargetsRefAfterReorder(t *testing.T) {
	original := []ScreenshotDraft{
		{Ref: "ref-quiz"},
		{Ref: "ref-paywall"},
	}
	resolved := ResolveScreenTokens("[Screen 2]", original)
	if !strings.Contains(resolved, "#screen-ref-paywall") {
		t.Fatalf("expected link to paywall ref, got %q", resolved)
	}

	// A later swap of strip positions does not invalidate the emitted
	// anchor: it still matches the paywall screenshot's ref.
	reordered := []ScreenshotDraft{original[1], original[0]}
	if reordered[0].Ref != "ref-paywall" {
		t.Fatalf("expected ref to move with the screenshot")
	}
}
