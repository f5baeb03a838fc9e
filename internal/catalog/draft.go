package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrIndexOutOfRange indicates a draft mutation addressed a missing element.
var ErrIndexOutOfRange = errors.New("catalog: draft index out of range")

// Draft is the in-progress editor state for one case study: the scalar
// fields plus the ordered section tree. All mutating operations return a
// new Draft with the affected slice path copied, so a caller holding the
// previous value (the preview renderer) never observes the change.
type Draft struct {
	Slug            string
	Title           string
	Category        string
	Revenue         string
	Downloads       string
	FounderType     string
	BusinessModel   string
	IsFree          bool
	Description     string
	AppIcon         string
	Rating          float64
	OnboardingSteps int
	Developer       string
	Content         string
	Sections        []SectionDraft
}

// SectionDraft is one editable section with its ordered children.
type SectionDraft struct {
	SectionID    string
	SectionLabel string
	IntroText    string
	SortOrder    int
	Accordions   []AccordionDraft
	Screenshots  []ScreenshotDraft
}

// AccordionDraft is one editable accordion block. Key is the draft-unique
// identity UI open state is keyed by; it is assigned when the accordion
// enters the draft and is never persisted. Title and sort order can repeat
// after removes and re-adds, so neither is usable as identity.
type AccordionDraft struct {
	Key         string
	Title       string
	Content     string
	DefaultOpen bool
	SortOrder   int
}

// ScreenshotDraft is one editable screenshot strip entry.
type ScreenshotDraft struct {
	Ref       string
	URL       string
	Title     string
	SortOrder int
}

// DefaultSections returns the five sections seeded into every new draft.
func DefaultSections() []SectionDraft {
	return []SectionDraft{
		{SectionID: "overview", SectionLabel: "Overview & Store", SortOrder: 0},
		{SectionID: "onboarding", SectionLabel: "Onboarding", SortOrder: 1},
		{SectionID: "home", SectionLabel: "Home & Navigation", SortOrder: 2},
		{SectionID: "features", SectionLabel: "Core Features", SortOrder: 3},
		{SectionID: "monetization", SectionLabel: "Monetization", SortOrder: 4},
	}
}

// NewDraft returns an empty draft seeded with the default sections.
func NewDraft() Draft {
	return Draft{Sections: DefaultSections()}
}

// DraftFromCaseStudy loads a stored case study into editable draft state.
func DraftFromCaseStudy(study *CaseStudy) Draft {
	draft := Draft{
		Slug:            study.Slug,
		Title:           study.Title,
		Category:        study.Category,
		Revenue:         study.Revenue,
		Downloads:       study.Downloads,
		FounderType:     study.FounderType,
		BusinessModel:   study.BusinessModel,
		IsFree:          study.IsFree,
		Description:     study.Description,
		AppIcon:         study.AppIcon,
		Rating:          study.Rating,
		OnboardingSteps: study.OnboardingSteps,
		Developer:       study.Developer,
		Content:         study.Content,
		Sections:        make([]SectionDraft, 0, len(study.Sections)),
	}
	for _, section := range study.Sections {
		sectionDraft := SectionDraft{
			SectionID:    section.SectionID,
			SectionLabel: section.SectionLabel,
			IntroText:    section.IntroText,
			SortOrder:    section.SortOrder,
			Accordions:   make([]AccordionDraft, 0, len(section.Accordions)),
			Screenshots:  make([]ScreenshotDraft, 0, len(section.Screenshots)),
		}
		for _, accordion := range section.Accordions {
			sectionDraft.Accordions = append(sectionDraft.Accordions, AccordionDraft{
				Key:         accordion.ID,
				Title:       accordion.Title,
				Content:     accordion.Content,
				DefaultOpen: accordion.DefaultOpen,
				SortOrder:   accordion.SortOrder,
			})
		}
		for _, screenshot := range section.Screenshots {
			sectionDraft.Screenshots = append(sectionDraft.Screenshots, ScreenshotDraft{
				Ref:       screenshot.Ref,
				URL:       screenshot.URL,
				Title:     screenshot.Title,
				SortOrder: screenshot.SortOrder,
			})
		}
		draft.Sections = append(draft.Sections, sectionDraft)
	}
	return draft
}

// AddSection appends an empty section after the current last one.
func (d Draft) AddSection(sectionID, label string) Draft {
	sections := copySections(d.Sections)
	sections = append(sections, SectionDraft{
		SectionID:    sectionID,
		SectionLabel: label,
		SortOrder:    len(sections),
	})
	d.Sections = sections
	return d
}

// RemoveSection drops the section at the given index.
func (d Draft) RemoveSection(sectionIndex int) (Draft, error) {
	if sectionIndex < 0 || sectionIndex >= len(d.Sections) {
		return d, fmt.Errorf("%w: section %d", ErrIndexOutOfRange, sectionIndex)
	}
	sections := copySections(d.Sections)
	sections = append(sections[:sectionIndex], sections[sectionIndex+1:]...)
	d.Sections = sections
	return d, nil
}

// AddAccordion appends an empty accordion to the addressed section.
func (d Draft) AddAccordion(sectionIndex int) (Draft, error) {
	if sectionIndex < 0 || sectionIndex >= len(d.Sections) {
		return d, fmt.Errorf("%w: section %d", ErrIndexOutOfRange, sectionIndex)
	}
	sections := copySections(d.Sections)
	section := &sections[sectionIndex]
	section.Accordions = append(copyAccordions(section.Accordions), AccordionDraft{
		Key:       uuid.NewString(),
		SortOrder: len(section.Accordions),
	})
	d.Sections = sections
	return d, nil
}

// RemoveAccordion drops one accordion from the addressed section.
func (d Draft) RemoveAccordion(sectionIndex, accordionIndex int) (Draft, error) {
	if sectionIndex < 0 || sectionIndex >= len(d.Sections) {
		return d, fmt.Errorf("%w: section %d", ErrIndexOutOfRange, sectionIndex)
	}
	if accordionIndex < 0 || accordionIndex >= len(d.Sections[sectionIndex].Accordions) {
		return d, fmt.Errorf("%w: accordion %d", ErrIndexOutOfRange, accordionIndex)
	}
	sections := copySections(d.Sections)
	section := &sections[sectionIndex]
	accordions := copyAccordions(section.Accordions)
	section.Accordions = append(accordions[:accordionIndex], accordions[accordionIndex+1:]...)
	d.Sections = sections
	return d, nil
}

// AddScreenshot appends an empty screenshot placeholder to the addressed
// section. Ref is left blank; the repository assigns one on save.
func (d Draft) AddScreenshot(sectionIndex int) (Draft, error) {
	if sectionIndex < 0 || sectionIndex >= len(d.Sections) {
		return d, fmt.Errorf("%w: section %d", ErrIndexOutOfRange, sectionIndex)
	}
	sections := copySections(d.Sections)
	section := &sections[sectionIndex]
	section.Screenshots = append(copyScreenshots(section.Screenshots), ScreenshotDraft{
		SortOrder: len(section.Screenshots),
	})
	d.Sections = sections
	return d, nil
}

// RemoveScreenshot drops one screenshot from the addressed section.
func (d Draft) RemoveScreenshot(sectionIndex, screenshotIndex int) (Draft, error) {
	if sectionIndex < 0 || sectionIndex >= len(d.Sections) {
		return d, fmt.Errorf("%w: section %d", ErrIndexOutOfRange, sectionIndex)
	}
	if screenshotIndex < 0 || screenshotIndex >= len(d.Sections[sectionIndex].Screenshots) {
		return d, fmt.Errorf("%w: screenshot %d", ErrIndexOutOfRange, screenshotIndex)
	}
	sections := copySections(d.Sections)
	section := &sections[sectionIndex]
	screenshots := copyScreenshots(section.Screenshots)
	section.Screenshots = append(screenshots[:screenshotIndex], screenshots[screenshotIndex+1:]...)
	d.Sections = sections
	return d, nil
}

// SetSectionIntro replaces the intro text of the addressed section.
func (d Draft) SetSectionIntro(sectionIndex int, introText string) (Draft, error) {
	if sectionIndex < 0 || sectionIndex >= len(d.Sections) {
		return d, fmt.Errorf("%w: section %d", ErrIndexOutOfRange, sectionIndex)
	}
	sections := copySections(d.Sections)
	sections[sectionIndex].IntroText = introText
	d.Sections = sections
	return d, nil
}

// SetAccordion replaces the addressed accordion's editable fields while
// preserving its draft key.
func (d Draft) SetAccordion(sectionIndex, accordionIndex int, accordion AccordionDraft) (Draft, error) {
	if sectionIndex < 0 || sectionIndex >= len(d.Sections) {
		return d, fmt.Errorf("%w: section %d", ErrIndexOutOfRange, sectionIndex)
	}
	if accordionIndex < 0 || accordionIndex >= len(d.Sections[sectionIndex].Accordions) {
		return d, fmt.Errorf("%w: accordion %d", ErrIndexOutOfRange, accordionIndex)
	}
	sections := copySections(d.Sections)
	accordions := copyAccordions(sections[sectionIndex].Accordions)
	if accordion.Key == "" {
		accordion.Key = accordions[accordionIndex].Key
	}
	accordions[accordionIndex] = accordion
	sections[sectionIndex].Accordions = accordions
	d.Sections = sections
	return d, nil
}

// SetScreenshot replaces the addressed screenshot's editable fields while
// preserving its stable ref.
func (d Draft) SetScreenshot(sectionIndex, screenshotIndex int, screenshot ScreenshotDraft) (Draft, error) {
	if sectionIndex < 0 || sectionIndex >= len(d.Sections) {
		return d, fmt.Errorf("%w: section %d", ErrIndexOutOfRange, sectionIndex)
	}
	if screenshotIndex < 0 || screenshotIndex >= len(d.Sections[sectionIndex].Screenshots) {
		return d, fmt.Errorf("%w: screenshot %d", ErrIndexOutOfRange, screenshotIndex)
	}
	sections := copySections(d.Sections)
	screenshots := copyScreenshots(sections[sectionIndex].Screenshots)
	if screenshot.Ref == "" {
		screenshot.Ref = screenshots[screenshotIndex].Ref
	}
	screenshots[screenshotIndex] = screenshot
	sections[sectionIndex].Screenshots = screenshots
	d.Sections = sections
	return d, nil
}

// Normalize reassigns contiguous sort orders at every nesting level so the
// rendering order is unambiguous after adds and removes.
func (d Draft) Normalize() Draft {
	sections := copySections(d.Sections)
	for i := range sections {
		sections[i].SortOrder = i
		accordions := copyAccordions(sections[i].Accordions)
		for j := range accordions {
			accordions[j].SortOrder = j
		}
		sections[i].Accordions = accordions
		screenshots := copyScreenshots(sections[i].Screenshots)
		for j := range screenshots {
			screenshots[j].SortOrder = j
		}
		sections[i].Screenshots = screenshots
	}
	d.Sections = sections
	return d
}

// Validate checks the scalar invariants before a save.
func (d Draft) Validate() error {
	if _, err := NewSlug(d.Slug); err != nil {
		return err
	}
	if d.Rating < 0 || d.Rating > 5 {
		return fmt.Errorf("%w: %.1f", ErrInvalidRating, d.Rating)
	}
	if d.OnboardingSteps < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOnboardingSteps, d.OnboardingSteps)
	}
	return nil
}

// Input serializes the draft into the repository's write shape.
func (d Draft) Input() Input {
	input := Input{
		Slug:            d.Slug,
		Title:           d.Title,
		Category:        d.Category,
		Revenue:         d.Revenue,
		Downloads:       d.Downloads,
		FounderType:     d.FounderType,
		BusinessModel:   d.BusinessModel,
		IsFree:          d.IsFree,
		Description:     d.Description,
		AppIcon:         d.AppIcon,
		Rating:          d.Rating,
		OnboardingSteps: d.OnboardingSteps,
		Developer:       d.Developer,
		Content:         d.Content,
		Sections:        make([]SectionInput, 0, len(d.Sections)),
	}
	for _, section := range d.Sections {
		sectionInput := SectionInput{
			SectionID:    section.SectionID,
			SectionLabel: section.SectionLabel,
			IntroText:    section.IntroText,
			SortOrder:    section.SortOrder,
			Accordions:   make([]AccordionInput, 0, len(section.Accordions)),
			Screenshots:  make([]ScreenshotInput, 0, len(section.Screenshots)),
		}
		for _, accordion := range section.Accordions {
			sectionInput.Accordions = append(sectionInput.Accordions, AccordionInput{
				Title:       accordion.Title,
				Content:     accordion.Content,
				DefaultOpen: accordion.DefaultOpen,
				SortOrder:   accordion.SortOrder,
			})
		}
		for _, screenshot := range section.Screenshots {
			sectionInput.Screenshots = append(sectionInput.Screenshots, ScreenshotInput(screenshot))
		}
		input.Sections = append(input.Sections, sectionInput)
	}
	return input
}

func copySections(sections []SectionDraft) []SectionDraft {
	copied := make([]SectionDraft, len(sections))
	copy(copied, sections)
	return copied
}

func copyAccordions(accordions []AccordionDraft) []AccordionDraft {
	copied := make([]AccordionDraft, len(accordions))
	copy(copied, accordions)
	return copied
}

func copyScreenshots(screenshots []ScreenshotDraft) []ScreenshotDraft {
	copied := make([]ScreenshotDraft, len(screenshots))
	copy(copied, screenshots)
	return copied
}
