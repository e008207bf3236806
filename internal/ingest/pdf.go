// Package ingest implements the two input lanes: LinkedIn profile PDFs
// parsed into role records, and program-office CSV exports bulk-loaded
// into staging tables.
package ingest

import (
	"regexp"
	"strings"

	"github.com/baratimohammad/2026-DSThesis/internal/model"
)

// Experience section boundaries in a LinkedIn profile export.
const experienceMarker = "Experience"

var sectionEndMarkers = map[string]bool{
	"Education":                 true,
	"Licenses & certifications": true,
	"Skills":                    true,
}

// A date line looks like "Jan 2021 - Present · 3 yrs" or
// "Sep 2018 - Jun 2020 · 1 yr 10 mos".
var dateLineRe = regexp.MustCompile(
	`^(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{4}\s*-\s*(Present|` +
		`(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{4})\s*·\s*.+$`)

var skipLines = map[string]bool{
	"Show all posts": true,
	"Show all":       true,
}

// SplitPages breaks raw pdftotext output into per-page text. pdftotext
// separates pages with a form feed.
func SplitPages(text string) []string {
	pages := strings.Split(text, "\f")
	// pdftotext emits a trailing form feed after the last page
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages
}

// PageLines splits each page into trimmed non-empty lines.
func PageLines(pages []string) [][]string {
	out := make([][]string, 0, len(pages))
	for _, page := range pages {
		var lines []string
		for _, ln := range strings.Split(page, "\n") {
			if t := strings.TrimSpace(ln); t != "" {
				lines = append(lines, t)
			}
		}
		out = append(out, lines)
	}
	return out
}

// ExperienceBlock returns the lines between the Experience heading and the
// next section heading, across page boundaries. An empty result means the
// profile has no recognizable experience section.
func ExperienceBlock(pagesLines [][]string) []string {
	inExp := false
	var block []string
	for _, lines := range pagesLines {
		for _, ln := range lines {
			if !inExp && ln == experienceMarker {
				inExp = true
				continue
			}
			if inExp {
				if sectionEndMarkers[ln] {
					return block
				}
				block = append(block, ln)
			}
		}
	}
	return block
}

// ParseExperience turns an experience block into role records. Each role is
// a title line, a company line (optionally "Company · Employment type"), a
// date line matching dateLineRe, and a location line. Lines that never
// reach a date line are discarded.
func ParseExperience(block []string) []model.RoleRecord {
	var roles []model.RoleRecord
	i := 0

	for i < len(block) {
		if skipLines[block[i]] {
			i++
			continue
		}

		title := block[i]
		var company, empType string

		if i+1 < len(block) {
			companyLine := block[i+1]
			if idx := strings.Index(companyLine, "·"); idx >= 0 {
				company = strings.TrimSpace(companyLine[:idx])
				empType = strings.TrimSpace(companyLine[idx+len("·"):])
			} else {
				company = companyLine
			}
		}

		j := i + 2
		for j < len(block) && !dateLineRe.MatchString(block[j]) {
			j++
		}
		if j >= len(block) {
			i++
			continue
		}

		dates := block[j]
		var location string
		if j+1 < len(block) {
			location = block[j+1]
		}
		i = j + 2

		roles = append(roles, model.RoleRecord{
			RoleIndex:      len(roles) + 1,
			Title:          title,
			Company:        company,
			EmploymentType: empType,
			Dates:          dates,
			Location:       location,
		})
	}
	return roles
}

// ParseProfileText runs the full parse over raw pdftotext output.
func ParseProfileText(text string) []model.RoleRecord {
	return ParseExperience(ExperienceBlock(PageLines(SplitPages(text))))
}
