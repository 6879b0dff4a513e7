// Package export flattens profile records into the tabular report format.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/get-rishabh/AutoLeads-Assignment/internal/profile"
)

// ErrorName marks the Name column of a row produced from a failure record.
const ErrorName = "ERROR"

// Row is one line of the exported report.
type Row struct {
	Name            string
	Headline        string
	Location        string
	About           string
	CurrentPosition string
	CurrentCompany  string
	Experience      string
	Education       string
	Skills          string
	ProfileURL      string
}

// Header returns the stable column order for Row.
func Header() []string {
	return []string{
		"Name",
		"Headline",
		"Location",
		"About",
		"Current Position",
		"Current Company",
		"Experience",
		"Education",
		"Skills",
		"Profile URL",
	}
}

func (r Row) values() []string {
	return []string{
		r.Name,
		r.Headline,
		r.Location,
		r.About,
		r.CurrentPosition,
		r.CurrentCompany,
		r.Experience,
		r.Education,
		r.Skills,
		r.ProfileURL,
	}
}

// Rows converts records to report rows, one per record in order. A failure record
// becomes an ERROR row whose About column carries the failure message.
func Rows(records []profile.Record) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if !rec.Success {
			msg := rec.Error
			if strings.TrimSpace(msg) == "" {
				msg = "Unknown error"
			}
			rows = append(rows, Row{
				Name:            ErrorName,
				Headline:        profile.NA,
				Location:        profile.NA,
				About:           msg,
				CurrentPosition: profile.NA,
				CurrentCompany:  profile.NA,
				Experience:      profile.NA,
				Education:       profile.NA,
				Skills:          profile.NA,
				ProfileURL:      rec.ProfileURL,
			})
			continue
		}

		exps := make([]string, 0, len(rec.Experiences))
		for _, e := range rec.Experiences {
			exps = append(exps, fmt.Sprintf("%s at %s (%s)", e.Title, e.Company, e.Duration))
		}
		edus := make([]string, 0, len(rec.Educations))
		for _, e := range rec.Educations {
			edus = append(edus, fmt.Sprintf("%s - %s - %s", e.School, e.Degree, e.Field))
		}
		skills := profile.NA
		if len(rec.Skills) > 0 {
			skills = strings.Join(rec.Skills, ", ")
		}

		rows = append(rows, Row{
			Name:            rec.Name,
			Headline:        rec.Headline,
			Location:        rec.Location,
			About:           rec.About,
			CurrentPosition: rec.CurrentPosition,
			CurrentCompany:  rec.CurrentCompany,
			Experience:      strings.Join(exps, " | "),
			Education:       strings.Join(edus, " | "),
			Skills:          skills,
			ProfileURL:      rec.ProfileURL,
		})
	}
	return rows
}

// Filename returns "<prefix>_YYYYMMDD_HHMMSS.<ext>" for now. An empty prefix means
// "linkedin_profiles".
func Filename(prefix string, now time.Time, ext string) string {
	if strings.TrimSpace(prefix) == "" {
		prefix = "linkedin_profiles"
	}
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("20060102_150405"), strings.TrimPrefix(ext, "."))
}
