package profile

import "strings"

// NA is the sentinel for any field the model could not determine.
const NA = "N/A"

const (
	MaxExperiences = 5
	MaxEducations  = 3
	MaxSkills      = 15
)

type Experience struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Duration string `json:"duration"`
}

type Education struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Field  string `json:"field"`
}

// Record is the result of processing one profile URL.
//
// A failure record carries only ProfileURL, Success=false and Error.
type Record struct {
	ProfileURL string `json:"profile_url"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`

	Name            string       `json:"name,omitempty"`
	Headline        string       `json:"headline,omitempty"`
	Location        string       `json:"location,omitempty"`
	About           string       `json:"about,omitempty"`
	CurrentPosition string       `json:"current_position,omitempty"`
	CurrentCompany  string       `json:"current_company,omitempty"`
	Experiences     []Experience `json:"experiences,omitempty"`
	Educations      []Education  `json:"educations,omitempty"`
	Skills          []string     `json:"skills,omitempty"`
}

// Failure builds a failure record for url.
func Failure(url, msg string) Record {
	return Record{ProfileURL: url, Success: false, Error: msg}
}

// FillPlaceholders marks r successful and normalizes it: blank scalars become NA,
// collections are capped, and empty collections become a single NA entry.
func (r *Record) FillPlaceholders() {
	r.Success = true
	r.Error = ""

	for _, s := range []*string{&r.Name, &r.Headline, &r.Location, &r.About, &r.CurrentPosition, &r.CurrentCompany} {
		*s = orNA(*s)
	}

	exps := make([]Experience, 0, min(len(r.Experiences), MaxExperiences))
	for _, e := range r.Experiences {
		if len(exps) == MaxExperiences {
			break
		}
		exps = append(exps, Experience{Title: orNA(e.Title), Company: orNA(e.Company), Duration: orNA(e.Duration)})
	}
	if len(exps) == 0 {
		exps = []Experience{{Title: NA, Company: NA, Duration: NA}}
	}
	r.Experiences = exps

	edus := make([]Education, 0, min(len(r.Educations), MaxEducations))
	for _, e := range r.Educations {
		if len(edus) == MaxEducations {
			break
		}
		edus = append(edus, Education{School: orNA(e.School), Degree: orNA(e.Degree), Field: orNA(e.Field)})
	}
	if len(edus) == 0 {
		edus = []Education{{School: NA, Degree: NA, Field: NA}}
	}
	r.Educations = edus

	skills := make([]string, 0, min(len(r.Skills), MaxSkills))
	for _, s := range r.Skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len(skills) == MaxSkills {
			break
		}
		skills = append(skills, s)
	}
	if len(skills) == 0 {
		skills = []string{NA}
	}
	r.Skills = skills
}

func orNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NA
	}
	return s
}

// Stats summarizes a batch.
type Stats struct {
	Total      int
	Successful int
	Failed     int
}

// SuccessRate is the percentage of successful records, 0 for an empty batch.
func (s Stats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Total) * 100
}

func Summarize(records []Record) Stats {
	st := Stats{Total: len(records)}
	for _, r := range records {
		if r.Success {
			st.Successful++
		} else {
			st.Failed++
		}
	}
	return st
}
