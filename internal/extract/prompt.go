package extract

import "unicode/utf8"

// MaxPromptText is how much of the clean text is embedded in the prompt, in characters.
const MaxPromptText = 20000

const promptHeader = `You are a data extraction AI. Extract LinkedIn profile information from the text below.

IMPORTANT: You MUST return a valid JSON object with ALL these fields filled in (use the actual data from the profile):

{
  "name": "Person's full name from the profile",
  "headline": "Professional headline (what they do)",
  "location": "City, State/Country",
  "about": "Summary/About section text",
  "current_position": "Current job title",
  "current_company": "Current company name",
  "experiences": [
    {
      "title": "Job title",
      "company": "Company name",
      "duration": "Jan 2020 - Present"
    }
  ],
  "educations": [
    {
      "school": "University/School name",
      "degree": "Degree name",
      "field": "Field of study"
    }
  ],
  "skills": ["skill1", "skill2", "skill3"]
}

RULES:
- Extract ALL available information from the profile text
- For experiences: Include up to 5 most recent jobs
- For education: Include up to 3 schools
- For skills: Include up to 15 skills
- If a field is truly missing, use "N/A" for strings or [] for arrays
- Return ONLY the JSON object, no other text
- Do NOT use markdown code blocks
- Make sure the JSON is valid and parseable

PROFILE TEXT:
`

const promptFooter = `

JSON OUTPUT:`

// BuildPrompt embeds at most the first MaxPromptText characters of cleanText in the
// fixed extraction instruction.
func BuildPrompt(cleanText string) string {
	return promptHeader + truncate(cleanText, MaxPromptText) + promptFooter
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
