package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/get-rishabh/AutoLeads-Assignment/internal/profile"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema bounds the shapes accepted from the model. Fields may be absent or
// null; anything present must have the declared type.
const responseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "definitions": {
    "text": {"type": ["string", "null"]}
  },
  "properties": {
    "name": {"$ref": "#/definitions/text"},
    "headline": {"$ref": "#/definitions/text"},
    "location": {"$ref": "#/definitions/text"},
    "about": {"$ref": "#/definitions/text"},
    "current_position": {"$ref": "#/definitions/text"},
    "current_company": {"$ref": "#/definitions/text"},
    "experiences": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "title": {"$ref": "#/definitions/text"},
          "company": {"$ref": "#/definitions/text"},
          "duration": {"$ref": "#/definitions/text"}
        }
      }
    },
    "educations": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "school": {"$ref": "#/definitions/text"},
          "degree": {"$ref": "#/definitions/text"},
          "field": {"$ref": "#/definitions/text"}
        }
      }
    },
    "skills": {
      "type": ["array", "null"],
      "items": {"$ref": "#/definitions/text"}
    }
  }
}`

var compiledSchema = compileSchema()

func compileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("profile.json", strings.NewReader(responseSchema)); err != nil {
		panic(fmt.Sprintf("add profile schema: %v", err))
	}
	return c.MustCompile("profile.json")
}

type responseBody struct {
	Name            string               `json:"name"`
	Headline        string               `json:"headline"`
	Location        string               `json:"location"`
	About           string               `json:"about"`
	CurrentPosition string               `json:"current_position"`
	CurrentCompany  string               `json:"current_company"`
	Experiences     []profile.Experience `json:"experiences"`
	Educations      []profile.Education  `json:"educations"`
	Skills          []string             `json:"skills"`
}

// toRecord validates a decoded model response and converts it to a successful record.
func toRecord(v any, profileURL string) (profile.Record, error) {
	if err := compiledSchema.Validate(v); err != nil {
		return profile.Record{}, fmt.Errorf("response does not match schema: %w", err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return profile.Record{}, err
	}
	var body responseBody
	if err := json.Unmarshal(b, &body); err != nil {
		return profile.Record{}, fmt.Errorf("decode response: %w", err)
	}

	rec := profile.Record{
		ProfileURL:      profileURL,
		Name:            body.Name,
		Headline:        body.Headline,
		Location:        body.Location,
		About:           body.About,
		CurrentPosition: body.CurrentPosition,
		CurrentCompany:  body.CurrentCompany,
		Experiences:     body.Experiences,
		Educations:      body.Educations,
		Skills:          body.Skills,
	}
	rec.FillPlaceholders()
	return rec, nil
}
