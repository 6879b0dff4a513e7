package extract_test

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/get-rishabh/AutoLeads-Assignment/internal/extract"
)

func TestStripFraming(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "json fence", in: "```json\n{\"name\":\"A\"}\n```", want: `{"name":"A"}`},
		{name: "bare fence", in: "```\n{\"name\":\"A\"}\n```", want: `{"name":"A"}`},
		{name: "fence with trailing prose", in: "Here you go:\n```json\n{\"name\":\"A\"}\n```\nHope that helps", want: `{"name":"A"}`},
		{name: "leading and trailing commentary", in: `Sure! {"name":"A"} -- done`, want: `{"name":"A"}`},
		{name: "no braces", in: "  nothing here  ", want: "nothing here"},
		{name: "nested objects keep last brace", in: `x {"a":{"b":1}} y`, want: `{"a":{"b":1}}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := extract.StripFraming(tt.in); got != tt.want {
				t.Fatalf("StripFraming(%q)=%q want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRepair_FixesQuotesAndTrailingCommas(t *testing.T) {
	t.Parallel()

	in := `{'name': 'A', 'skills': ['Go', 'SQL',], 'x': {"y": 1,},}`
	got := extract.Repair(in)

	var v map[string]any
	if err := json.Unmarshal([]byte(got), &v); err != nil {
		t.Fatalf("repaired text does not parse: %v (%s)", err, got)
	}
	if v["name"] != "A" {
		t.Fatalf("name=%v", v["name"])
	}
	skills, _ := v["skills"].([]any)
	if len(skills) != 2 {
		t.Fatalf("skills=%v", v["skills"])
	}
}

func TestRepair_IsIdentityOnValidJSON(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`{"name":"Sinéad O'Brien","about":"Likes {braces}, [brackets], and commas ,}"}`,
		`{"skills":["C++","Go"],"experiences":[{"title":"Dev","company":"A, Inc.","duration":"2020 - Present"}]}`,
		`{"escaped":"quote \" and backslash \\","n":null}`,
		`[]`,
	}
	for _, in := range inputs {
		var want any
		if err := json.Unmarshal([]byte(in), &want); err != nil {
			t.Fatalf("bad fixture %q: %v", in, err)
		}
		out := extract.Repair(in)
		if out != in {
			t.Fatalf("Repair changed valid JSON:\n in=%s\nout=%s", in, out)
		}
		var got any
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("unmarshal repaired: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("parsed value changed: %#v vs %#v", got, want)
		}
	}
}

func TestBuildPrompt_TruncatesText(t *testing.T) {
	t.Parallel()

	text := make([]rune, extract.MaxPromptText+10)
	for i := range text {
		text[i] = 'é'
	}
	text[extract.MaxPromptText] = '§'
	p := extract.BuildPrompt(string(text))

	if !strings.Contains(p, "PROFILE TEXT:\n") || !strings.Contains(p, "JSON OUTPUT:") {
		t.Fatalf("prompt missing framing")
	}
	if strings.Contains(p, "§") {
		t.Fatalf("prompt should hold only the first %d characters", extract.MaxPromptText)
	}
	for _, want := range []string{"up to 5", "up to 3", "up to 15", `"N/A"`, "Do NOT use markdown code blocks"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}
