package analysis

// Schema is the subset of the OpenAPI schema object accepted as a
// response schema.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

func stringSchema(description string) *Schema {
	return &Schema{Type: "STRING", Description: description}
}

func arrayOf(items *Schema, description string) *Schema {
	return &Schema{Type: "ARRAY", Items: items, Description: description}
}

// ResultSchema mirrors session.AnalysisResult
func ResultSchema() *Schema {
	phase := &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"phaseName":   stringSchema("Short name of the phase"),
			"description": stringSchema("What happens in this phase"),
			"startTime":   stringSchema("Start of the phase as mm:ss"),
		},
		Required: []string{"phaseName", "description", "startTime"},
	}

	quality := &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"category": stringSchema("Thematic category"),
			"details":  stringSchema("How the category shows up in the interview"),
		},
		Required: []string{"category", "details"},
	}

	turn := &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"speaker":   {Type: "STRING", Description: "AI or Interviewee"},
			"text":      stringSchema("What the speaker said"),
			"startTime": {Type: "NUMBER", Description: "Seconds since the start of the interview"},
		},
		Required: []string{"speaker", "text", "startTime"},
	}

	return &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"summary":             stringSchema("One-paragraph summary of the interview"),
			"takeaways":           arrayOf(stringSchema(""), "Key takeaways"),
			"modalities":          arrayOf(stringSchema(""), "Modalities of experience expressed"),
			"phasesCount":         {Type: "INTEGER", Description: "Number of chronological phases"},
			"diachronicStructure": arrayOf(phase, "Chronological phases of the interview"),
			"synchronicStructure": arrayOf(quality, "Thematic categories across the interview"),
			"transcript":          arrayOf(turn, "The transcript split into speaker turns"),
		},
		Required: []string{
			"summary", "takeaways", "modalities", "phasesCount",
			"diachronicStructure", "synchronicStructure", "transcript",
		},
	}
}
