package generator

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/p-n-ai/pai-quiz/internal/ai"
	"github.com/p-n-ai/pai-quiz/internal/question"
)

var stringProp = map[string]any{"type": "string"}

// Every property is required and no extras are allowed so the same
// definition can be sent as a strict structured-output schema.
var choiceSchema = &ai.Schema{
	Name: "multiple_choice_question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": stringProp,
			"options": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text":       stringProp,
						"is_correct": map[string]any{"type": "boolean"},
					},
					"required":             []any{"text", "is_correct"},
					"additionalProperties": false,
				},
			},
			"explanation": stringProp,
			"difficulty":  stringProp,
			"subject":     stringProp,
			"topic":       stringProp,
		},
		"required":             []any{"question", "options", "explanation", "difficulty", "subject", "topic"},
		"additionalProperties": false,
	},
}

var answerSchema = &ai.Schema{
	Name: "answer_question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question":       stringProp,
			"correct_answer": stringProp,
			"explanation":    stringProp,
			"difficulty":     stringProp,
			"subject":        stringProp,
			"topic":          stringProp,
		},
		"required":             []any{"question", "correct_answer", "explanation", "difficulty", "subject", "topic"},
		"additionalProperties": false,
	},
}

func schemaFor(t question.Type) *ai.Schema {
	if t == question.MultipleChoice {
		return choiceSchema
	}
	return answerSchema
}

var compiled sync.Map // schema name -> *jsonschema.Schema

func compile(s *ai.Schema) (*jsonschema.Schema, error) {
	if cached, ok := compiled.Load(s.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	raw, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := "schema://" + s.Name + ".json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", s.Name, err)
	}
	compiled.Store(s.Name, sch)
	return sch, nil
}

// validate checks a decoded reply against the schema for t.
func validate(t question.Type, doc any) error {
	sch, err := compile(schemaFor(t))
	if err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("reply does not match %s schema: %w", schemaFor(t).Name, err)
	}
	return nil
}
