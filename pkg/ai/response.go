package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoJSON indicates a model reply did not contain a JSON object.
var ErrNoJSON = errors.New("no json object found in model response")

// ErrInvalidResponse indicates a model reply did not match the expected shape.
var ErrInvalidResponse = errors.New("model response does not match schema")

const answerCheckSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["isCorrect", "confidence", "reasoning"],
  "properties": {
    "isCorrect": {"type": "boolean"},
    "confidence": {"type": "number"},
    "reasoning": {"type": "string"},
    "hint": {"type": ["string", "null"]}
  }
}`

const imageAnalysisSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["extractedText", "confidence"],
  "properties": {
    "extractedText": {"type": "string"},
    "confidence": {"type": "number"},
    "description": {"type": ["string", "null"]}
  }
}`

var (
	answerCheckSchema   = jsonschema.MustCompileString("answer_check.schema.json", answerCheckSchemaJSON)
	imageAnalysisSchema = jsonschema.MustCompileString("image_analysis.schema.json", imageAnalysisSchemaJSON)
)

// extractJSON returns the text between the first '{' and the last '}'.
// Models wrap JSON in prose or code fences often enough that this is needed even in JSON mode.
func extractJSON(content string) (string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return "", ErrNoJSON
	}
	return content[start : end+1], nil
}

func decodeValidated(content string, schema *jsonschema.Schema, target interface{}) error {
	raw, err := extractJSON(content)
	if err != nil {
		return err
	}

	var document interface{}
	if err := json.Unmarshal([]byte(raw), &document); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := schema.Validate(document); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func parseAnswerCheck(content string) (AnswerCheck, error) {
	var result AnswerCheck
	if err := decodeValidated(content, answerCheckSchema, &result); err != nil {
		return AnswerCheck{}, err
	}

	result.Confidence = clamp(result.Confidence)
	result.Reasoning = strings.TrimSpace(result.Reasoning)
	result.Hint = strings.TrimSpace(result.Hint)
	if result.IsCorrect {
		result.Hint = ""
	}
	return result, nil
}

func parseImageAnalysis(content string) (ImageAnalysis, error) {
	var result ImageAnalysis
	if err := decodeValidated(content, imageAnalysisSchema, &result); err != nil {
		return ImageAnalysis{}, err
	}

	result.Confidence = clamp(result.Confidence)
	result.ExtractedText = strings.TrimSpace(result.ExtractedText)
	return result, nil
}

func clamp(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
