package ai

import (
	"fmt"
	"strings"
)

// Grading is deliberately lenient: rejecting a correct answer costs the user more than accepting a near miss.

func imageAnalysisPrompt() string {
	return strings.TrimSpace(`
Analyze the image and respond with the following JSON format:

{
  "extractedText": "All text extracted from the image (empty string if no text)",
  "confidence": 0.95,
  "description": "What the image depicts, understandable from text alone, 150 characters or fewer"
}

Instructions:
- If there are multiple texts, join them with spaces into a single string
- Recognize both handwriting and printed text
- Extract Korean, English, and numbers
- confidence is a value between 0.0 and 1.0 describing text extraction reliability
- Respond only with JSON, no other text`)
}

func textAnswerPrompt(mission MissionPrompt, answer string) string {
	var b strings.Builder
	b.WriteString("Please evaluate the quiz answer very leniently. Accept the answer as correct if it is even partially right.\n\n")
	fmt.Fprintf(&b, "Question: %s\nCorrect Answer: %s\nUser Answer: %s\n\n", mission.Question, mission.CorrectAnswer, answer)
	b.WriteString(answerFormat)
	b.WriteString(`
Evaluation criteria (mark as correct whenever possible):
1. Accept if core keywords are included
2. Accept similar meanings ("Seoul Metropolitan City", "Seoul" and "Seoul City" are all correct)
3. Accept partial answers ("Seoul" for "South Korea Seoul")
4. Ignore typos, spacing, grammar and case
5. Allow abbreviations, acronyms, alternative expressions and any number format
6. Accept changed word order and extra explanation when the core content is there

Unless the user gave a completely wrong answer, mark it as correct.
`)
	b.WriteString(hintRules)
	return b.String()
}

func imageAnswerPrompt(mission MissionPrompt, extractedText string) string {
	var b strings.Builder
	b.WriteString("Based on text extracted from an image, evaluate the quiz answer extremely leniently.\n\n")
	fmt.Fprintf(&b, "Question: %s\nCorrect Answer: %s\nExtracted Text from Image: %s\n\n", mission.Question, mission.CorrectAnswer, extractedText)
	b.WriteString(answerFormat)
	b.WriteString(`
Evaluation criteria (mark as correct whenever possible):
1. Accept if any core keyword is partially included
2. Account for OCR errors, blurry images, handwriting and unusual fonts
3. Accept if 20% or more of the answer is recognisable
4. Ignore typos, spacing, grammar, case and special characters
5. Allow changed word order, missing words, similar meanings and related words

Unless the text is completely unrelated, mark it as correct.
`)
	b.WriteString(hintRules)
	return b.String()
}

const answerFormat = `Respond in this JSON format:
{
  "isCorrect": true,
  "confidence": 0.95,
  "reasoning": "Explanation for the evaluation",
  "hint": ""
}
`

const hintRules = `
If isCorrect is false, put a very short Korean hint (15 characters or fewer) in "hint" that nudges the user without revealing the answer. If correct, set hint to an empty string.
confidence is a value between 0.0 and 1.0.
Respond only with JSON, no other text.`
