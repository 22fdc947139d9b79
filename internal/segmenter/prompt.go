package segmenter

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SystemPrompt is sent as the system message of every segmentation request.
const SystemPrompt = "You are a strict data structuring engine. Output valid JSON only."

// MaxPromptChars is the number of source characters embedded in a prompt.
const MaxPromptChars = 15000

const librarianPrompt = `
PROJECT CONTEXT:
You are a "Librarian AI" for an Infor M3 ERP Consultant Copilot.
Your job is to segment document text into structured knowledge chunks.

MANDATORY RULES:
1. CONTENT: Use EXACT original text. DO NOT rewrite.
2. BOUNDARIES: Split by logical sections (Overview, Procedure, Example).
3. INTEGRITY: Keep tables with their explanations. Keep examples with concepts.
4. METADATA: Discard "Related topics", "Copyright", etc.

CLASSIFICATION RULES:
- chunk_type: "concept" (definitions), "procedure" (steps), "example" (scenarios), "reference" (tables/codes).
- programs: Extract M3 program codes (e.g., CRS610, MNS100) found in the text.
- topics: Extract key business topics (e.g., "VAT", "Authorization").

OUTPUT FORMAT (STRICT JSON):
{
  "chunks": [
    {
      "chunk_type": "concept",
      "title": "Section Title",
      "text": "EXACT original text substring...",
      "programs": ["CRS610"],
      "topics": ["Settings"]
    }
  ]
}

Document Title: "%s"

Text to Process:
"%s"
`

// BuildPrompt renders the segmentation instruction for a document.
func BuildPrompt(title, text string) string {
	return fmt.Sprintf(librarianPrompt, title, quoteForPrompt(text))
}

func quoteForPrompt(text string) string {
	if utf8.RuneCountInString(text) > MaxPromptChars {
		text = string([]rune(text)[:MaxPromptChars])
	}
	return strings.ReplaceAll(text, `"`, `\"`)
}
