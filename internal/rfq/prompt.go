package rfq

import "strings"

const systemPrompt = "You are a government contracts specialist that analyzes solicitation documents and creates professional RFQs."

const instructionHeader = `Analyze this government solicitation document chunk and extract all possible information to create a comprehensive Request for Quotation (RFQ). Extract all sections, requirements, specifications, terms, and any relevant details. Structure the output as follows:

1. GENERAL_INFORMATION: Include solicitation number, title, agency, date, etc.
2. REQUIREMENTS: Detailed technical requirements and specifications
3. DELIVERABLES: List of all required deliverables
4. PERIOD_OF_PERFORMANCE: Start/end dates or duration
5. EVALUATION_CRITERIA: How proposals will be evaluated
6. SUBMISSION_REQUIREMENTS: Format, deadlines, submission instructions
7. TERMS_AND_CONDITIONS: Contractual terms and conditions
8. CONTACT_INFORMATION: Points of contact

Document Text:
`

const instructionFooter = `

Provide the output in JSON format with these exact top-level keys. GENERAL_INFORMATION, PERIOD_OF_PERFORMANCE and CONTACT_INFORMATION are objects; every other key is an array. Include all relevant details under each section.`

// buildPrompt wraps chunk text in the fixed extraction instruction.
func buildPrompt(content string) string {
	var b strings.Builder
	b.Grow(len(instructionHeader) + len(content) + len(instructionFooter))
	b.WriteString(instructionHeader)
	b.WriteString(content)
	b.WriteString(instructionFooter)
	return b.String()
}
