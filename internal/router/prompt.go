package router

import "fmt"

// Markers the routing model is asked to answer with
const (
	MarkerCalculate = "TOOL: CALCULATE"
	MarkerSearch    = "TOOL: SEARCH"
	MarkerNone      = "NO TOOL"
)

const systemPrompt = "You are a routing assistant. Your job is to determine if external tools are needed to accurately answer the user's query."

const decisionTemplate = `Given the following user query, determine if any tools are needed to answer it.

Guidelines:
1. If the query requires mathematical calculations, respond with '%[1]s'
2. If the query is asking about:
   - Factual information
   - Current events
   - Definitions
   - Technical concepts
   - General knowledge
   Then respond with '%[2]s'
3. If the query is conversational or opinion-based with no need for external information, respond with '%[3]s'

Examples:
- "What is Python programming language?" -> '%[2]s' (requires factual information)
- "Calculate 25 * 4 + 10" -> '%[1]s' (requires calculation)
- "How are you doing?" -> '%[3]s' (conversational)
- "What is machine learning?" -> '%[2]s' (technical concept)
- "Who won the latest Nobel Prize?" -> '%[2]s' (current events)

User query: %[4]s

Response:`

// decisionPrompt embeds query into the fixed routing instructions
func decisionPrompt(query string) string {
	return fmt.Sprintf(decisionTemplate, MarkerCalculate, MarkerSearch, MarkerNone, query)
}
