package pipeline

import "fmt"

const toolSystemPrompt = `You are an assistant that can perform calculations and web searches.
When using search results, summarize the information in a clear and natural way.
For calculations, show both the calculation and the result.
Always respond in the same language as the user's query.
DO NOT show the function call format in your response.`

// summaryInstruction follows the tool output and asks for the final answer
const summaryInstruction = `请根据上述工具返回的结果，用自然的语言回答我的问题。
如果是搜索结果，请总结主要信息；如果是计算结果，请展示计算过程和结果。
注意：请直接给出答案，不要显示函数调用的格式。`

const directSystemPrompt = "You are a helpful assistant."

// apology is the user-facing text returned when the tool stage fails
func apology(err error) string {
	return fmt.Sprintf("Sorry, something went wrong while handling your request: %v", err)
}
