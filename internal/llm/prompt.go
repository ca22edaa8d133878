package llm

import "fmt"

// ComposePrompt grounds a caller question in a reference-document chunk.
func ComposePrompt(question, context string) string {
	return fmt.Sprintf("질문: %s\n정보: %s", question, context)
}
