package llm

import (
	"fmt"
	"strings"

	"github.com/rohankatakam/codegraph/internal/query"
)

// SystemInstruction constrains answers to the supplied context.
const SystemInstruction = `You are an expert software engineer.
Only answer questions related to coding or software engineering.
Answer using ONLY the provided code snippets and graph relationships.
Be precise and answer step-by-step.
Keep the answers sufficiently detailed.
Only provide explanations and not the code or relationships itself.

In the graph, a Module is a source file; Functions and Classes are DEFINED_IN the module or class that contains them, and CALLS links a function to the functions it calls.

STRICT FORMATTING RULE:
DO NOT use Markdown (no **, no ##, no *).
Use plain numbers for lists (1. 2. 3.) and plain text for emphasis.`

// BuildPrompt lays out the retrieved snippets and their relationships as
// numbered sections. An empty context yields a prompt saying nothing
// relevant was found.
func BuildPrompt(question string, entries []query.Entry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("The user asked: %q, but no relevant code was found in the database.", question)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are provided with the following code snippets and their architectural relationships to answer the user's question: %q\n\n", question)

	for i, e := range entries {
		fmt.Fprintf(&sb, "--- CODE SNIPPET %d ---\n", i+1)
		fmt.Fprintf(&sb, "LOCATION: %s (Symbol: %s)\n", e.Metadata.File, e.Metadata.Symbol)
		fmt.Fprintf(&sb, "CONTENT:\n%s\n", e.Code)

		if len(e.GraphContext) > 0 {
			sb.WriteString("GRAPH RELATIONSHIPS:\n")
			for _, n := range e.GraphContext {
				fmt.Fprintf(&sb, "- This %s is connected to %s (%s)\n", e.Metadata.Type, n.Name, n.Type)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
