package oracle

import (
	"fmt"
	"strings"
)

func formatHint(names []string, placeholder string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + placeholder
	}
	return strings.Join(parts, ",")
}

func entityPrompt(methods []string, source string) string {
	return fmt.Sprintf(`Extract the SINGLE most important entity being directly manipulated in each of these functions:
%s

Instructions:
1. For each function, identify exactly ONE entity name that is the primary data object being manipulated.
2. If multiple entities exist, choose only the one central to the function's purpose.

Format your response exactly as follows:
%s

The response must contain ONLY the entity names in the specified format, with no introduction or explanation.

Source code:
"""
%s
"""`, strings.Join(methods, "\n"), formatHint(methods, "entityName"), source)
}

func constraintPrompt(operations, policyRefs []string, source string) string {
	refs := ""
	if len(policyRefs) > 0 {
		refs = fmt.Sprintf("\nThe classes are imported from: %s\n", strings.Join(policyRefs, ", "))
	}
	return fmt.Sprintf(`Identify the constraints of the classes %s in the code below.
%s
The constraint of each class is the string passed to super('...').

Format the result exactly as follows:
%s

Return the constraints as a concise list with no explanation. If there are no constraints, return an empty string.

Source code:
"""
%s
"""`, strings.Join(operations, ", "), refs, formatHint(operations, "constraint"), source)
}

// instruct wraps a prompt for instruction-tuned models served by text-generation endpoints.
func instruct(prompt string) string {
	return "<s>[INST] " + prompt + " [/INST]</s>"
}
