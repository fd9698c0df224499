// Package systemprompt builds the system instruction of a run: the tool
// catalog and the reply grammar the directive parser understands.
package systemprompt

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/trustagent/pkg/conversation"
	"github.com/go-go-golems/trustagent/pkg/inference/tools"
)

const GenericInstruction = "You are a helpful assistant. Answer the user's questions accurately and concisely."

const toolPreamble = "You are a helpful assistant with access to the following tools:"

const grammarInstruction = `To use a tool, reply with exactly one JSON object and nothing else:
{"tool_name": "<name of the tool>", "arguments": <JSON object with the tool arguments, or null>}
Do not add any other text, explanation, or markdown code fences around the JSON object.
When you have the final answer, or no tool is needed, reply with plain text only.`

// Compose returns the system instruction for descriptors. Tools are listed in
// descriptor order.
func Compose(descriptors []tools.ToolDescriptor) string {
	if len(descriptors) == 0 {
		return GenericInstruction
	}

	var b strings.Builder
	b.WriteString(toolPreamble)
	b.WriteString("\n")
	for _, d := range descriptors {
		b.WriteString("- ")
		b.WriteString(d.ToolName)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(d.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(grammarInstruction)
	return b.String()
}

// Ensure returns a copy of history that starts with exactly one system turn
// carrying prompt. If history already starts with a system turn, prompt is
// appended to it after a blank line. System turns after the first are
// dropped. history itself is not modified.
func Ensure(history []conversation.Turn, prompt string) []conversation.Turn {
	ret := make([]conversation.Turn, 0, len(history)+1)

	var system *conversation.Turn
	dropped := 0
	for _, t := range history {
		if t.Role != conversation.RoleSystem {
			ret = append(ret, t)
			continue
		}
		if system == nil && len(ret) == 0 {
			t := t
			system = &t
			continue
		}
		dropped++
	}

	if system == nil {
		s := conversation.NewSystemTurn(prompt)
		system = &s
	} else if strings.TrimSpace(system.Content) == "" {
		system.Content = prompt
	} else if prompt != "" {
		system.Content = system.Content + "\n\n" + prompt
	}

	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Msg("systemprompt: dropped additional system turns")
	}

	return append([]conversation.Turn{*system}, ret...)
}
