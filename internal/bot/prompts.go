package bot

import (
	"fmt"
	"strings"

	"github.com/edgard/mediadesk/internal/persona"
)

// personaVoiceInstruction is appended to the persona system instruction.
// It expects the persona name and style.
const personaVoiceInstruction = "\n\nWrite in the voice of %s: %s."

// avoidTopicsHeader introduces the list of recently covered topics.
const avoidTopicsHeader = "Recently covered topics, pick a different storyline if you can:"

func personaSystemInstruction(base string, p persona.Persona) string {
	if p.Style == "" {
		return base
	}
	return base + fmt.Sprintf(personaVoiceInstruction, p.Name, p.Style)
}

// userPrompt lays out the chat excerpt followed by the topics to avoid.
func userPrompt(scope, excerpt string, recentTopics []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent chat from %s:\n\n%s", scope, excerpt)

	topics := make([]string, 0, len(recentTopics))
	for _, t := range recentTopics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(avoidTopicsHeader)
		for _, t := range topics {
			sb.WriteString("\n- ")
			sb.WriteString(t)
		}
	}
	return sb.String()
}
