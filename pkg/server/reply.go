package server

import (
	"regexp"
	"strings"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/agent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/orchestrator"
)

// knownPrefixes are the participant id namespaces the platform uses.
var knownPrefixes = []string{"whatsapp-", "web-", "test-", "sess-"}

// NormalizeParticipant ensures every participant id carries a channel
// prefix. Bare phone numbers map to whatsapp; anything else defaults to
// the web namespace.
func NormalizeParticipant(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "web-anonymous"
	}
	for _, p := range knownPrefixes {
		if strings.HasPrefix(id, p) {
			return id
		}
	}
	if bareDigitsRe.MatchString(id) {
		return "whatsapp-" + strings.TrimPrefix(id, "+")
	}
	return "web-" + id
}

var bareDigitsRe = regexp.MustCompile(`^\+?\d{10,14}$`)

// buttonMarkerRe matches the inline [BUTTON:label:value] syntax agents
// and flows embed in responses.
var buttonMarkerRe = regexp.MustCompile(`\[BUTTON:([^:\]]+):([^\]]+)\]`)

// ExtractButtons pulls inline button markers out of a response, returning
// the cleaned text and the buttons in order of appearance.
func ExtractButtons(response string) (string, []agent.Button) {
	matches := buttonMarkerRe.FindAllStringSubmatch(response, -1)
	if len(matches) == 0 {
		return response, nil
	}
	buttons := make([]agent.Button, 0, len(matches))
	for _, m := range matches {
		buttons = append(buttons, agent.Button{
			Label: strings.TrimSpace(m[1]),
			Value: strings.TrimSpace(m[2]),
		})
	}
	clean := buttonMarkerRe.ReplaceAllString(response, "")
	lines := strings.Split(clean, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), buttons
}

// renderReply converts inline markers into structured buttons, keeping
// buttons the orchestrator already set.
func renderReply(reply *orchestrator.Reply) *orchestrator.Reply {
	text, inline := ExtractButtons(reply.Response)
	if len(inline) > 0 {
		reply.Response = text
		reply.Buttons = append(reply.Buttons, inline...)
	}
	return reply
}
