// Package summarize implements S2: batching tool_executed bursts, rendering
// deterministic narration text via templates, and falling back to an LLM
// (with truncation as a last resort) for agent_message events.
package summarize

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/echo-copilot/echo/internal/model"
)

// bashCmdMaxLen caps how much of a Bash command is read aloud.
const bashCmdMaxLen = 60

var batchVerb = map[string]string{
	"Edit":  "Edited",
	"Read":  "Read",
	"Write": "Created",
	"Bash":  "Ran",
	"Glob":  "Searched",
	"Grep":  "Searched",
}

var priorityMap = map[model.EventType]model.NarrationPriority{
	model.EventAgentBlocked: model.NarrationCritical,
	model.EventToolExecuted: model.NarrationNormal,
	model.EventAgentMessage: model.NarrationNormal,
	model.EventAgentStopped: model.NarrationNormal,
	model.EventSessionStart: model.NarrationLow,
	model.EventSessionEnd:   model.NarrationLow,
}

// TemplateEngine is a deterministic event-to-narration-text mapper. It
// never returns an error: an internal panic-free fallback ("An event
// occurred.") guarantees render always produces narratable text.
type TemplateEngine struct{}

// Render converts a single event into a NarrationEvent.
func (TemplateEngine) Render(ev model.ActivityEvent) model.NarrationEvent {
	priority, ok := priorityMap[ev.Type]
	if !ok {
		priority = model.NarrationNormal
	}
	return model.NarrationEvent{
		Text:                strings.TrimSpace(renderText(ev)),
		Priority:            priority,
		SourceEventType:     ev.Type,
		SummarizationMethod: model.SummarizationTemplate,
		SessionID:           ev.SessionID,
		SourceEventID:       ev.EventID,
		BlockReason:         ev.BlockReason,
		Options:             ev.Options,
	}
}

// RenderBatch converts a batch of consecutive tool_executed events into a
// single combined NarrationEvent, e.g. "Edited 3 files and Ran a command."
// The SessionID is taken from the first event.
func (TemplateEngine) RenderBatch(events []model.ActivityEvent) model.NarrationEvent {
	counts := make(map[string]int)
	order := make([]string, 0, 4)
	for _, ev := range events {
		tool := ev.ToolName
		if tool == "" {
			tool = "Unknown"
		}
		if _, seen := counts[tool]; !seen {
			order = append(order, tool)
		}
		counts[tool]++
	}

	parts := make([]string, 0, len(order))
	for _, tool := range order {
		count := counts[tool]
		verb := batchVerb[tool]
		if verb == "" {
			verb = "Used"
		}
		noun := batchNoun(tool, count)
		if count > 1 {
			parts = append(parts, fmt.Sprintf("%s %d %s", verb, count, noun))
		} else {
			parts = append(parts, fmt.Sprintf("%s %s", verb, noun))
		}
	}

	text := strings.Join(parts, " and ") + "."
	first := events[0]
	return model.NarrationEvent{
		Text:                strings.TrimSpace(text),
		Priority:            model.NarrationNormal,
		SourceEventType:     model.EventToolExecuted,
		SummarizationMethod: model.SummarizationTemplate,
		SessionID:           first.SessionID,
		SourceEventID:       first.EventID,
	}
}

// renderText dispatches by event type and never panics: any unexpected
// shape in the tool_input map falls through to the generic fallback.
func renderText(ev model.ActivityEvent) (text string) {
	defer func() {
		if recover() != nil {
			text = "An event occurred."
		}
	}()

	switch ev.Type {
	case model.EventToolExecuted:
		return renderToolExecuted(ev)
	case model.EventAgentBlocked:
		return renderAgentBlocked(ev)
	case model.EventAgentStopped:
		return renderAgentStopped(ev)
	case model.EventSessionStart:
		return "New coding session started."
	case model.EventSessionEnd:
		return "Session ended."
	default:
		return fmt.Sprintf("Agent event: %s.", ev.Type)
	}
}

func renderToolExecuted(ev model.ActivityEvent) string {
	toolName := ev.ToolName
	if toolName == "" {
		toolName = "Unknown"
	}
	input := ev.ToolInput

	switch toolName {
	case "Bash":
		command := stringField(input, "command", "")
		if len(command) > bashCmdMaxLen {
			command = command[:bashCmdMaxLen] + "..."
		}
		return "Ran command: " + command
	case "Read":
		return "Read " + basename(stringField(input, "file_path", "a file"))
	case "Edit":
		return "Edited " + basename(stringField(input, "file_path", "a file"))
	case "Write":
		return "Created " + basename(stringField(input, "file_path", "a file"))
	case "Glob":
		return "Searched for files matching " + stringField(input, "pattern", "a pattern")
	case "Grep":
		return "Searched code for " + stringField(input, "pattern", "a pattern")
	case "Task":
		return "Launched a sub-agent"
	case "WebFetch":
		return "Fetched a web page"
	case "WebSearch":
		return "Searched the web for " + stringField(input, "query", "something")
	default:
		return "Used " + toolName + " tool"
	}
}

func renderAgentBlocked(ev model.ActivityEvent) string {
	var base string
	switch ev.BlockReason {
	case model.BlockPermission:
		if ev.Message != "" {
			base = "The agent needs permission. " + ev.Message
		} else {
			base = "The agent needs permission."
		}
	case model.BlockIdle:
		base = "The agent is waiting for your input."
	case model.BlockQuestion:
		if ev.Message != "" {
			base = "The agent has a question. " + ev.Message
		} else {
			base = "The agent has a question."
		}
	default:
		base = "The agent is blocked and needs attention."
	}

	if len(ev.Options) > 0 {
		base += " " + formatOptions(ev.Options)
	}
	return base
}

func renderAgentStopped(ev model.ActivityEvent) string {
	if ev.StopReason != "" {
		return "Agent stopped: " + ev.StopReason + "."
	}
	return "Agent finished."
}

func basename(path string) string {
	if path == "" || path == "a file" {
		return "a file"
	}
	return filepath.Base(path)
}

// formatOptions renders a natural-language option list with an Oxford comma
// for three or more options.
func formatOptions(options []string) string {
	switch len(options) {
	case 1:
		return fmt.Sprintf("Options are: %s.", options[0])
	case 2:
		return fmt.Sprintf("Options are: %s and %s.", options[0], options[1])
	default:
		head := strings.Join(options[:len(options)-1], ", ")
		return fmt.Sprintf("Options are: %s, or %s.", head, options[len(options)-1])
	}
}

func batchNoun(toolName string, count int) string {
	switch toolName {
	case "Edit", "Read", "Write":
		if count > 1 {
			return "files"
		}
		return "a file"
	case "Bash":
		if count > 1 {
			return "commands"
		}
		return "a command"
	case "Glob", "Grep":
		if count > 1 {
			return "searches"
		}
		return "a search"
	default:
		if count > 1 {
			return "tools"
		}
		return "a tool"
	}
}

func stringField(m map[string]any, key, def string) string {
	if m == nil {
		return def
	}
	v, ok := m[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}
