// Package runevent defines lifecycle notifications emitted by external agent
// runs and the pure rules used to fold them into task state.
package runevent

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
)

// Action is the lifecycle step an event reports.
type Action string

const (
	ActionStart    Action = "start"
	ActionProgress Action = "progress"
	ActionEnd      Action = "end"
	ActionError    Action = "error"
	ActionDocument Action = "document"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionStart, ActionProgress, ActionEnd, ActionError, ActionDocument:
		return true
	}
	return false
}

// Event is one notification from the agent runner.
type Event struct {
	RunID      string           `json:"runId"`
	Action     Action           `json:"action"`
	SessionKey string           `json:"sessionKey,omitempty"`
	AgentID    string           `json:"agentId,omitempty"`
	Timestamp  string           `json:"timestamp,omitempty"`
	Error      string           `json:"error,omitempty"`
	Prompt     string           `json:"prompt,omitempty"`
	Source     string           `json:"source,omitempty"`
	Message    string           `json:"message,omitempty"`
	Response   string           `json:"response,omitempty"`
	EventType  string           `json:"eventType,omitempty"`
	Document   *DocumentPayload `json:"document,omitempty"`
}

// DocumentPayload is the document carried by a document action.
type DocumentPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type"`
	Path    string `json:"path,omitempty"`
}

// Validate checks the fields every event must carry.
func (e *Event) Validate() error {
	if e.RunID == "" {
		return fmt.Errorf("%w: runId is required", domain.ErrValidation)
	}
	if !e.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", domain.ErrValidation, e.Action)
	}
	return nil
}

// Tags applied to tasks created from a run.
var DefaultTags = []string{"openclaw"}

const (
	placeholderPrefix = "Agent task"
	sessionDelimiter  = "mission:"
	toolStartType     = "tool:start"

	titleMax      = 80
	titleCut      = 77
	titleMinBreak = 50
)

// PlaceholderTitle is the title used when a run starts without a prompt.
func PlaceholderTitle(runID string) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return placeholderPrefix + " " + short
}

// IsPlaceholderTitle reports whether title was generated by PlaceholderTitle.
func IsPlaceholderTitle(title string) bool {
	return strings.HasPrefix(title, placeholderPrefix)
}

// PlaceholderDescription is the description used when a run starts without a prompt.
func PlaceholderDescription(agentName, runID string) string {
	return fmt.Sprintf("%s agent task\nRun ID: %s", agentName, runID)
}

// SummarizePrompt derives a task title from the first line of a prompt.
// Lines longer than 80 characters are cut to 77, at the last space past
// position 50 when there is one, and suffixed with "...".
func SummarizePrompt(prompt string) string {
	line := strings.TrimSpace(prompt)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= titleMax {
		return line
	}
	cut := []rune(line)[:titleCut]
	if i := lastSpace(cut); i > titleMinBreak {
		cut = cut[:i]
	}
	return string(cut) + "..."
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == ' ' {
			return i
		}
	}
	return -1
}

// FormatDuration renders elapsed time as "Xh Ym", "Xm Ys" or "Xs".
// Negative durations render as "0s".
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	mins := secs / 60
	hours := mins / 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins%60)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, secs%60)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// TaskRefFromSessionKey extracts the task id following the last "mission:"
// in a session key. The reference must be a UUID; anything else is a miss.
func TaskRefFromSessionKey(key string) (string, bool) {
	i := strings.LastIndex(key, sessionDelimiter)
	if i < 0 {
		return "", false
	}
	ref := strings.TrimSpace(key[i+len(sessionDelimiter):])
	id, err := uuid.Parse(ref)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

var toolPattern = regexp.MustCompile(`Using tool:\s*([A-Za-z0-9_-]+)`)

// codingTools are tool names that indicate code was changed or executed.
// "write" is absent since it also produces non-code artifacts.
var codingTools = map[string]bool{
	"edit":    true,
	"exec":    true,
	"bash":    true,
	"run":     true,
	"process": true,
}

// IsCodingToolUse reports whether a progress event announces a coding tool.
func IsCodingToolUse(eventType, message string) bool {
	if eventType != toolStartType {
		return false
	}
	m := toolPattern.FindStringSubmatch(message)
	if m == nil {
		return false
	}
	return codingTools[strings.ToLower(m[1])]
}

// Outcome is the classification of a finished run.
type Outcome struct {
	NeedsFeedback bool
	IsCoding      bool
}

// Classify inspects the final response. hasCodeDocs is only consulted when
// the coding-tools flag is unset.
func Classify(t *task.Task, response string, hasCodeDocs bool) Outcome {
	return Outcome{
		NeedsFeedback: strings.Contains(response, "?"),
		IsCoding:      t.UsedCodingTools || hasCodeDocs,
	}
}

// Status is the status a task moves to for this outcome.
func (o Outcome) Status() task.Status {
	if o.NeedsFeedback || o.IsCoding {
		return task.StatusReview
	}
	return task.StatusDone
}

// StartedMessage is the comment posted when a run begins.
func StartedMessage(source, prompt string) string {
	var b strings.Builder
	b.WriteString("🚀 **Started**\n\n")
	if source != "" {
		b.WriteString("**" + source + ":** ")
	}
	if prompt == "" {
		prompt = "N/A"
	}
	b.WriteString(prompt)
	return b.String()
}

// ProgressMessage returns the progress text, defaulting when empty.
func ProgressMessage(message string) string {
	if message == "" {
		return "Progress update"
	}
	return message
}

// CompletionMessage is the comment posted when a run ends.
func CompletionMessage(o Outcome, elapsed, response string) string {
	msg := fmt.Sprintf("✅ **Completed** in **%s**", elapsed)
	if o.NeedsFeedback {
		msg = fmt.Sprintf("❓ **Needs feedback** after **%s**", elapsed)
	}
	if response != "" {
		msg += "\n\n" + response
	}
	return msg
}

// CompletionActivity is the feed entry posted when a run ends.
func CompletionActivity(o Outcome, title, elapsed string) string {
	if o.NeedsFeedback {
		return fmt.Sprintf("needs feedback on \"%s\" after %s", title, elapsed)
	}
	return fmt.Sprintf("completed \"%s\" in %s", title, elapsed)
}

// ErrorMessage is the comment posted when a run fails.
func ErrorMessage(elapsed, errText string) string {
	if errText == "" {
		errText = "Unknown error"
	}
	return fmt.Sprintf("❌ **Error** after **%s**\n\n%s", elapsed, errText)
}

// DocumentMessage announces a document produced during a run.
func DocumentMessage(d *DocumentPayload) string {
	msg := fmt.Sprintf("📄 Created %s document **%s**", d.Type, d.Title)
	if d.Path != "" {
		msg += fmt.Sprintf(" at `%s`", d.Path)
	}
	return msg
}
