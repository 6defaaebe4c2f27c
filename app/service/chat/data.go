package chat

import (
	"context"

	"pamubot/app/service/history"
)

type ToolName string

const (
	ToolBrain   ToolName = "brain"
	ToolMedium  ToolName = "medium"
	ToolYoutube ToolName = "youtube"
	ToolGithub  ToolName = "github"
	ToolEmail   ToolName = "email"
)

const (
	ActionSearch        = "search"
	ActionList          = "list"
	ActionGetContent    = "get_content"
	ActionGetTranscript = "get_transcript"
	ActionGetReadme     = "get_readme"
	ActionGetFile       = "get_file"
	ActionSearchAndRead = "search_and_read"
	ActionSend          = "send"
)

// SearchParams carries parameters for the read-only tools.
type SearchParams struct {
	Shortcuts   []string `json:"shortcuts,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	RepoName    string   `json:"repo_name,omitempty"`
	FilePath    string   `json:"file_path,omitempty"`
	ArticleLink string   `json:"article_link,omitempty"`
	VideoID     string   `json:"video_id,omitempty"`
}

// EmailParams carries parameters for the email tool.
type EmailParams struct {
	To      string `json:"email_to"`
	Subject string `json:"email_subject"`
	Content string `json:"email_content"`
	CC      string `json:"email_cc,omitempty"`
}

// ToolCall is one planned invocation. The Tool field selects which params
// variant is meaningful: Email for ToolEmail, Search for everything else.
type ToolCall struct {
	Tool   ToolName
	Action string
	Search SearchParams
	Email  EmailParams
}

// Plan is the planner's decision for one turn. NeedExternalInfo false means
// Response holds a direct answer and ToolCalls is empty.
type Plan struct {
	NeedExternalInfo bool
	ToolCalls        []ToolCall
	Response         string
}

type Citation struct {
	SourceType string `json:"source_type"`
	SourceName string `json:"source_name"`
	URL        string `json:"url,omitempty"`
}

// State is the shared record threaded through the graph for one user turn.
// It is created fresh per turn and discarded after the terminal fields are
// extracted.
type State struct {
	Query   string
	History []history.Turn

	Plan    []ToolCall
	Results []string

	FinalAnswer        string
	Citations          []Citation
	SuggestedQuestions []string
}

// Result is what a completed turn hands back to the caller.
type Result struct {
	Answer             string     `json:"answer"`
	Citations          []Citation `json:"citations"`
	SuggestedQuestions []string   `json:"suggested_questions"`
	TurnCount          int        `json:"turn_count"`
}

type EventType string

const (
	EventStatus EventType = "status"
	EventResult EventType = "result"
	EventError  EventType = "error"
)

// Event is one step-stream item: status updates per node boundary, then a
// single terminal result or error event.
type Event struct {
	Type    EventType `json:"type"`
	Node    string    `json:"node,omitempty"`
	Message string    `json:"message,omitempty"`

	Answer             string     `json:"answer,omitempty"`
	Citations          []Citation `json:"citations,omitempty"`
	SuggestedQuestions []string   `json:"suggested_questions,omitempty"`
	TurnCount          int        `json:"turn_count,omitempty"`
}

// Completer is the LLM surface the planner and synthesizer depend on.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}
