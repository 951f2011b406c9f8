package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/minderhq/minder/internal/biz/repo"
	"github.com/minderhq/minder/internal/biz/usecase"
)

// MinderMCPServer exposes the assistant's task, reminder and check-in
// operations as MCP tools. Tool calls go straight to the store; the
// command grammar is not involved.
type MinderMCPServer struct {
	server *mcp.Server
	store  repo.Store
	nudge  *usecase.NudgeUsecase

	// defaultSession is used when a tool call omits session_id.
	defaultSession string
}

// NewServer creates a new MCP server backed by the store.
func NewServer(store repo.Store, nudge *usecase.NudgeUsecase, defaultSession string) *MinderMCPServer {
	if defaultSession == "" {
		defaultSession = "default"
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "minder-tools",
		Version: "v1.0.0",
	}, nil)

	s := &MinderMCPServer{
		server:         server,
		store:          store,
		nudge:          nudge,
		defaultSession: defaultSession,
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *MinderMCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *MinderMCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minder_add_task",
		Description: "Add a task to the user's task list.",
	}, s.handleAddTask)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minder_list_tasks",
		Description: "List the user's tasks with their completion state.",
	}, s.handleListTasks)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minder_complete_task",
		Description: "Mark a task as completed by its id.",
	}, s.handleCompleteTask)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minder_add_reminder",
		Description: "Set a reminder, optionally due in a given number of minutes.",
	}, s.handleAddReminder)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minder_list_reminders",
		Description: "List the user's reminders with due times and completion state.",
	}, s.handleListReminders)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minder_complete_reminder",
		Description: "Mark a reminder as completed by its id.",
	}, s.handleCompleteReminder)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minder_check_in",
		Description: "Record a daily check-in with mood, energy (1-10), focus (1-10) and an optional note.",
	}, s.handleCheckIn)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minder_dashboard",
		Description: "Summarize open tasks, open reminders and the latest check-in.",
	}, s.handleDashboard)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minder_nudge",
		Description: "Evaluate whether the user deserves a proactive nudge right now.",
	}, s.handleNudge)
}

func (s *MinderMCPServer) session(id string) string {
	if id == "" {
		return s.defaultSession
	}
	return id
}

// AddTaskInput is the input for the add_task tool
type AddTaskInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session to operate on. Uses the default session when omitted."`
	Title     string `json:"title" jsonschema:"description=The task title"`
}

// AddTaskOutput is the output for the add_task tool
type AddTaskOutput struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *MinderMCPServer) handleAddTask(ctx context.Context, req *mcp.CallToolRequest, input AddTaskInput) (*mcp.CallToolResult, AddTaskOutput, error) {
	if input.Title == "" {
		return nil, AddTaskOutput{Error: "title is required"}, nil
	}
	task, err := s.store.AddTask(ctx, s.session(input.SessionID), input.Title)
	if err != nil {
		return nil, AddTaskOutput{Error: err.Error()}, nil
	}
	return nil, AddTaskOutput{ID: task.ID, Title: task.Title}, nil
}

// ListTasksInput is the input for the list_tasks tool
type ListTasksInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session to operate on. Uses the default session when omitted."`
}

// TaskItem is one task in a listing
type TaskItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// ListTasksOutput is the output for the list_tasks tool
type ListTasksOutput struct {
	Tasks []TaskItem `json:"tasks"`
	Error string     `json:"error,omitempty"`
}

func (s *MinderMCPServer) handleListTasks(ctx context.Context, req *mcp.CallToolRequest, input ListTasksInput) (*mcp.CallToolResult, ListTasksOutput, error) {
	tasks, err := s.store.ListTasks(ctx, s.session(input.SessionID))
	if err != nil {
		return nil, ListTasksOutput{Error: err.Error()}, nil
	}
	out := ListTasksOutput{Tasks: make([]TaskItem, 0, len(tasks))}
	for _, t := range tasks {
		out.Tasks = append(out.Tasks, TaskItem{ID: t.ID, Title: t.Title, Completed: t.Completed})
	}
	return nil, out, nil
}

// CompleteInput identifies a task or reminder to complete
type CompleteInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session to operate on. Uses the default session when omitted."`
	ID        string `json:"id" jsonschema:"description=The id of the record to complete"`
}

// CompleteOutput is the output for completion tools
type CompleteOutput struct {
	Found bool   `json:"found"`
	Error string `json:"error,omitempty"`
}

func (s *MinderMCPServer) handleCompleteTask(ctx context.Context, req *mcp.CallToolRequest, input CompleteInput) (*mcp.CallToolResult, CompleteOutput, error) {
	if input.ID == "" {
		return nil, CompleteOutput{Error: "id is required"}, nil
	}
	ok, err := s.store.CompleteTask(ctx, s.session(input.SessionID), input.ID)
	if err != nil {
		return nil, CompleteOutput{Error: err.Error()}, nil
	}
	return nil, CompleteOutput{Found: ok}, nil
}

// AddReminderInput is the input for the add_reminder tool
type AddReminderInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session to operate on. Uses the default session when omitted."`
	Text      string `json:"text" jsonschema:"description=What to be reminded of"`
	Minutes   *int   `json:"minutes,omitempty" jsonschema:"description=Minutes until due. Uses the default horizon when omitted."`
}

// AddReminderOutput is the output for the add_reminder tool
type AddReminderOutput struct {
	ID    string `json:"id,omitempty"`
	DueAt string `json:"due_at,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *MinderMCPServer) handleAddReminder(ctx context.Context, req *mcp.CallToolRequest, input AddReminderInput) (*mcp.CallToolResult, AddReminderOutput, error) {
	if input.Text == "" {
		return nil, AddReminderOutput{Error: "text is required"}, nil
	}
	var due *time.Time
	if input.Minutes != nil {
		d := usecase.DueAt(time.Now(), *input.Minutes)
		due = &d
	}
	rem, err := s.store.AddReminder(ctx, s.session(input.SessionID), input.Text, due)
	if err != nil {
		return nil, AddReminderOutput{Error: err.Error()}, nil
	}
	return nil, AddReminderOutput{ID: rem.ID, DueAt: rem.DueAt.Format(time.RFC3339)}, nil
}

// ListRemindersInput is the input for the list_reminders tool
type ListRemindersInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session to operate on. Uses the default session when omitted."`
}

// ReminderItem is one reminder in a listing
type ReminderItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	DueAt     string `json:"due_at"`
	Completed bool   `json:"completed"`
}

// ListRemindersOutput is the output for the list_reminders tool
type ListRemindersOutput struct {
	Reminders []ReminderItem `json:"reminders"`
	Error     string         `json:"error,omitempty"`
}

func (s *MinderMCPServer) handleListReminders(ctx context.Context, req *mcp.CallToolRequest, input ListRemindersInput) (*mcp.CallToolResult, ListRemindersOutput, error) {
	reminders, err := s.store.ListReminders(ctx, s.session(input.SessionID))
	if err != nil {
		return nil, ListRemindersOutput{Error: err.Error()}, nil
	}
	out := ListRemindersOutput{Reminders: make([]ReminderItem, 0, len(reminders))}
	for _, r := range reminders {
		out.Reminders = append(out.Reminders, ReminderItem{
			ID:        r.ID,
			Text:      r.Text,
			DueAt:     r.DueAt.Format(time.RFC3339),
			Completed: r.Completed,
		})
	}
	return nil, out, nil
}

func (s *MinderMCPServer) handleCompleteReminder(ctx context.Context, req *mcp.CallToolRequest, input CompleteInput) (*mcp.CallToolResult, CompleteOutput, error) {
	if input.ID == "" {
		return nil, CompleteOutput{Error: "id is required"}, nil
	}
	ok, err := s.store.CompleteReminder(ctx, s.session(input.SessionID), input.ID)
	if err != nil {
		return nil, CompleteOutput{Error: err.Error()}, nil
	}
	return nil, CompleteOutput{Found: ok}, nil
}

// CheckInInput is the input for the check_in tool
type CheckInInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session to operate on. Uses the default session when omitted."`
	Mood      string `json:"mood,omitempty" jsonschema:"description=Mood word, defaults to ok"`
	Energy    *int   `json:"energy,omitempty" jsonschema:"description=Energy 1-10, defaults to 5"`
	Focus     *int   `json:"focus,omitempty" jsonschema:"description=Focus 1-10, defaults to 5"`
	Note      string `json:"note,omitempty" jsonschema:"description=Optional free-form note"`
}

// CheckInOutput is the output for the check_in tool
type CheckInOutput struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *MinderMCPServer) handleCheckIn(ctx context.Context, req *mcp.CallToolRequest, input CheckInInput) (*mcp.CallToolResult, CheckInOutput, error) {
	mood := input.Mood
	if mood == "" {
		mood = "ok"
	}
	energy, focus := 5, 5
	if input.Energy != nil {
		energy = *input.Energy
	}
	if input.Focus != nil {
		focus = *input.Focus
	}
	c, err := s.store.AddCheckIn(ctx, s.session(input.SessionID), mood, energy, focus, input.Note)
	if err != nil {
		return nil, CheckInOutput{Error: err.Error()}, nil
	}
	return nil, CheckInOutput{ID: c.ID}, nil
}

// DashboardInput is the input for the dashboard tool
type DashboardInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session to operate on. Uses the default session when omitted."`
}

// DashboardOutput summarizes the session state
type DashboardOutput struct {
	OpenTasks     int    `json:"open_tasks"`
	OpenReminders int    `json:"open_reminders"`
	LastCheckIn   string `json:"last_check_in,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (s *MinderMCPServer) handleDashboard(ctx context.Context, req *mcp.CallToolRequest, input DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	sessionID := s.session(input.SessionID)

	tasks, err := s.store.ListTasks(ctx, sessionID)
	if err != nil {
		return nil, DashboardOutput{Error: err.Error()}, nil
	}
	reminders, err := s.store.ListReminders(ctx, sessionID)
	if err != nil {
		return nil, DashboardOutput{Error: err.Error()}, nil
	}
	checkins, err := s.store.ListCheckIns(ctx, sessionID, 1)
	if err != nil {
		return nil, DashboardOutput{Error: err.Error()}, nil
	}

	out := DashboardOutput{}
	for _, t := range tasks {
		if t.Open() {
			out.OpenTasks++
		}
	}
	for _, r := range reminders {
		if !r.Completed {
			out.OpenReminders++
		}
	}
	if len(checkins) > 0 {
		c := checkins[len(checkins)-1]
		out.LastCheckIn = fmt.Sprintf("mood=%s energy=%d focus=%d", c.Mood, c.Energy, c.Focus)
	}
	return nil, out, nil
}

// NudgeInput is the input for the nudge tool
type NudgeInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session to operate on. Uses the default session when omitted."`
}

// NudgeOutput carries the evaluated nudge, empty when no rule fires
type NudgeOutput struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *MinderMCPServer) handleNudge(ctx context.Context, req *mcp.CallToolRequest, input NudgeInput) (*mcp.CallToolResult, NudgeOutput, error) {
	text, err := s.nudge.Evaluate(ctx, s.session(input.SessionID), time.Now())
	if err != nil {
		return nil, NudgeOutput{Error: err.Error()}, nil
	}
	return nil, NudgeOutput{Text: text}, nil
}
