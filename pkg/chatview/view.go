// Package chatview is the client-side synchronization state machine for one
// open chat. It renders fetched history, tracks optimistic placeholders for
// locally-sent messages, reconciles them against server-confirmed events, and
// applies structural events without reloading the timeline.
//
// The view is single-threaded by contract: UI actions and network events must
// be fed from one goroutine, the way a browser event loop would.
package chatview

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
)

// State of the view. Loading until history is rendered, Live afterwards.
type State int

const (
	StateLoading State = iota
	StateLive
)

// Bubble is one rendered message.
type Bubble struct {
	Sender    string
	Text      string
	TimeLabel string // empty while the message is unconfirmed
	Mine      bool
	Pending   bool
}

// Renderer is the display surface: the terminal client implements it against
// stdout, the tests against an in-memory timeline.
type Renderer interface {
	InsertDateHeader(label string)
	AppendMessage(id string, b Bubble)
	// ReplaceMessage swaps the element oldID in place. Reports false when the
	// element no longer exists, in which case the caller falls back to append.
	ReplaceMessage(oldID, newID string, b Bubble) bool
	RemoveMessage(id string)
	AppendNotice(text string)
	SetTitle(title string)
	SetPresence(username, status string)
}

// Sender issues the send-message request to the server.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// View drives one open chat.
type View struct {
	chatID int64
	self   string

	renderer Renderer
	sender   Sender

	state        State
	loc          *time.Location
	now          func() time.Time
	headersSeen  map[string]struct{}
	pending      []string
	participants []string
	customName   string
	isGroup      bool
}

// Option configures a View.
type Option func(*View)

// WithLocation sets the timezone used for date headers. Defaults to
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(v *View) { v.loc = loc }
}

// WithClock overrides the wall clock, for deterministic header tests.
func WithClock(now func() time.Time) Option {
	return func(v *View) { v.now = now }
}

func New(chatID int64, self string, renderer Renderer, sender Sender, opts ...Option) *View {
	v := &View{
		chatID:      chatID,
		self:        self,
		renderer:    renderer,
		sender:      sender,
		state:       StateLoading,
		loc:         time.Local,
		now:         time.Now,
		headersSeen: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *View) State() State { return v.state }

// Load renders the initial history and transitions to Live. History is sorted
// here because the store makes no ordering promise on bulk fetch.
func (v *View) Load(chat model.Chat, history []model.Message) {
	if v.state != StateLoading {
		return
	}

	v.isGroup = chat.IsGroup
	v.customName = chat.Name
	v.participants = lo.Map(chat.Participants, func(p model.Participant, _ int) string { return p.Username })

	sort.Slice(history, func(i, j int) bool {
		if !history[i].Timestamp.Equal(history[j].Timestamp) {
			return history[i].Timestamp.Before(history[j].Timestamp)
		}
		return history[i].ID < history[j].ID
	})

	v.renderer.SetTitle(v.Title())
	for _, msg := range history {
		ts := msg.Timestamp.In(v.loc)
		v.ensureHeader(ts)
		v.renderer.AppendMessage(messageElementID(msg.ID), Bubble{
			Sender:    msg.Sender,
			Text:      msg.Content,
			TimeLabel: ts.Format("15:04"),
			Mine:      msg.Sender == v.self,
		})
	}

	v.state = StateLive
}

// Send renders an optimistic placeholder and issues the request. On failure
// the placeholder is removed so a rejected message never looks sent. Returns
// the placeholder id.
func (v *View) Send(text string) (string, error) {
	if v.state != StateLive {
		return "", fmt.Errorf("view is not live")
	}

	id := "pending-" + uuid.NewString()
	v.renderer.AppendMessage(id, Bubble{
		Sender:  v.self,
		Text:    text,
		Mine:    true,
		Pending: true,
	})
	v.pending = append(v.pending, id)

	if err := v.sender.SendMessage(v.chatID, text); err != nil {
		v.renderer.RemoveMessage(id)
		v.dropPending(id)
		return "", err
	}
	return id, nil
}

// HandleEvent feeds one server event into the machine.
func (v *View) HandleEvent(ev model.Event) {
	if v.state != StateLive {
		return
	}
	if ev.ChatID != 0 && ev.ChatID != v.chatID {
		return
	}

	switch ev.Type {
	case model.EventNewMessage:
		v.onNewMessage(ev)
	case model.EventUserAdded:
		v.onUserAdded(ev)
	case model.EventChatRenamed:
		v.onChatRenamed(ev)
	case model.EventUserStatus:
		v.onUserStatus(ev)
	}
}

func (v *View) onNewMessage(ev model.Event) {
	ts := time.Unix(ev.Timestamp, 0).In(v.loc)
	v.ensureHeader(ts)

	bubble := Bubble{
		Sender:    ev.Sender,
		Text:      ev.Message,
		TimeLabel: ts.Format("15:04"),
		Mine:      ev.Sender == v.self,
	}
	elemID := messageElementID(ev.MessageID)

	// Our own confirmed message reconciles against the oldest placeholder:
	// replaced in place, never appended twice. Everyone else's messages, and
	// confirmations with nothing left to match, append at the end.
	if bubble.Mine && len(v.pending) > 0 {
		oldest := v.pending[0]
		v.pending = v.pending[1:]
		if v.renderer.ReplaceMessage(oldest, elemID, bubble) {
			return
		}
	}
	v.renderer.AppendMessage(elemID, bubble)
}

func (v *View) onUserAdded(ev model.Event) {
	if !lo.Contains(v.participants, ev.Username) {
		v.participants = append(v.participants, ev.Username)
	}
	v.isGroup = true
	v.renderer.AppendNotice(fmt.Sprintf("%s was added by %s", ev.Username, ev.AddedBy))
	v.renderer.SetTitle(v.Title())
}

func (v *View) onChatRenamed(ev model.Event) {
	v.customName = ev.NewName
	if ev.NewName == "" {
		v.renderer.AppendNotice(fmt.Sprintf("%s cleared the chat name", ev.RenamedBy))
	} else {
		v.renderer.AppendNotice(fmt.Sprintf("%s renamed the chat to %q", ev.RenamedBy, ev.NewName))
	}
	v.renderer.SetTitle(v.Title())
}

func (v *View) onUserStatus(ev model.Event) {
	// Only a direct chat renders a binary indicator, and only for the
	// counterpart.
	if v.isGroup || ev.Username != v.counterpart() {
		return
	}
	v.renderer.SetPresence(ev.Username, ev.Status)
}

// Close discards pending placeholders. An in-flight send is not cancelled; if
// it completes server-side it simply finds no view to reconcile against.
func (v *View) Close() {
	v.pending = nil
}

// Title is the displayed chat title: the custom name when set, otherwise the
// sorted comma-joined list of the other participants.
func (v *View) Title() string {
	if v.customName != "" {
		return v.customName
	}
	others := lo.Filter(v.participants, func(name string, _ int) bool { return name != v.self })
	sort.Strings(others)
	return strings.Join(others, ", ")
}

// Participants returns the cached membership.
func (v *View) Participants() []string {
	return append([]string(nil), v.participants...)
}

// PendingCount reports outstanding placeholders.
func (v *View) PendingCount() int { return len(v.pending) }

func (v *View) counterpart() string {
	for _, name := range v.participants {
		if name != v.self {
			return name
		}
	}
	return ""
}

func (v *View) ensureHeader(ts time.Time) {
	label := headerLabel(ts, v.now().In(v.loc))
	if _, ok := v.headersSeen[label]; ok {
		return
	}
	v.headersSeen[label] = struct{}{}
	v.renderer.InsertDateHeader(label)
}

func (v *View) dropPending(id string) {
	v.pending = lo.Without(v.pending, id)
}

func messageElementID(id int64) string {
	return fmt.Sprintf("msg-%d", id)
}
