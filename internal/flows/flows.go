// Package flows holds the conversational glue: menu handlers that move
// users between markers, collect input, and forward it to the collaborator
// endpoints. The interview flow delegates its lifecycle to the orchestrator;
// everything here is prompts, keyboards and payload assembly.
package flows

import (
	"context"
	"sync"
	"time"

	"github.com/neuronai/neuronbot/internal/convstate"
	"github.com/neuronai/neuronbot/internal/dispatch"
	"github.com/neuronai/neuronbot/internal/interview"
	"github.com/neuronai/neuronbot/internal/logging"
	"github.com/neuronai/neuronbot/internal/models"
	"github.com/neuronai/neuronbot/internal/n8n"
	"github.com/neuronai/neuronbot/internal/telegram"
)

// Messenger is the outbound platform surface the flows use.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyMarkup any) (*telegram.Message, error)
	SendChatAction(ctx context.Context, chatID int64, action string) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	ForwardDocument(ctx context.Context, chatID int64, fileID string) error
	ForwardPhoto(ctx context.Context, chatID int64, fileID string) error
}

// AccessLedger records first contact on the begin command.
type AccessLedger interface {
	EnsureStarted(ctx context.Context, externalID int64, observedAt time.Time) (*models.User, error)
}

// Interviewer is the interview orchestrator surface.
type Interviewer interface {
	IsActive(ctx context.Context, userID int64) (bool, error)
	Start(ctx context.Context, userID, chatID int64, username, fullName string) (*interview.StartResult, error)
	SubmitAnswer(ctx context.Context, userID, chatID int64, answer interview.Answer) (*interview.AnswerResult, error)
	Cancel(ctx context.Context, userID int64) (bool, error)
}

// Collaborator posts flow payloads to a webhook endpoint.
type Collaborator interface {
	Call(ctx context.Context, url string, payload any) (*n8n.Response, error)
}

// Webhooks are the collaborator endpoints, one per flow family.
type Webhooks struct {
	Interview string
	Sales     string
	CVScan    string
	Ticket    string
	Safety    string
	Knowledge string
}

// Flows wires every conversational handler. Sales form drafts live in
// memory next to the conversation markers; they are as ephemeral as the
// markers themselves.
type Flows struct {
	bot       Messenger
	tracker   *convstate.Tracker
	access    AccessLedger
	interview Interviewer
	collab    Collaborator
	webhooks  Webhooks
	manager   int64
	logger    logging.Logger

	mu     sync.Mutex
	drafts map[int64]*salesDraft
}

func New(bot Messenger, tracker *convstate.Tracker, access AccessLedger, interviewer Interviewer, collab Collaborator, webhooks Webhooks, managerChatID int64, logger logging.Logger) *Flows {
	return &Flows{
		bot:       bot,
		tracker:   tracker,
		access:    access,
		interview: interviewer,
		collab:    collab,
		webhooks:  webhooks,
		manager:   managerChatID,
		logger:    logger.With("component", "flows"),
		drafts:    make(map[int64]*salesDraft),
	}
}

// Register attaches every flow handler to the dispatcher.
func (f *Flows) Register(d *dispatch.Dispatcher) {
	d.Command(dispatch.CmdStart, f.handleStart)
	d.Command(dispatch.CmdBackToMenu, f.handleBackToMenu)
	d.Command(dispatch.CmdBack, f.handleBack)
	d.Command(dispatch.CmdCancel, f.handleCancel)

	d.Command(dispatch.CmdHRMenu, f.handleHRMenu)
	d.Command(dispatch.CmdInterviewStart, f.handleInterviewStart)
	d.Command(dispatch.CmdInterviewCancel, f.handleInterviewCancel)
	d.Command(dispatch.CmdCVScan, f.handleCVScanStart)
	d.Command(dispatch.CmdQuickSearch, f.handleQuickSearch)
	d.Command(dispatch.CmdHRInfo, f.handleHRInfo)

	d.Command(dispatch.CmdHelpdeskMenu, f.handleHelpdeskMenu)
	d.Command(dispatch.CmdAIEye, f.handleAIEye)
	d.Command(dispatch.CmdInstantAction, f.handleInstantAction)
	d.Command(dispatch.CmdSmartTicket, f.handleSmartTicketStart)
	d.Command(dispatch.CmdHowToConnect, f.handleHowToConnect)

	d.Command(dispatch.CmdSafetyMenu, f.handleSafetyMenu)
	d.Command(dispatch.CmdPhotoControl, f.handlePhotoControlStart)
	d.Command(dispatch.CmdWorkPermit, f.handleWorkPermitStart)
	d.Command(dispatch.CmdReportViolation, f.handleReportViolationStart)
	d.Command(dispatch.CmdBotInstructor, f.handleBotInstructorStart)

	d.Command(dispatch.CmdKnowledgeMenu, f.handleKnowledgeMenu)
	d.Command(dispatch.CmdSearchAnswer, f.handleSearchAnswerStart)

	d.Command(dispatch.CmdSalesMenu, f.handleSalesMenu)
	d.Command(dispatch.CmdSalesQuote, f.handleSalesQuoteStart)
	d.Command(dispatch.CmdContactManager, f.handleContactManagerStart)

	d.Marker(convstate.MarkerInterview, f.handleInterviewAnswer)
	d.Marker(convstate.MarkerCVScan, f.handleCVScanInput)
	d.Marker(convstate.MarkerSmartTicket, f.handleSmartTicketInput)
	d.Marker(convstate.MarkerPhotoControl, f.handlePhotoControlInput)
	d.Marker(convstate.MarkerWorkPermit, f.handleWorkPermitInput)
	d.Marker(convstate.MarkerReportViolation, f.handleReportViolationInput)
	d.Marker(convstate.MarkerBotInstructor, f.handleBotInstructorInput)
	d.Marker(convstate.MarkerKnowledgeMenu, f.handleSearchAnswerInput)
	d.Marker(convstate.MarkerSalesNiche, f.handleSalesNiche)
	d.Marker(convstate.MarkerSalesTask, f.handleSalesTask)
	d.Marker(convstate.MarkerSalesBudget, f.handleSalesBudget)
	d.Marker(convstate.MarkerSalesContact, f.handleSalesContact)
	d.Marker(convstate.MarkerManagerContact, f.handleManagerRelay)

	d.Fallback(f.handleFallback)
}

func mainMenuKeyboard() *telegram.ReplyKeyboardMarkup {
	return telegram.Keyboard(
		[]string{dispatch.BtnHRMenu, dispatch.BtnSafetyMenu},
		[]string{dispatch.BtnHelpdeskMenu, dispatch.BtnKnowledgeMenu},
		[]string{dispatch.BtnSalesMenu},
	)
}

func cancelKeyboard() *telegram.ReplyKeyboardMarkup {
	return telegram.Keyboard([]string{dispatch.BtnCancel})
}

const mainMenuText = "🏠 Главное меню\n\nВыберите отдел:"

// handleStart records first contact and shows the main menu. Runs for
// expired users too; it must never consult the gate.
func (f *Flows) handleStart(ctx context.Context, msg *telegram.Message) error {
	observed := time.Unix(msg.Date, 0).UTC()
	if _, err := f.access.EnsureStarted(ctx, msg.From.ID, observed); err != nil {
		// The user still gets a menu; the ledger catches up on the next
		// /start.
		f.logger.Error(ctx, "first-contact record failed", "user_id", msg.From.ID, "error", err)
	}

	f.tracker.Clear(msg.From.ID)
	greeting := "👋 Добро пожаловать!\n\nЯ корпоративный AI-ассистент. Выберите отдел:"
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID, greeting, mainMenuKeyboard())
	return err
}

func (f *Flows) handleBackToMenu(ctx context.Context, msg *telegram.Message) error {
	f.discardDraft(msg.From.ID)
	f.tracker.Clear(msg.From.ID)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID, mainMenuText, mainMenuKeyboard())
	return err
}

// handleBack steps one level up: section sub-states return to their section
// menu, everything else returns to the main menu.
func (f *Flows) handleBack(ctx context.Context, msg *telegram.Message) error {
	switch f.tracker.Get(msg.From.ID) {
	case convstate.MarkerCVScan, convstate.MarkerQuickSearch:
		return f.handleHRMenu(ctx, msg)
	case convstate.MarkerAIEye, convstate.MarkerInstantAction, convstate.MarkerSmartTicket:
		return f.handleHelpdeskMenu(ctx, msg)
	case convstate.MarkerPhotoControl, convstate.MarkerWorkPermit,
		convstate.MarkerReportViolation, convstate.MarkerBotInstructor:
		return f.handleSafetyMenu(ctx, msg)
	default:
		return f.handleBackToMenu(ctx, msg)
	}
}

// handleCancel aborts whatever collection the user is in the middle of and
// returns them to the owning menu.
func (f *Flows) handleCancel(ctx context.Context, msg *telegram.Message) error {
	marker := f.tracker.Get(msg.From.ID)
	f.discardDraft(msg.From.ID)

	switch marker {
	case convstate.MarkerCVScan:
		f.tracker.Set(msg.From.ID, convstate.MarkerHRMenu)
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "Сканирование отменено.", hrKeyboard())
		return err
	case convstate.MarkerSalesNiche, convstate.MarkerSalesTask,
		convstate.MarkerSalesBudget, convstate.MarkerSalesContact:
		f.tracker.Set(msg.From.ID, convstate.MarkerSalesMenu)
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "Расчет отменен.", salesKeyboard())
		return err
	case convstate.MarkerPhotoControl, convstate.MarkerWorkPermit,
		convstate.MarkerReportViolation, convstate.MarkerBotInstructor:
		return f.handleSafetyMenu(ctx, msg)
	case convstate.MarkerSmartTicket:
		return f.handleHelpdeskMenu(ctx, msg)
	case convstate.MarkerManagerContact:
		f.tracker.Clear(msg.From.ID)
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "Отменено.", mainMenuKeyboard())
		return err
	default:
		return f.handleBackToMenu(ctx, msg)
	}
}

// handleFallback answers free-form text outside any flow with the menu.
func (f *Flows) handleFallback(ctx context.Context, msg *telegram.Message) error {
	if msg.Text == "" {
		return nil
	}
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID, mainMenuText, mainMenuKeyboard())
	return err
}
