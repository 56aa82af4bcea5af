// Package dispatch routes inbound updates: raw text is normalized to a
// closed Command set, the access gate runs, then the matching flow handler
// fires. Free-form input (no command) is routed by the user's conversation
// marker instead.
package dispatch

// Reply-keyboard button labels. Flows build keyboards from these and the
// parser maps them back, so a label change stays a one-line edit.
const (
	BtnHRMenu        = "🤝 HR и Найм"
	BtnSafetyMenu    = "👷‍♂️ Охрана труда"
	BtnHelpdeskMenu  = "🛠 IT HelpDesk"
	BtnKnowledgeMenu = "🧠 База Знаний"
	BtnSalesMenu     = "💰 AI-Менеджер"

	BtnInterview       = "🎭 Пройти собеседование"
	BtnInterviewCancel = "❌ Отменить собеседование"
	BtnCVScan          = "📄 Анализ резюме (CV Scan)"
	BtnQuickSearch     = "🔥 Быстрый подбор"
	BtnHRInfo          = "⚙️ Информация для HR"

	BtnAIEye         = "🔍 AI-Глаз"
	BtnInstantAction = "⚡ Мгновенное действие"
	BtnSmartTicket   = "📋 Умный Тикет"
	BtnHowToConnect  = "❓ Как подключить"

	BtnPhotoControl    = "📸 Получить допуск"
	BtnWorkPermit      = "📝 Оформить работы"
	BtnReportViolation = "🆘 Сообщить о нарушении"
	BtnBotInstructor   = "🧠 Бот-Инструктор"

	BtnSearchAnswer = "🔎 Найти ответ"

	BtnSalesQuote     = "💰 Расчет стоимости"
	BtnContactManager = "👤 Связаться с менеджером"

	BtnBackToMenu = "🔙 Назад в меню"
	BtnBack       = "🔙 Назад"
	BtnCancel     = "❌ Отмена"
)

// Command is a recognized menu action. Flow handlers match on these values,
// never on raw message text.
type Command int

const (
	// CmdNone marks free-form input routed by conversation marker.
	CmdNone Command = iota
	CmdStart
	CmdBackToMenu
	CmdBack
	CmdCancel

	CmdHRMenu
	CmdSafetyMenu
	CmdHelpdeskMenu
	CmdKnowledgeMenu
	CmdSalesMenu

	CmdInterviewStart
	CmdInterviewCancel
	CmdCVScan
	CmdQuickSearch
	CmdHRInfo

	CmdAIEye
	CmdInstantAction
	CmdSmartTicket
	CmdHowToConnect

	CmdPhotoControl
	CmdWorkPermit
	CmdReportViolation
	CmdBotInstructor

	CmdSearchAnswer

	CmdSalesQuote
	CmdContactManager
)

var commandByText = map[string]Command{
	"/start":   CmdStart,
	"/manager": CmdContactManager,

	BtnBackToMenu: CmdBackToMenu,
	BtnBack:       CmdBack,
	"◀️ Назад":    CmdBack,
	BtnCancel:     CmdCancel,
	"🔙 Отмена":    CmdCancel,

	BtnHRMenu:        CmdHRMenu,
	"🤝 HR и найм":    CmdHRMenu, // legacy keyboard spelling
	BtnSafetyMenu:    CmdSafetyMenu,
	BtnHelpdeskMenu:  CmdHelpdeskMenu,
	BtnKnowledgeMenu: CmdKnowledgeMenu,
	BtnSalesMenu:     CmdSalesMenu,

	BtnInterview:       CmdInterviewStart,
	BtnInterviewCancel: CmdInterviewCancel,
	BtnCVScan:          CmdCVScan,
	BtnQuickSearch:     CmdQuickSearch,
	BtnHRInfo:          CmdHRInfo,

	BtnAIEye:         CmdAIEye,
	BtnInstantAction: CmdInstantAction,
	BtnSmartTicket:   CmdSmartTicket,
	BtnHowToConnect:  CmdHowToConnect,

	BtnPhotoControl:    CmdPhotoControl,
	BtnWorkPermit:      CmdWorkPermit,
	BtnReportViolation: CmdReportViolation,
	BtnBotInstructor:   CmdBotInstructor,

	BtnSearchAnswer: CmdSearchAnswer,

	BtnSalesQuote:     CmdSalesQuote,
	BtnContactManager: CmdContactManager,
}

// ParseCommand maps message text to a Command, CmdNone when the text is not
// a known button or bot command.
func ParseCommand(text string) Command {
	if cmd, ok := commandByText[text]; ok {
		return cmd
	}
	return CmdNone
}

// IsMenuButton reports whether text is a recognized button or bot command.
// Flow handlers use it to keep menu taps out of collaborator payloads.
func IsMenuButton(text string) bool {
	return ParseCommand(text) != CmdNone
}
