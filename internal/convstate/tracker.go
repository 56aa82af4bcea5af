// Package convstate tracks which conversational flow each user currently
// occupies. The mapping is process-local and deliberately not persisted:
// after a restart users simply re-navigate from the main menu.
package convstate

import "sync"

// Marker names a flow/step a user can occupy. The set is closed; flow
// handlers match on markers, never on raw message text.
type Marker string

const (
	MarkerMainMenu Marker = "main_menu"

	MarkerHRMenu      Marker = "hr_menu"
	MarkerInterview   Marker = "interview"
	MarkerCVScan      Marker = "cv_scan"
	MarkerQuickSearch Marker = "quick_search"

	MarkerHelpdeskMenu  Marker = "it_helpdesk_menu"
	MarkerAIEye         Marker = "ai_eye"
	MarkerInstantAction Marker = "instant_action"
	MarkerSmartTicket   Marker = "smart_ticket"

	MarkerSafetyMenu      Marker = "labor_safety_menu"
	MarkerPhotoControl    Marker = "photo_control"
	MarkerWorkPermit      Marker = "work_permit"
	MarkerReportViolation Marker = "report_violation"
	MarkerBotInstructor   Marker = "bot_instructor"

	MarkerKnowledgeMenu Marker = "knowledge_base_menu"

	MarkerSalesMenu    Marker = "sales_menu"
	MarkerSalesNiche   Marker = "sales_niche"
	MarkerSalesTask    Marker = "sales_task"
	MarkerSalesBudget  Marker = "sales_budget"
	MarkerSalesContact Marker = "sales_contact"

	MarkerManagerContact Marker = "manager_contact"
)

// Tracker maps user ids to their current marker. Absent entries read as
// MarkerMainMenu. The platform delivers one message at a time per chat, so
// the mutex only has to make single-key updates atomic.
type Tracker struct {
	mu     sync.Mutex
	states map[int64]Marker
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[int64]Marker)}
}

// Set records the user's current flow marker.
func (t *Tracker) Set(userID int64, m Marker) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[userID] = m
}

// Get returns the user's marker, defaulting to the main menu.
func (t *Tracker) Get(userID int64) Marker {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.states[userID]; ok {
		return m
	}
	return MarkerMainMenu
}

// Clear resets the user to the main menu.
func (t *Tracker) Clear(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, userID)
}
