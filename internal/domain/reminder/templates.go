// internal/domain/reminder/templates.go
package reminder

import "fmt"

// MessagePriority is stored on the messages row and drives inbox ordering downstream.
type MessagePriority string

const (
	PriorityNormal MessagePriority = "normal"
	PriorityHigh   MessagePriority = "high"
	PriorityUrgent MessagePriority = "urgent"
)

// MessageTemplate is the subject/body pair used for a tier. Body takes the display name.
type MessageTemplate struct {
	Subject  string
	Body     string
	Priority MessagePriority
}

var messageTemplates = map[Tier]MessageTemplate{
	TierNormal: {
		Subject:  "Daily check-in reminder",
		Body:     "Hi %s, we haven't seen your daily wellness check-in yet. It only takes a minute, please check in when you can.",
		Priority: PriorityNormal,
	},
	TierEscalated: {
		Subject:  "We miss your check-ins",
		Body:     "Hi %s, it's been a couple of days since your last wellness check-in. Please take a moment to check in today so we know how you're doing.",
		Priority: PriorityHigh,
	},
	TierCritical: {
		Subject:  "Please check in - your school team is reaching out",
		Body:     "Hi %s, we haven't heard from you in several days and we want to make sure you're okay. Please complete your check-in now, or reach out to a counselor or trusted staff member. A member of staff has been notified.",
		Priority: PriorityUrgent,
	},
}

// TemplateFor returns the template for tier, falling back to the normal tier.
func TemplateFor(tier Tier) MessageTemplate {
	if t, ok := messageTemplates[tier]; ok {
		return t
	}
	return messageTemplates[TierNormal]
}

// ComposeMessage renders the in-app message for a candidate at the given tier.
func ComposeMessage(tier Tier, senderID, studentID int64, displayName string) *Message {
	tpl := TemplateFor(tier)
	name := displayName
	if name == "" {
		name = "there"
	}
	return &Message{
		SenderID:           senderID,
		RecipientStudentID: studentID,
		Subject:            tpl.Subject,
		Body:               fmt.Sprintf(tpl.Body, name),
		Priority:           tpl.Priority,
	}
}

// CriticalAlertMessage is the staff-facing text on an urgent alert.
func CriticalAlertMessage(displayName string, days int) string {
	return fmt.Sprintf("%s has not completed a wellness check-in for %d days. Please follow up.", displayName, days)
}
