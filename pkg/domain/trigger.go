package domain

import "fmt"

// Trigger names the external event that starts a workflow.
type Trigger string

const (
	TriggerManual              Trigger = "manual"
	TriggerTicketCreated       Trigger = "ticket.created"
	TriggerTicketStatusChanged Trigger = "ticket.status_changed"
	TriggerCustomerCreated     Trigger = "customer.created"
	TriggerChatStarted         Trigger = "chat.started"
	TriggerNPSSubmitted        Trigger = "nps.submitted"
	TriggerInventoryLow        Trigger = "inventory.low"
	TriggerSchedule            Trigger = "schedule"
)

var triggerLabels = map[Trigger]string{
	TriggerManual:              "Manual start",
	TriggerTicketCreated:       "Ticket created",
	TriggerTicketStatusChanged: "Ticket status changed",
	TriggerCustomerCreated:     "Customer created",
	TriggerChatStarted:         "Chat started",
	TriggerNPSSubmitted:        "NPS response submitted",
	TriggerInventoryLow:        "Inventory below threshold",
	TriggerSchedule:            "Scheduled",
}

// Triggers lists every known trigger.
var Triggers = []Trigger{
	TriggerManual,
	TriggerTicketCreated,
	TriggerTicketStatusChanged,
	TriggerCustomerCreated,
	TriggerChatStarted,
	TriggerNPSSubmitted,
	TriggerInventoryLow,
	TriggerSchedule,
}

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	_, ok := triggerLabels[t]
	return ok
}

// Label returns the human-readable name used for the seeded trigger node.
func (t Trigger) Label() string {
	if l, ok := triggerLabels[t]; ok {
		return l
	}
	return string(t)
}

// ParseTrigger converts s into a Trigger, failing with ErrInvalidTrigger.
func ParseTrigger(s string) (Trigger, error) {
	t := Trigger(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTrigger, s)
	}
	return t, nil
}
