package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authorization events
	EventTypeGrantTenant     EventType = "authz.grant_tenant"
	EventTypeRevokeTenant    EventType = "authz.revoke_tenant"
	EventTypeGrantMember     EventType = "authz.grant_member"
	EventTypeRevokeMember    EventType = "authz.revoke_member"
	EventTypeAccessDenied    EventType = "authz.access_denied"
	EventTypeGrantRefused    EventType = "authz.grant_refused"

	// Admin events
	EventTypeTenantProvision   EventType = "admin.tenant_provision"
	EventTypeMemberProvision   EventType = "admin.member_provision"
	EventTypeActorDeactivate   EventType = "admin.actor_deactivate"
	EventTypeModuleToggle      EventType = "admin.module_toggle"

	// Authentication events
	EventTypeTokenCreate       EventType = "auth.token_create"
	EventTypeTokenRevoke       EventType = "auth.token_revoke"
	EventTypeTokenResolveFail  EventType = "auth.token_resolve_fail"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event represents a single audit log entry
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	ActorID  *int64 `json:"actor_id,omitempty"`
	TenantID *int64 `json:"tenant_id,omitempty"`

	// Subject of the event
	TargetActorID *int64 `json:"target_actor_id,omitempty"`
	ModuleSlug    string `json:"module_slug,omitempty"`

	// Request context
	RequestID string `json:"request_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`

	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
