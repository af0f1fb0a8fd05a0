// Package audit produces the append-only trail of privileged
// back-office mutations.
package audit

import "time"

// Change is a single field-level before/after pair.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Entry is the caller-supplied portion of an audit record. ID and
// timestamp are stamped by the recorder.
type Entry struct {
	UserID     string
	UserName   string
	Action     string
	Resource   string
	ResourceID string
	Changes    map[string]Change
	IPAddress  string
	UserAgent  string
}

// Record is an immutable fact describing who changed what on which
// resource. Once appended to a sink it is never updated or deleted.
type Record struct {
	ID         string            `json:"id"`
	UserID     string            `json:"userId"`
	UserName   string            `json:"userName"`
	Action     string            `json:"action"`
	Resource   string            `json:"resource"`
	ResourceID string            `json:"resourceId"`
	Changes    map[string]Change `json:"changes"`
	IPAddress  string            `json:"ipAddress"`
	UserAgent  string            `json:"userAgent"`
	CreatedAt  time.Time         `json:"timestamp"`
}

// Well-known action verbs recorded by the back-office.
const (
	ActionLogin          = "LOGIN"
	ActionLogout         = "LOGOUT"
	ActionCreateProduct  = "CREATE_PRODUCT"
	ActionUpdateProduct  = "UPDATE_PRODUCT"
	ActionDeleteProduct  = "DELETE_PRODUCT"
	ActionCreateCategory = "CREATE_CATEGORY"
	ActionUpdateCategory = "UPDATE_CATEGORY"
	ActionDeleteCategory = "DELETE_CATEGORY"
)
