// Package idearium implements the token-budgeted conversational memory for
// an agent session: role-tagged notions held in conversation order, trimmed
// back under a configured token ceiling by a pluggable strategy.
package idearium

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Role tags a notion with its conversational function. The set is closed;
// providers map these onto their own wire roles.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	// RoleRelation is reserved for link notions so trimming and request
	// formatting can tell them apart from conversational content.
	RoleRelation Role = "relation"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool, RoleRelation:
		return true
	}
	return false
}

// Notion is a single role-tagged memory unit. Persistent notions are exempt
// from eviction. The token count is cached by the owning Idearium at
// insertion time and invalidated when content changes.
type Notion struct {
	ID         string
	Content    string
	Role       Role
	Persistent bool

	tokens int // cached count; -1 means not yet counted
}

// New creates a non-persistent notion with a fresh ID.
func New(content string, role Role) Notion {
	return Notion{ID: uuid.NewString(), Content: content, Role: role, tokens: -1}
}

// NewPersistent creates a notion exempt from eviction.
func NewPersistent(content string, role Role) Notion {
	n := New(content, role)
	n.Persistent = true
	return n
}

// TokenCount returns the cached token count, or 0 if the notion has not been
// counted yet (i.e. it is not owned by an Idearium).
func (n Notion) TokenCount() int {
	if n.tokens < 0 {
		return 0
	}
	return n.tokens
}

// SetContent replaces the content and invalidates the cached token count.
// The owning Idearium re-counts on Replace.
func (n *Notion) SetContent(content string) {
	n.Content = content
	n.tokens = -1
}

// Equal reports content/role equality. Identity (ID) is deliberately not
// part of equality: two notions with the same role and content are the same
// memory.
func (n Notion) Equal(other Notion) bool {
	return n.Role == other.Role && n.Content == other.Content && n.Persistent == other.Persistent
}

func (n Notion) String() string {
	return fmt.Sprintf("%s: %s", n.Role, n.Content)
}

// MarshalJSON serializes the public fields plus the cached token count.
func (n Notion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string `json:"id"`
		Content    string `json:"content"`
		Role       Role   `json:"role"`
		Persistent bool   `json:"persistent,omitempty"`
		Tokens     int    `json:"tokens,omitempty"`
	}{n.ID, n.Content, n.Role, n.Persistent, n.TokenCount()})
}
