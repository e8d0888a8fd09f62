package usecase

import (
	"rag-portal/internal/appconfig"
	"rag-portal/internal/domain"
)

// NormalizeConversationTail prepares a history for submission: an empty
// history is rejected (the exchange must begin with a user turn), and a
// history ending on a user turn gets a placeholder assistant turn appended
// so the next user turn keeps strict alternation. Interior violations are
// not repaired here; ValidateAlternation is the authoritative check.
func NormalizeConversationTail(conv Conversation) error {
	if conv.Len() == 0 {
		return newError(ErrorEmptyConversation, "empty_history", nil)
	}
	if conv.LastRole() != domain.RoleAssistant {
		conv.AppendAssistantTurn(appconfig.PlaceholderAssistantText)
	}
	return nil
}

// ValidateAlternation fails when any two adjacent messages share a role.
func ValidateAlternation(history []domain.Message) error {
	for i := 0; i+1 < len(history); i++ {
		if history[i].Role == history[i+1].Role {
			return newError(ErrorNonAlternatingRoles, "adjacent_same_role", nil)
		}
	}
	return nil
}
