package chat

import (
	"strings"

	"pamubot/app/service/history"
)

func formatHistory(turns []history.Turn) string {
	if len(turns) == 0 {
		return ""
	}

	var builder strings.Builder

	for _, turn := range turns {
		role := "User"
		if turn.Role == history.RoleAssistant {
			role = "Assistant"
		}
		builder.WriteString(role)
		builder.WriteString(": ")
		builder.WriteString(turn.Content)
		builder.WriteString("\n")
	}

	return strings.TrimRight(builder.String(), "\n")
}
