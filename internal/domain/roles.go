package domain

// UserRole описывает роль пользователя.
type UserRole string

const (
	// UserRoleOrganizer публикует контент.
	UserRoleOrganizer UserRole = "ORGANIZER"
	// UserRoleParticipant получает пуш-уведомления о публикациях.
	UserRoleParticipant UserRole = "PARTICIPANT"
)

// ValidRole проверяет, что роль известна системе.
func ValidRole(role UserRole) bool {
	switch role {
	case UserRoleOrganizer, UserRoleParticipant:
		return true
	}
	return false
}

// HasRole проверяет наличие роли у пользователя.
func (u User) HasRole(role UserRole) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsOrganizer сообщает, является ли пользователь организатором.
func (u User) IsOrganizer() bool {
	return u.HasRole(UserRoleOrganizer)
}
