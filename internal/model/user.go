package model

import "time"

// DefaultTimezone часовой пояс новых пользователей
const DefaultTimezone = "Asia/Jakarta"

// User идентифицируется строковым Telegram ID
type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Timezone  string    `json:"timezone" db:"timezone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName имя для приветствий
func DisplayName(firstName, lastName string) string {
	switch {
	case firstName != "" && lastName != "":
		return firstName + " " + lastName
	case firstName != "":
		return firstName
	case lastName != "":
		return lastName
	}
	return "Driver"
}
