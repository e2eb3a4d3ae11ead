package models

// NotificationKind тип письма, которое нужно отправить пользователю.
type NotificationKind string

const (
	// KindNewAccount приветственное письмо со ссылкой подтверждения почты.
	KindNewAccount NotificationKind = "new_account"
	// KindEmailVerification повторная отправка ссылки подтверждения почты.
	KindEmailVerification NotificationKind = "email_verification"
	// KindPasswordReset письмо со ссылкой сброса пароля.
	KindPasswordReset NotificationKind = "password_reset"
)

// Notification сообщение, которое сервис аккаунтов публикует для отправителя писем.
type Notification struct {
	Recipient string           `json:"recipient"`
	Kind      NotificationKind `json:"kind"`
	Token     string           `json:"token,omitempty"`
}
