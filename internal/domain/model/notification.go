package model

import "time"

type NotificationEvent string

const (
	EventTransactionSuccess             NotificationEvent = "TRANSACTION_SUCCESS"
	EventTransactionPendingConfirmation NotificationEvent = "TRANSACTION_PENDING_CONFIRMATION"
	EventTransactionFailed              NotificationEvent = "TRANSACTION_FAILED"
	EventTransactionRefunded            NotificationEvent = "TRANSACTION_REFUNDED"
)

// EventFor maps a status reached by a transition to the event it announces.
func EventFor(s TransactionStatus) (NotificationEvent, bool) {
	switch s {
	case StatusSuccess:
		return EventTransactionSuccess, true
	case StatusPendingConfirmation:
		return EventTransactionPendingConfirmation, true
	case StatusFailed:
		return EventTransactionFailed, true
	case StatusRefunded:
		return EventTransactionRefunded, true
	}
	return "", false
}

type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelInApp    NotificationChannel = "in_app"
	ChannelRealtime NotificationChannel = "realtime"
	ChannelPush     NotificationChannel = "push"
	ChannelWhatsApp NotificationChannel = "whatsapp"
)

var AllNotificationChannels = []NotificationChannel{
	ChannelEmail, ChannelInApp, ChannelRealtime, ChannelPush, ChannelWhatsApp,
}

// Notification is a rendered message addressed to one user on one channel.
type Notification struct {
	UserID        string
	TransactionID string
	Event         NotificationEvent
	Channel       NotificationChannel
	Email         string
	Phone         string
	Title         string
	Body          string
	RedirectURL   string
	Data          map[string]string
}

// InAppNotification is the persisted in-app record.
type InAppNotification struct {
	ID            string
	UserID        string
	TransactionID string
	Type          NotificationEvent
	Title         string
	Message       string
	RedirectURL   string
	IsRead        bool
	CreatedAt     time.Time
}

type NotificationDelivery string

const (
	DeliverySent    NotificationDelivery = "sent"
	DeliveryFailed  NotificationDelivery = "failed"
	DeliverySkipped NotificationDelivery = "skipped"
)

// NotificationLog dedupes sends per (transaction, event, channel).
type NotificationLog struct {
	TransactionID string
	Event         NotificationEvent
	Channel       NotificationChannel
	Status        NotificationDelivery
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
