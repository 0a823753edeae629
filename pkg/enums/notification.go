package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderUpdate    NotificationType = "order_update"
	NotificationTypeDeliveryUpdate NotificationType = "delivery_update"
	NotificationTypeReturnUpdate   NotificationType = "return_update"
	NotificationTypePayout         NotificationType = "payout"
	NotificationTypePromo          NotificationType = "promo"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderUpdate,
	NotificationTypeDeliveryUpdate,
	NotificationTypeReturnUpdate,
	NotificationTypePayout,
	NotificationTypePromo,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationAudience names who a notification is addressed to.
type NotificationAudience string

const (
	NotificationAudienceBuyer   NotificationAudience = "buyer"
	NotificationAudienceSeller  NotificationAudience = "seller"
	NotificationAudienceCourier NotificationAudience = "courier"
)

var validNotificationAudiences = []NotificationAudience{
	NotificationAudienceBuyer,
	NotificationAudienceSeller,
	NotificationAudienceCourier,
}

// IsValid checks whether the audience matches the canonical enum.
func (n NotificationAudience) IsValid() bool {
	for _, candidate := range validNotificationAudiences {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationAudience converts raw strings into NotificationAudience.
func ParseNotificationAudience(value string) (NotificationAudience, error) {
	for _, candidate := range validNotificationAudiences {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification audience %q", value)
}
