package engine

// maxNotificationBody caps the notification body length in runes before the
// ellipsis marker is appended.
const maxNotificationBody = 120

// NotificationDispatcher decides, per live-delivered message, whether to
// raise a system notification. It is never fed the history seed, so opening
// a room cannot cause a notification storm.
type NotificationDispatcher struct {
	notifier Notifier
	viewerID string
	logf     func(format string, args ...interface{})
}

func NewNotificationDispatcher(notifier Notifier, viewerID string, logf func(string, ...interface{})) *NotificationDispatcher {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &NotificationDispatcher{notifier: notifier, viewerID: viewerID, logf: logf}
}

// Dispatch raises a notification for msg unless it is the viewer's own
// message or the platform permission is missing. Raising is fire-and-forget;
// failures are logged and never surfaced or retried.
func (d *NotificationDispatcher) Dispatch(msg Message) {
	if msg.SenderID == d.viewerID {
		return
	}
	if !d.notifier.PermissionGranted() {
		return
	}
	if err := d.notifier.Raise(msg.SenderName, notificationBody(msg)); err != nil {
		d.logf("raise notification: %v", err)
	}
}

func notificationBody(msg Message) string {
	if msg.Content == "" || (msg.AssetRef != "" && msg.Content == PlaceholderCaption) {
		return PlaceholderCaption
	}
	runes := []rune(msg.Content)
	if len(runes) <= maxNotificationBody {
		return msg.Content
	}
	return string(runes[:maxNotificationBody]) + "…"
}
