package infrastructure

import (
	"log"

	"github.com/dropvid/clip-processing-service/domain"
)

// LogNotifier is the notification service used until a real push/email
// integration is wired in. It is constructor-injected wherever a
// NotificationService is needed so tests can substitute their own.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Notify(ownerID, uploadID string, status domain.ProcessingStatus, message string) {
	if ownerID == "" {
		ownerID = "unknown"
	}
	log.Printf("notify owner=%s upload=%s status=%s message=%q", ownerID, uploadID, status, message)
}
