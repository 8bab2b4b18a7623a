package timegrid

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notifier receives failures that must be shown to the user.
type Notifier interface {
	Notify(title, description, context string)
}

type Notification struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Context     string    `json:"context"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NotificationCenter keeps notifications until they are closed.
type NotificationCenter struct {
	mu     sync.Mutex
	items  []Notification
	logger *slog.Logger
	now    func() time.Time
}

func NewNotificationCenter(logger *slog.Logger) *NotificationCenter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &NotificationCenter{logger: logger, now: time.Now}
}

func (c *NotificationCenter) Notify(title, description, context string) {
	notification := Notification{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Context:     context,
		CreatedAt:   c.now(),
	}

	c.mu.Lock()
	c.items = append(c.items, notification)
	c.mu.Unlock()

	c.logger.Warn(title, "id", notification.ID, "description", description, "context", context)
}

func (c *NotificationCenter) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Close removes the notification and reports whether it existed.
func (c *NotificationCenter) Close(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := slices.IndexFunc(c.items, func(n Notification) bool { return n.ID == id })
	if index < 0 {
		return false
	}
	c.items = slices.Delete(c.items, index, index+1)
	return true
}
