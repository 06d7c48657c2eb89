package memory

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mnemo/pkg/logger"
)

// ============================================================================
// Session Context Updater
// ============================================================================

// Exchange is a single conversation message in a rolling session window
type Exchange struct {
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// maxExchangeLen clamps rendered message content inside a session window
const maxExchangeLen = 200

// SessionUpdater maintains the rolling per-entity conversation window.
// Session context is scratch and lossy: each update replaces the previous
// window, never appends.
type SessionUpdater struct {
	store  *Store
	window int
	logger *zap.Logger
}

// NewSessionUpdater creates an updater keeping the last `window` exchanges
func NewSessionUpdater(store *Store, window int) *SessionUpdater {
	if window <= 0 {
		window = 10
	}
	return &SessionUpdater{
		store:  store,
		window: window,
		logger: logger.Get(),
	}
}

// UpdateEntitySession replaces the session context of the named person
// entity with a window over the most recent exchanges. Silently no-ops on an
// empty entity name or empty exchange list; that is the designed behavior,
// not an error path.
func (u *SessionUpdater) UpdateEntitySession(entity string, exchanges []Exchange, channel string) error {
	if CanonicalName(entity) == "" || len(exchanges) == 0 {
		return nil
	}

	// Entities are created lazily on first contact
	if _, err := u.store.AddEntity(entity, EntityPerson, nil); err != nil {
		return err
	}

	windowed := exchanges
	if len(windowed) > u.window {
		windowed = windowed[len(windowed)-u.window:]
	}

	header := fmt.Sprintf("(updated %s", time.Now().UTC().Format(time.RFC3339))
	if channel != "" {
		header += ", via " + channel
	}
	header += fmt.Sprintf(", %d messages)", len(windowed))

	lines := make([]string, 0, len(windowed)+1)
	lines = append(lines, header)
	for _, ex := range windowed {
		lines = append(lines, renderExchange(ex))
	}

	if err := u.store.ReplaceSessionContext(entity, strings.Join(lines, "\n")); err != nil {
		return err
	}

	u.logger.Debug("Session context replaced",
		zap.String("entity", entity),
		zap.String("channel", channel),
		zap.Int("messages", len(windowed)),
	)
	return nil
}

func renderExchange(ex Exchange) string {
	content := ex.Content
	if len(content) > maxExchangeLen {
		content = TruncateString(content, maxExchangeLen) + "…"
	}
	return fmt.Sprintf("[%s] %s: %s", ex.Timestamp.UTC().Format("15:04:05"), capitalizeRole(ex.Role), content)
}

func capitalizeRole(role string) string {
	role = strings.TrimSpace(role)
	if role == "" {
		return "User"
	}
	return strings.ToUpper(role[:1]) + strings.ToLower(role[1:])
}
