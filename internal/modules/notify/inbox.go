// README: Per-recipient notification inbox backed by Redis lists.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"carpool/internal/types"
)

const inboxKeyPrefix = "notify:inbox:%s"

type Inbox struct {
	redis *redis.Client
}

func NewInbox(redis *redis.Client) *Inbox {
	return &Inbox{redis: redis}
}

// Push prepends the notification and trims the list to InboxLimit entries.
func (i *Inbox) Push(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := inboxKey(n.RecipientID)
	pipe := i.redis.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, InboxLimit-1)
	_, err = pipe.Exec(ctx)
	return err
}

// List returns the recipient's notifications, newest first.
func (i *Inbox) List(ctx context.Context, recipientID types.ID) ([]Notification, error) {
	vals, err := i.redis.LRange(ctx, inboxKey(recipientID), 0, InboxLimit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(vals))
	for _, v := range vals {
		var n Notification
		if err := json.Unmarshal([]byte(v), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func inboxKey(recipientID types.ID) string {
	return fmt.Sprintf(inboxKeyPrefix, string(recipientID))
}
