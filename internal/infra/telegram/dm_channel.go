package telegram

import (
	"context"
	"fmt"
	"strconv"

	"ttbtrackr/internal/domain/notify"
)

// DMChannel delivers direct messages over the bot chat. The destination is
// the subscriber's chat ID rendered as a decimal string.
type DMChannel struct {
	sender Sender
}

func NewDMChannel(sender Sender) *DMChannel {
	return &DMChannel{sender: sender}
}

func (c *DMChannel) Kind() notify.Kind {
	return notify.KindDirectMessage
}

func (c *DMChannel) Send(ctx context.Context, destination, text string) error {
	chatID, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid direct-message destination %q: %w", destination, err)
	}
	if err := c.sender.SendMessage(chatID, text); err != nil {
		return fmt.Errorf("error sending direct message to chat %d: %w", chatID, err)
	}
	return nil
}
