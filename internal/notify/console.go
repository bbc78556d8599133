package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleChannel prints reports that have no recipient.
type ConsoleChannel struct {
	out io.Writer
	mu  sync.Mutex
}

// NewConsoleChannel writes to out, or stdout when nil.
func NewConsoleChannel(out io.Writer) *ConsoleChannel {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleChannel{out: out}
}

// Name returns the name of the notifier.
func (c *ConsoleChannel) Name() string {
	return "console"
}

// IsEnabled returns whether the notifier is enabled.
func (c *ConsoleChannel) IsEnabled() bool {
	return true
}

// Send prints the message.
func (c *ConsoleChannel) Send(ctx context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "No phone number provided. Skipping WhatsApp broadcast.\n--- Generated Message ---\n%s\n", n.Message)
	return err
}
