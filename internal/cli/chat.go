package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/feastline/concierge/internal/config"
	"github.com/feastline/concierge/internal/domain"
	"github.com/feastline/concierge/internal/session"
	"github.com/feastline/concierge/internal/store"
	"github.com/feastline/concierge/internal/transport"
	"github.com/feastline/concierge/internal/view"
)

func newChatCmd() *cobra.Command {
	var page string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive support conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if page == "" {
				page = cfg.Backend.Page
			}
			if page == "" {
				page = "terminal"
			}
			return runChat(cfg, page)
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "conversation context (page/topic)")
	return cmd
}

func runChat(cfg config.Config, page string) error {
	kv := store.OpenKV(cfg.Storage.Driver, cfg.Storage.Path, log)
	st := store.New(kv, log)
	defer st.Close()

	userID := st.GetOrCreateUserID()
	threadID := st.GetOrCreateThreadID(page)

	printer := &terminalNotifier{}

	var lc *session.Lifecycle
	stream := transport.NewStream(transport.StreamConfig{
		URL:      cfg.Backend.StreamURL,
		UserID:   userID,
		ThreadID: threadID,
		Channel:  cfg.Backend.Channel,
		Role:     cfg.Backend.Role,
	}, &deferredHandler{resolve: func() transport.Handler { return lc }}, log)

	lc = session.NewLifecycle(stream,
		cfg.Session.MaxRetries,
		time.Duration(cfg.Session.RetryDelaySeconds)*time.Second,
		log)

	fb := transport.NewFallback(cfg.Backend.FallbackURL,
		time.Duration(cfg.Session.FallbackTimeoutSec)*time.Second, log)

	ctl := session.NewController(session.Config{
		ContextKey:      page,
		Channel:         cfg.Backend.Channel,
		Role:            cfg.Backend.Role,
		Sound:           cfg.Session.Sound,
		FallbackTimeout: time.Duration(cfg.Session.FallbackTimeoutSec) * time.Second,
	}, st, lc, fb, printer, log)
	printer.ctl = ctl

	ctl.OnStateChange(func(status domain.ConnStatus) {
		printer.connectionChanged(status)
	})

	ctl.Start()
	defer ctl.Stop()
	ctl.SetClosed(false)
	ctl.MarkRead()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer.greet(ctl)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nbye")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if done := handleLine(ctl, printer, line); done {
				return nil
			}
		}
	}
}

func handleLine(ctl *session.Controller, printer *terminalNotifier, line string) bool {
	switch strings.TrimSpace(line) {
	case "":
		return false
	case "/quit", "/exit":
		return true
	case "/retry":
		ctl.RetryConnection()
		return false
	case "/clear":
		ctl.ClearConversation()
		fmt.Println("conversation cleared")
		return false
	}

	ctl.Submit(line)

	if ctl.Gate().Visible() {
		promptGate(ctl.Gate())
	}
	return false
}

// promptGate collects the contact record interactively, mirroring the
// widget's gate form.
func promptGate(gate *session.Gate) {
	fmt.Println("Before we pass this along, how can our team reach you?")
	reader := bufio.NewReader(os.Stdin)

	for gate.Visible() {
		v := gate.View()

		fmt.Printf("  name%s: ", prefill(v.Name))
		gate.SetName(readPrompt(reader, v.Name))

		v = gate.View()
		fmt.Printf("  phone%s: ", prefill(v.Phone))
		gate.SetPhone(readPrompt(reader, v.Phone))

		v = gate.View()
		fmt.Printf("  email (optional)%s: ", prefill(v.Email))
		gate.SetEmail(readPrompt(reader, v.Email))

		if gate.Submit() {
			return
		}
		fmt.Printf("  %s\n", gate.View().Err)
	}
}

func readPrompt(reader *bufio.Reader, current string) string {
	line, err := reader.ReadString('\n')
	if err != nil {
		return current
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}

func prefill(v string) string {
	if v == "" {
		return ""
	}
	return fmt.Sprintf(" [%s]", v)
}

// terminalNotifier renders controller state changes to stdout.
type terminalNotifier struct {
	ctl *session.Controller

	mu       sync.Mutex
	rendered int
	typing   bool
}

func (t *terminalNotifier) greet(ctl *session.Controller) {
	st := view.Project(ctl.Messages(), ctl.Status(), false, 0)
	for _, m := range st.Messages {
		t.printMessage(m)
	}
	t.mu.Lock()
	t.rendered = len(st.Messages)
	t.mu.Unlock()

	if len(st.Suggestions) > 0 {
		fmt.Println("Try asking:")
		for _, s := range st.Suggestions {
			fmt.Printf("  · %s\n", s)
		}
	}
}

func (t *terminalNotifier) Render() {
	if t.ctl == nil {
		return
	}
	st := view.Project(t.ctl.Messages(), t.ctl.Status(), t.ctl.Gate().Visible(), t.ctl.Unread())

	t.mu.Lock()
	start := t.rendered
	if start > len(st.Messages) {
		start = 0 // transcript was cleared
	}
	t.rendered = len(st.Messages)
	t.mu.Unlock()

	for _, m := range st.Messages[start:] {
		t.printMessage(m)
	}
}

func (t *terminalNotifier) printMessage(m view.MessageView) {
	switch m.Role {
	case domain.RoleUser:
		fmt.Printf("you: %s\n", m.Content)
	default:
		fmt.Printf("assistant: %s\n", m.Content)
		for _, c := range m.Citations {
			fmt.Printf("  [%s] %s\n", c.Label, c.Reference)
		}
		if m.Escalate {
			fmt.Println("  → need a person? type /retry or call us: 1-800-FEASTLINE")
		}
	}
}

func (t *terminalNotifier) PlaySound() {
	fmt.Print("\a")
}

func (t *terminalNotifier) ShowTyping(active bool) {
	t.mu.Lock()
	was := t.typing
	t.typing = active
	t.mu.Unlock()
	if active && !was {
		fmt.Println("assistant is typing…")
	}
}

func (t *terminalNotifier) GateOpened() {}

func (t *terminalNotifier) connectionChanged(status domain.ConnStatus) {
	switch status.State {
	case domain.ConnOpen:
		fmt.Println("(live)")
	case domain.ConnFailed:
		fmt.Println("(offline: messages go through our standard channel, /retry to reconnect)")
	}
}

// deferredHandler breaks the construction cycle between the stream transport
// and the lifecycle manager that handles its events.
type deferredHandler struct {
	resolve func() transport.Handler
}

func (d *deferredHandler) TransportOpened()                  { d.resolve().TransportOpened() }
func (d *deferredHandler) TransportClosed(err error)         { d.resolve().TransportClosed(err) }
func (d *deferredHandler) TransportEvent(ev transport.Event) { d.resolve().TransportEvent(ev) }
