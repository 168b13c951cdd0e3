package bell

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/config"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/platform"
)

const notifyTimeout = 5 * time.Second

// Notifier posts one desktop notification.
type Notifier interface {
	Notify(title, body string) error
}

// DesktopNotifier shells out to the platform notification command. The
// command is a template; {title} and {body} are substituted per call.
type DesktopNotifier struct {
	template []string
}

// NewNotifier builds the notifier from config. Returns nil when
// notifications are disabled; callers treat nil as a no-op.
func NewNotifier(cfg config.NotifySettings) Notifier {
	if cfg.Disabled {
		return nil
	}
	template := cfg.Command
	if len(template) == 0 {
		template = platform.DefaultNotifier()
	}
	return &DesktopNotifier{template: template}
}

func (n *DesktopNotifier) Notify(title, body string) error {
	if len(n.template) == 0 {
		return nil
	}
	argv := make([]string, len(n.template))
	for i, arg := range n.template {
		arg = strings.ReplaceAll(arg, "{title}", title)
		arg = strings.ReplaceAll(arg, "{body}", body)
		argv[i] = arg
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify command %q: %w: %s", argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
