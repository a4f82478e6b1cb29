package notifybridge

import (
	"github.com/loonghao/notify-bridge-go/notifiers/feishu"
	"github.com/loonghao/notify-bridge-go/notifiers/github"
	"github.com/loonghao/notify-bridge-go/notifiers/notify"
	"github.com/loonghao/notify-bridge-go/notifiers/shoutrrr"
	"github.com/loonghao/notify-bridge-go/notifiers/telegram"
	"github.com/loonghao/notify-bridge-go/notifiers/webhook"
	"github.com/loonghao/notify-bridge-go/notifiers/wecom"
	"github.com/loonghao/notify-bridge-go/registry"
)

// registerBuiltins seeds a registry with the built-in platform notifiers.
// Callers can still override any of them: later registrations win.
func registerBuiltins(reg *registry.Registry) {
	reg.Register(webhook.Name, webhook.New)
	reg.Register(feishu.Name, feishu.New)
	reg.Register(wecom.Name, wecom.New)
	reg.Register(github.Name, github.New)
	reg.Register(notify.Name, notify.New)
	reg.Register(telegram.Name, telegram.New)
	reg.Register(shoutrrr.Name, shoutrrr.New)
}
