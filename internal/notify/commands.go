package notify

import (
	"encoding/json"
	"fmt"

	"github.com/droidpilot/droidpilot/internal/automation"
	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
	"github.com/droidpilot/droidpilot/internal/infrastructure/mqtt"
)

// Subscriber is the MQTT surface the command listener consumes.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Commander is the fleet control surface remote commands drive.
type Commander interface {
	Start(deviceID, config string, trigger automation.Trigger) error
	StartAll(config string, trigger automation.Trigger)
	Stop(deviceID string) error
	StopAll()
	Pause(deviceID string) error
	PauseAll()
	Resume(deviceID string) error
	ResumeAll()
	Reload() error
}

// Command is the JSON payload accepted on the command topic.
//
// An empty device targets the whole fleet. The config field applies to
// the start command only; empty runs the configured default.
type Command struct {
	Command string `json:"command"`
	Device  string `json:"device,omitempty"`
	Config  string `json:"config,omitempty"`
}

// CommandListener subscribes to the command topic and dispatches
// remote commands to the orchestrator.
type CommandListener struct {
	commander Commander
	topics    mqtt.Topics
	log       *logging.Logger
}

// NewCommandListener creates a listener bound to a commander.
func NewCommandListener(commander Commander, log *logging.Logger) *CommandListener {
	return &CommandListener{commander: commander, log: log}
}

// Listen subscribes to the command topic. Malformed or unknown
// commands are logged and dropped; the subscription stays alive.
func (l *CommandListener) Listen(sub Subscriber) error {
	topic := l.topics.Command()
	l.log.Info("listening for remote commands", "topic", topic)
	return sub.Subscribe(topic, 1, func(_ string, payload []byte) error {
		l.handle(payload)
		return nil
	})
}

func (l *CommandListener) handle(payload []byte) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		l.log.Warn("malformed command payload dropped", "error", err)
		return
	}

	if err := l.dispatch(cmd); err != nil {
		l.log.Warn("remote command failed",
			"command", cmd.Command, "device", cmd.Device, "error", err)
		return
	}
	l.log.Info("remote command applied", "command", cmd.Command, "device", cmd.Device)
}

func (l *CommandListener) dispatch(cmd Command) error {
	fleet := cmd.Device == ""

	switch cmd.Command {
	case "start":
		if fleet {
			l.commander.StartAll(cmd.Config, automation.TriggerManual)
			return nil
		}
		return l.commander.Start(cmd.Device, cmd.Config, automation.TriggerManual)
	case "stop":
		if fleet {
			l.commander.StopAll()
			return nil
		}
		return l.commander.Stop(cmd.Device)
	case "pause":
		if fleet {
			l.commander.PauseAll()
			return nil
		}
		return l.commander.Pause(cmd.Device)
	case "resume":
		if fleet {
			l.commander.ResumeAll()
			return nil
		}
		return l.commander.Resume(cmd.Device)
	case "reload":
		return l.commander.Reload()
	default:
		return fmt.Errorf("unknown command %q", cmd.Command)
	}
}
