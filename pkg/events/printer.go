package events

import (
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"gopkg.in/yaml.v3"
)

// TurnPrinterFunc returns a watermill handler that renders turn events to w
// in a terminal-friendly form.
func TurnPrinterFunc(name string, w io.Writer) func(msg *message.Message) error {
	isFirst := true

	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		switch p_ := e.(type) {
		case *EventContent:
			if isFirst && name != "" {
				isFirst = false
				if _, err := fmt.Fprintf(w, "\n%s: \n", name); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%s", p_.Text); err != nil {
				return err
			}

		case *EventThought:
			if p_.Thought.Subject != "" {
				if _, err := fmt.Fprintf(w, "\n[thinking] %s\n", p_.Thought.Subject); err != nil {
					return err
				}
			}
			if p_.Thought.Description != "" {
				if _, err := fmt.Fprintf(w, "%s\n", p_.Thought.Description); err != nil {
					return err
				}
			}

		case *EventToolCallRequest:
			v_, err := yaml.Marshal(p_.ToolCallRequest)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "\n%s\n", v_); err != nil {
				return err
			}

		case *EventCitation:
			if _, err := fmt.Fprintf(w, "\nCitations:\n%s\n", p_.Text); err != nil {
				return err
			}

		case *EventFinished:
			if !strings.HasSuffix(p_.Reason, "\n") {
				if _, err := fmt.Fprintf(w, "\n"); err != nil {
					return err
				}
			}

		case *EventExecutionStopped:
			if _, err := fmt.Fprintf(w, "\n[stopped] %s\n", p_.Reason); err != nil {
				return err
			}

		case *EventExecutionBlocked:
			if _, err := fmt.Fprintf(w, "\n[blocked] %s\n", p_.Reason); err != nil {
				return err
			}

		case *EventUserCancelled:
			if _, err := fmt.Fprintf(w, "\n[cancelled]\n"); err != nil {
				return err
			}

		case *EventInvalidStream:
			if _, err := fmt.Fprintf(w, "\n[invalid stream] %s\n", p_.Message); err != nil {
				return err
			}

		case *EventError:
			if _, err := fmt.Fprintf(w, "\n[error] %s\n", p_.Err.Message); err != nil {
				return err
			}

		case *EventRetry:
			// transient, nothing to render
		}

		return nil
	}
}
