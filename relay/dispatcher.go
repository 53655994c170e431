package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"Relay/core"
	"Relay/holder"
	"Relay/lib/sl"
)

// ErrEmptyAnswer is returned when the model replies with no text.
var ErrEmptyAnswer = errors.New("completion returned empty answer")

const (
	EmptyContextText = "Context is empty"
	ClearedText      = "Context cleared."
)

// Dispatcher runs menu actions against a user's context.
type Dispatcher struct {
	contexts   *holder.ContextManager
	completion core.CompletionService
	log        *slog.Logger
}

func NewDispatcher(contexts *holder.ContextManager, completion core.CompletionService, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		contexts:   contexts,
		completion: completion,
		log:        log.With(sl.Module("dispatcher")),
	}
}

// Dispatch returns the text to deliver to the user. A failed completion
// leaves the context unchanged and is returned as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, action core.Action) (string, error) {
	unlock := d.contexts.Lock(action.UserId)
	defer unlock()

	log := d.log.With(sl.User(action.UserId), slog.String("action", action.Kind.String()))

	switch action.Kind {
	case core.ActionSend:
		prompt := d.contexts.Read(action.UserId)
		if prompt == "" {
			return EmptyContextText, nil
		}
		answer, err := d.completion.Complete(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("completing context: %w", err)
		}
		if answer == "" {
			return "", ErrEmptyAnswer
		}
		d.contexts.Append(action.UserId, answer)
		log.With(sl.Clip("text", answer)).Info("completion added to context")
		return answer, nil

	case core.ActionClear:
		d.contexts.Clear(action.UserId)
		log.Info("context cleared")
		return ClearedText, nil

	case core.ActionSee:
		data := d.contexts.Read(action.UserId)
		if data == "" {
			return EmptyContextText, nil
		}
		return data, nil
	}
	return "", fmt.Errorf("%w: %s", core.ErrUnknownAction, action.Kind)
}
