package core

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	payloadPrefix    = "my"
	payloadSeparator = ":"
)

type ActionKind int

const (
	ActionSend ActionKind = iota + 1
	ActionClear
	ActionSee
)

var actionNames = map[ActionKind]string{
	ActionSend:  "Send",
	ActionClear: "Clear",
	ActionSee:   "See",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// ParseActionKind maps a payload name back to its kind.
func ParseActionKind(name string) (ActionKind, error) {
	for kind, n := range actionNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Action is a decoded callback request: what to do with whose context.
type Action struct {
	Kind   ActionKind
	UserId int64
}

// Encode renders the callback payload, e.g. "my:Send:42".
func (a Action) Encode() string {
	return strings.Join([]string{payloadPrefix, a.Kind.String(), strconv.FormatInt(a.UserId, 10)}, payloadSeparator)
}

func DecodeAction(payload string) (Action, error) {
	parts := strings.Split(payload, payloadSeparator)
	if len(parts) != 3 || parts[0] != payloadPrefix {
		return Action{}, fmt.Errorf("%w: %q", ErrBadPayload, payload)
	}
	kind, err := ParseActionKind(parts[1])
	if err != nil {
		return Action{}, err
	}
	userId, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Action{}, fmt.Errorf("%w: user id: %v", ErrBadPayload, err)
	}
	return Action{Kind: kind, UserId: userId}, nil
}
