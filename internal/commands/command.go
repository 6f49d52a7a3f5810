package commands

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/dusk/internal/model"
)

type Type string

const (
	TypeAdd       Type = "add"
	TypeDone      Type = "done"
	TypeRemove    Type = "rm"
	TypeImportant Type = "star"
	TypeRemind    Type = "remind"
	TypeHelp      Type = "help"
)

// aliases maps alternate spellings onto the canonical command.
var aliases = map[string]Type{
	"new":       TypeAdd,
	"complete":  TypeDone,
	"delete":    TypeRemove,
	"del":       TypeRemove,
	"important": TypeImportant,
	"reminder":  TypeRemind,
	"?":         TypeHelp,
}

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AddArgs is parsed from "add <title> [due:<date>] [!]". Due accepts a
// YYYY-MM-DD date or the words today and tomorrow; the handler resolves them.
type AddArgs struct {
	Title     string
	Due       string
	Important bool
}

// TaskArgs names a task either by its 1-based position in the visible list
// or by an id prefix.
type TaskArgs struct {
	Target string
}

type RemindAction string

const (
	RemindOn     RemindAction = "on"
	RemindOff    RemindAction = "off"
	RemindAt     RemindAction = "at"
	RemindTest   RemindAction = "test"
	RemindStatus RemindAction = "status"
)

type RemindArgs struct {
	Action RemindAction
	Time   string
}

type Command struct {
	Type   Type
	Raw    string
	Add    *AddArgs
	Task   *TaskArgs
	Remind *RemindArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	typ := Type(head)
	if alias, ok := aliases[head]; ok {
		typ = alias
	}

	switch typ {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeDone, TypeRemove, TypeImportant:
		return parseTask(input, typ, args)
	case TypeRemind:
		return parseRemind(input, args)
	case TypeHelp:
		return Command{Type: TypeHelp, Raw: input}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	out := AddArgs{}
	words := make([]string, 0, len(args))
	for _, arg := range args {
		lower := strings.ToLower(arg)
		switch {
		case arg == "!":
			out.Important = true
		case strings.HasPrefix(lower, "due:"):
			out.Due = strings.TrimSpace(arg[len("due:"):])
			if out.Due == "" {
				return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "due: needs a date"}
			}
		default:
			words = append(words, arg)
		}
	}
	out.Title = strings.TrimSpace(strings.Join(words, " "))
	if out.Title == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title"}
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &out}, nil
}

func parseTask(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires one task number or id", typ)}
	}
	return Command{Type: typ, Raw: raw, Task: &TaskArgs{Target: args[0]}}, nil
}

func parseRemind(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{Type: TypeRemind, Raw: raw, Remind: &RemindArgs{Action: RemindStatus}}, nil
	}
	action := RemindAction(strings.ToLower(args[0]))
	switch action {
	case "enable":
		action = RemindOn
	case "disable":
		action = RemindOff
	}
	switch action {
	case RemindOn, RemindOff, RemindTest, RemindStatus:
		if len(args) > 1 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("remind %s takes no arguments", action)}
		}
		return Command{Type: TypeRemind, Raw: raw, Remind: &RemindArgs{Action: action}}, nil
	case RemindAt:
		if len(args) != 2 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "remind at requires a time like 21:00"}
		}
		clock, err := model.ParseClock(args[1])
		if err != nil {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("remind at: %v", err)}
		}
		return Command{Type: TypeRemind, Raw: raw, Remind: &RemindArgs{Action: RemindAt, Time: clock.String()}}, nil
	default:
		// "remind 21:30" is shorthand for "remind at 21:30".
		if clock, err := model.ParseClock(args[0]); err == nil && len(args) == 1 {
			return Command{Type: TypeRemind, Raw: raw, Remind: &RemindArgs{Action: RemindAt, Time: clock.String()}}, nil
		}
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown remind action: %s", args[0])}
	}
}
