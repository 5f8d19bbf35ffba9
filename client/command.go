package client

import "strings"

type CommandKind int

const (
	CommandSend CommandKind = iota
	CommandFile
	CommandHistory
	CommandState
	CommandHelp
	CommandQuit
	CommandUnknown
)

// Command is one line typed in the chat panel.
type Command struct {
	Kind CommandKind
	Arg  string
}

// ParseCommand reads a slash command, anything else is text to send.
// A leading "//" escapes a message that starts with a slash.
func ParseCommand(line string) Command {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "//") {
		return Command{Kind: CommandSend, Arg: trimmed[1:]}
	}
	if !strings.HasPrefix(trimmed, "/") {
		return Command{Kind: CommandSend, Arg: line}
	}

	name, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case "/file":
		return Command{Kind: CommandFile, Arg: arg}
	case "/history":
		return Command{Kind: CommandHistory}
	case "/state":
		return Command{Kind: CommandState}
	case "/help":
		return Command{Kind: CommandHelp}
	case "/quit", "/exit":
		return Command{Kind: CommandQuit}
	default:
		return Command{Kind: CommandUnknown, Arg: name}
	}
}

const helpText = `commands:
  <text>         send a message
  /file <path>   send a file
  /history       show the conversation
  /state         show the connection state
  /quit          leave the chat`
