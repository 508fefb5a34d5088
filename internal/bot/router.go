package bot

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// routed is a channel line that turned out to be addressed to the bot.
type routed struct {
	replyTo string
	command string
	args    string
}

// routeMessage decides whether a PRIVMSG is directed at the bot and, if so,
// extracts the command name and its argument string.
//
// A message counts as addressed when it starts with the bot's exact current
// nick followed by a non-alphanumeric character; "Orinoco: np" matches while
// "OrinocoFan np" must not. Whatever sits between the nick and the first
// space (":", "," and friends) is discarded. Private messages are answered
// to the sender rather than back at ourselves.
func routeMessage(me, sender, target, text string) (routed, bool) {
	if sender == "" {
		return routed{}, false
	}
	if !strings.HasPrefix(text, me) {
		return routed{}, false
	}

	rest := text[len(me):]
	if rest == "" || isAlnum(rest) {
		return routed{}, false
	}

	idx := strings.IndexByte(rest, ' ')
	if idx < 0 {
		return routed{}, false
	}
	rest = strings.TrimLeft(rest[idx:], " ")

	command, args, _ := strings.Cut(rest, " ")

	replyTo := target
	if target == me {
		replyTo = sender
	}

	return routed{replyTo: replyTo, command: command, args: args}, true
}

// isAlnum reports whether s starts with a letter or digit, in any script.
func isAlnum(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
