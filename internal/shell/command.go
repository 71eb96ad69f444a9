package shell

import (
	"fmt"
	"strings"
)

// Verb is a shell command name.
type Verb string

const (
	VerbHelp    Verb = "help"
	VerbRead    Verb = "read"
	VerbWrite   Verb = "write"
	VerbLs      Verb = "ls"
	VerbRoot    Verb = "root"
	VerbUp      Verb = "up"
	VerbMonitor Verb = "monitor"
	VerbCd      Verb = "cd"
	VerbExit    Verb = "exit"
)

// Verbs lists every verb in help order.
var Verbs = []Verb{VerbHelp, VerbLs, VerbCd, VerbRead, VerbWrite, VerbRoot, VerbUp, VerbMonitor, VerbExit}

// minArgs is the argument count below which a verb is a bad command.
var minArgs = map[Verb]int{
	VerbRead:    1,
	VerbCd:      1,
	VerbMonitor: 1,
	VerbWrite:   2,
}

// Command is one parsed input line.
type Command struct {
	Verb Verb
	Args []string
}

// BadCommandError reports malformed or under-supplied input. The shell
// answers it with help text and a fresh prompt.
type BadCommandError struct {
	Reason string
}

func (e *BadCommandError) Error() string {
	return "bad command: " + e.Reason
}

// LookupVerb matches name case-insensitively; unknown names map to help.
func LookupVerb(name string) (Verb, bool) {
	for _, v := range Verbs {
		if strings.EqualFold(name, string(v)) {
			return v, true
		}
	}
	return VerbHelp, false
}

// ParseCommand tokenizes line and builds a Command. Empty lines and
// unknown verbs become help. Quoting and arity problems are returned as
// *BadCommandError.
func ParseCommand(line string) (Command, error) {
	tokens, err := Tokenize(line)
	if err != nil {
		return Command{}, &BadCommandError{Reason: err.Error()}
	}
	if len(tokens) == 0 {
		return Command{Verb: VerbHelp}, nil
	}

	verb, _ := LookupVerb(tokens[0])
	args := tokens[1:]
	if n := minArgs[verb]; len(args) < n {
		return Command{}, &BadCommandError{
			Reason: fmt.Sprintf("%s needs %d argument(s), got %d", verb, n, len(args)),
		}
	}
	return Command{Verb: verb, Args: args}, nil
}
