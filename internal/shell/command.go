package shell

// Command is the closed set of operations the host may request, plus an
// explicit unknown variant for any tag outside the set.
type Command int

const (
	CommandUnknown Command = iota
	CommandTest
	CommandInfo
	CommandShell
	CommandExec
	CommandPull
	CommandBootloader
	CommandExit
)

// Request tags as they appear in the first four bytes of a request frame.
var (
	TagTest       = [TagSize]byte{'T', 'E', 'S', 'T'}
	TagInfo       = [TagSize]byte{'I', 'N', 'F', 'O'}
	TagShell      = [TagSize]byte{'S', 'H', 'E', 'L'}
	TagExec       = [TagSize]byte{'E', 'X', 'E', 'C'}
	TagPull       = [TagSize]byte{'P', 'U', 'L', 'L'}
	TagBootloader = [TagSize]byte{'B', 'L', 'D', 'R'}
	TagExit       = [TagSize]byte{'E', 'X', 'I', 'T'}
)

// ParseTag maps a raw request tag onto the command set. Anything outside
// the set is CommandUnknown, which the dispatcher answers with the generic
// error result.
func ParseTag(tag [TagSize]byte) Command {
	switch tag {
	case TagTest:
		return CommandTest
	case TagInfo:
		return CommandInfo
	case TagShell:
		return CommandShell
	case TagExec:
		return CommandExec
	case TagPull:
		return CommandPull
	case TagBootloader:
		return CommandBootloader
	case TagExit:
		return CommandExit
	default:
		return CommandUnknown
	}
}

func (c Command) String() string {
	switch c {
	case CommandTest:
		return "TEST"
	case CommandInfo:
		return "INFO"
	case CommandShell:
		return "SHEL"
	case CommandExec:
		return "EXEC"
	case CommandPull:
		return "PULL"
	case CommandBootloader:
		return "BLDR"
	case CommandExit:
		return "EXIT"
	default:
		return "unknown"
	}
}
