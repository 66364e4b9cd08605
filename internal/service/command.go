package service

// Command is one entry of the closed command set.
type Command int

const (
	CommandConnect Command = iota + 1
	CommandClose
	CommandGetConnectionSize
	CommandSetConnectionSize
	CommandRead
	CommandWrite
	CommandGetPLCTime
	CommandSetPLCTime
	CommandGetTagList
	CommandGetProgramTagList
	CommandGetProgramsList
	CommandDiscover
	CommandGetModuleProperties
	CommandGetDeviceProperties

	commandEnd
)

var commandNames = map[Command]string{
	CommandConnect:             "connect",
	CommandClose:               "close",
	CommandGetConnectionSize:   "get-connection-size",
	CommandSetConnectionSize:   "set-connection-size",
	CommandRead:                "read",
	CommandWrite:               "write",
	CommandGetPLCTime:          "get-plc-time",
	CommandSetPLCTime:          "set-plc-time",
	CommandGetTagList:          "get-tag-list",
	CommandGetProgramTagList:   "get-program-tag-list",
	CommandGetProgramsList:     "get-programs-list",
	CommandDiscover:            "discover",
	CommandGetModuleProperties: "get-module-properties",
	CommandGetDeviceProperties: "get-device-properties",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for c, name := range commandNames {
		m[name] = c
	}
	return m
}()

// ParseCommand maps a wire name to its Command.
func ParseCommand(name string) (Command, bool) {
	c, ok := commandsByName[name]
	return c, ok
}

// Commands returns every command in declaration order.
func Commands() []Command {
	cmds := make([]Command, 0, int(commandEnd)-1)
	for c := CommandConnect; c < commandEnd; c++ {
		cmds = append(cmds, c)
	}
	return cmds
}

// String returns the wire name.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Mutating reports whether the command changes session or controller state.
func (c Command) Mutating() bool {
	switch c {
	case CommandConnect, CommandClose, CommandSetConnectionSize, CommandWrite, CommandSetPLCTime:
		return true
	default:
		return false
	}
}
