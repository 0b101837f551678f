// Package command declares the admin command surface as an external
// collaborator: the manager shape a full implementation would register
// /alert, /find, /ping, /hub, /send, /showall, /server, and /velocity
// against, without implementing any of them. The connection pipeline never
// calls into this package; it exists so config.AnnounceProxyCommands has
// something concrete to gate once a real command backend is wired in.
package command

// Source is whatever invoked a command: a connected player or the console.
type Source interface {
	// HasPermission reports whether the source may run a command gated on
	// node.
	HasPermission(node string) bool
	// SendMessage delivers feedback back to the invoker.
	SendMessage(text string) error
}

// Handler executes one parsed command invocation.
type Handler func(src Source, args []string) error

// Manager registers and dispatches commands against a source capability
// tag. A real implementation would back this with a parser (the teacher
// uses go.minekube.com/brigodier); this stub only fixes the shape so
// register/unregister call sites compile against a stable interface.
type Manager interface {
	// Register adds a command under name and any aliases, replacing a
	// prior registration under the same name.
	Register(name string, h Handler, aliases ...string)
	// Unregister removes a command and its aliases.
	Unregister(name string)
	// Dispatch runs the command named by the first token of line on behalf
	// of src, or returns false if no command matched.
	Dispatch(src Source, line string) (ran bool, err error)
}
