// Package cli provides the interactive TeamDesk command-line client.
//
// It wires configuration, the local SQLite store, the remote mirror and the
// authentication flow, then runs a REPL. Start-up pulls the shared directory
// before the default admin is seeded, so a device joining an existing team
// picks up its users.
//
// Commands:
//   - login / logout / whoami
//   - users, adduser, edituser, deluser (directory management)
//   - sync (pull the shared directory)
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
