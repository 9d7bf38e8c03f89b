// Package cli provides the interactive FRAS command-line client.
//
// It wires configuration, local storage, the backend client, the biometric
// gate and the session controller, and runs a REPL on top of them. On start
// the persisted session is restored; a background watcher tracks whether the
// backend is reachable and shows it in the prompt.
//
// Key features:
//   - Register / Login / Logout
//   - Biometric login (passcode fallback on a terminal) and its toggle
//   - Profile update, password change, password reset
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
