// Package cli implements the famwealth command-line client.
//
// One-shot commands (login, logout, status, whoami, dashboard, passwd) are
// cobra commands; "shell" starts an interactive loop over the same
// operations. Both share an App, which wires the credential store, the
// session manager, the request guard and the API client.
//
// When a background renewal fails the session manager tears the session
// down; the App prints a notice and the shell prompt falls back to the
// logged-out state, which is this client's entry point.
package cli
