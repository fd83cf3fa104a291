package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// execIface is the command surface the shell needs. *App satisfies it.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context, email string) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Whoami(ctx context.Context) error
	Dashboard(ctx context.Context, familyID int64) error
	ChangePassword(ctx context.Context) error
}

// runREPL reads commands from reader until EOF or "exit" and writes to out.
// It shares reader with the input prompts, so it must not buffer ahead of
// them.
//
//	Not logged in:
//	  help, login [email], status, exit
//
//	Logged in:
//	  help, whoami, dashboard <family>, passwd, status, logout, exit
//
// Handler errors are printed and the loop goes on. A session torn down in
// the background shows up as the logged-out prompt on the next iteration.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	for {
		fmt.Fprintf(out, "fw %s> ", statusFn())
		line, rerr := reader.ReadString('\n')
		if rerr != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(out, "Available commands: whoami, dashboard <family>, passwd, status, logout, exit")
			} else {
				fmt.Fprintln(out, "Available commands: login [email], status, exit")
			}

		case "login":
			email := ""
			if len(args) > 0 {
				email = args[0]
			}
			err = a.Login(ctx, email)

		case "logout":
			err = a.Logout(ctx)

		case "status":
			err = a.Status(ctx)

		case "whoami":
			err = a.Whoami(ctx)

		case "dashboard":
			if len(args) == 0 {
				fmt.Fprintln(out, "Usage: dashboard <family id>")
				continue
			}
			id, perr := strconv.ParseInt(args[0], 10, 64)
			if perr != nil {
				fmt.Fprintln(out, "Family id must be a number")
				continue
			}
			err = a.Dashboard(ctx, id)

		case "passwd":
			err = a.ChangePassword(ctx)

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(out, errStyle.Render("Error: " + err.Error()))
		}
	}
}
