package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests provide a lightweight stub.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	Signup(ctx context.Context, name, email, role string) error
	Login(ctx context.Context, email string) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Open(ctx context.Context, path string) error
	Calc(ctx context.Context, args []string) error
}

// runREPL reads one command per line from reader and dispatches it to a.
// It returns on EOF, "exit" or "quit", or when ctx is done. The reader is
// shared with the credential prompts, so it is read line by line rather
// than through a scanner.
//
// Errors from the handlers are not fatal: the handlers already told the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}

		fmt.Fprintf(out, "carbonx%s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				fmt.Fprintln(out, "Available commands: whoami, open <path>, calc <num1> <add|multiply> <num2>, logout, exit")
			} else {
				fmt.Fprintln(out, "Available commands: signup, login, open <path>, exit")
			}
		case "signup":
			_ = a.Signup(ctx, "", "", "")
		case "login":
			email := ""
			if len(args) > 0 {
				email = args[0]
			}
			_ = a.Login(ctx, email)
		case "logout":
			_ = a.Logout(ctx)
		case "whoami":
			_ = a.WhoAmI(ctx)
		case "open":
			if len(args) != 1 {
				fmt.Fprintln(out, "Usage: open <path>")
				continue
			}
			_ = a.Open(ctx, args[0])
		case "calc":
			_ = a.Calc(ctx, args)
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return
		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}
	}
}

// Shell runs the REPL on the app's input.
func (a *App) Shell(ctx context.Context) error {
	a.printf("Welcome to CarbonX CLI (type 'help' for commands)\n")
	runREPL(ctx, a, func() string { return a.status(ctx) }, a.reader, a.out)
	return nil
}

func (a *App) status(ctx context.Context) string {
	s, err := a.authService.Current(ctx)
	if err != nil || s == nil {
		return ""
	}
	return fmt.Sprintf(" (%s %s)", s.User.Email, s.User.Role)
}
