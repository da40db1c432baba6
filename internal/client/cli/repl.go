package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	OTPLogin(ctx context.Context, args []string) error
	GoogleLogin(ctx context.Context, args []string) error
	Verify(ctx context.Context, args []string) error
	Resend(ctx context.Context, args []string) error
	ForgotPassword(ctx context.Context, args []string) error
	ResetPassword(ctx context.Context, args []string) error
	Me(ctx context.Context, args []string) error
	EditProfile(ctx context.Context, args []string) error
	UploadPicture(ctx context.Context, args []string) error
	ChangePassword(ctx context.Context, args []string) error
	Users(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
	Stats(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
}

const (
	helpAnonymous = "Available commands: register, login, otp-login, google-login, verify, resend, " +
		"forgot-password, reset-password, status, stats, exit"
	helpLoggedIn = "Available commands: me, edit-profile, upload-picture, change-password, users, " +
		"verify, resend, status, stats, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the gophauth CLI.
//
// It reads a line from reader, parses the first token as the command and
// the rest as its arguments, and dispatches to methods on 'a'. Command
// errors are printed and the loop continues. The loop exits on EOF, when
// ctx is done, or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "ga %s> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, helpLoggedIn)
			} else {
				fmt.Fprintln(w, helpAnonymous)
			}

		case "register":
			cmdErr = a.Register(ctx, args)
		case "login":
			cmdErr = a.Login(ctx, args)
		case "otp-login":
			cmdErr = a.OTPLogin(ctx, args)
		case "google-login":
			cmdErr = a.GoogleLogin(ctx, args)
		case "verify":
			cmdErr = a.Verify(ctx, args)
		case "resend":
			cmdErr = a.Resend(ctx, args)
		case "forgot-password":
			cmdErr = a.ForgotPassword(ctx, args)
		case "reset-password":
			cmdErr = a.ResetPassword(ctx, args)
		case "me":
			cmdErr = a.Me(ctx, args)
		case "edit-profile":
			cmdErr = a.EditProfile(ctx, args)
		case "upload-picture":
			cmdErr = a.UploadPicture(ctx, args)
		case "change-password":
			cmdErr = a.ChangePassword(ctx, args)
		case "users":
			cmdErr = a.Users(ctx, args)
		case "status":
			cmdErr = a.Status(ctx, args)
		case "stats":
			cmdErr = a.Stats(ctx, args)
		case "logout":
			cmdErr = a.Logout(ctx, args)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			printError(w, cmdErr)
		}
	}
}

// printError shows backend field errors one per line.
func printError(w io.Writer, err error) {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		fmt.Fprintln(w, "Error:", err)
		return
	}

	for _, msg := range apiErr.GeneralErrors() {
		fmt.Fprintln(w, "Error:", msg)
	}
	fields := apiErr.FieldErrors()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %s\n", name, strings.Join(fields[name], " "))
	}
	if len(names) == 0 && len(apiErr.GeneralErrors()) == 0 {
		fmt.Fprintln(w, "Error:", err)
	}
}
