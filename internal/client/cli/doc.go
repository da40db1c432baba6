// Package cli provides the interactive gophauth command-line client.
//
// It wires configuration, local storage, the HTTP client and the session,
// OTP and password-reset flows into a REPL. On start the previous session
// and any unexpired verification are restored.
//
// Key features:
//   - Register, log in with a password, a phone code or a Google ID token
//   - Verify and resend one-time codes, including emailed links
//   - Forgot / reset password
//   - Show and edit the profile, upload a picture, change the password
//   - List users, show status and client metrics
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
