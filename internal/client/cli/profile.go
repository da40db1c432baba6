package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	return nil
}

// Me fetches and prints the current profile.
func (a *App) Me(ctx context.Context, _ []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	u, err := a.session.FetchProfile(ctx)
	if err != nil {
		return err
	}
	a.printUser(u)
	return nil
}

func (a *App) printUser(u *models.User) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", u.ID)
	fmt.Fprintf(tw, "Username\t%s\n", u.Username)
	fmt.Fprintf(tw, "Name\t%s\n", u.FullName())
	fmt.Fprintf(tw, "Email\t%s\n", u.Email)
	fmt.Fprintf(tw, "Phone\t%s\n", u.PhoneNumber)
	fmt.Fprintf(tw, "Address\t%s\n", u.Address)
	if pic := a.media.Resolve(u.ProfilePicture); pic != "" {
		fmt.Fprintf(tw, "Picture\t%s\n", pic)
	}
	_ = tw.Flush()
}

// EditProfile asks for each field; an empty answer keeps the current value.
func (a *App) EditProfile(ctx context.Context, _ []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	cur := a.session.Snapshot().User
	if cur == nil {
		var err error
		if cur, err = a.session.FetchProfile(ctx); err != nil {
			return err
		}
	}

	var upd models.ProfileUpdate
	fields := []struct {
		prompt  string
		current string
		dst     **string
	}{
		{"Username", cur.Username, &upd.Username},
		{"First name", cur.FirstName, &upd.FirstName},
		{"Last name", cur.LastName, &upd.LastName},
		{"Email", cur.Email, &upd.Email},
		{"Phone number", cur.PhoneNumber, &upd.PhoneNumber},
		{"Address", cur.Address, &upd.Address},
	}
	for _, f := range fields {
		v, ok, err := getOptionalText(a.reader, f.prompt, f.current, a.out)
		if err != nil {
			return err
		}
		if ok && v != f.current {
			*f.dst = &v
		}
	}
	if upd.PhoneNumber != nil {
		p := models.NormalizePhone(*upd.PhoneNumber)
		upd.PhoneNumber = &p
	}

	if upd.Empty() {
		fmt.Fprintln(a.out, "Nothing to update.")
		return nil
	}

	u, err := a.session.UpdateProfile(ctx, upd)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Profile updated.")
	a.printUser(u)
	return nil
}

// UploadPicture replaces the profile picture with a local image file.
func (a *App) UploadPicture(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	path, err := a.argOrPrompt(args, "Enter path to image")
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	u, err := a.session.UploadPicture(ctx, path, f)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Picture uploaded:", a.media.Resolve(u.ProfilePicture))
	return nil
}

// ChangePassword changes the password of the signed-in user.
func (a *App) ChangePassword(ctx context.Context, _ []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	old, err := getPassword("Enter current password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(old)

	pw, _, err := a.readNewPassword("Enter new password")
	if err != nil {
		return err
	}

	msg, err := a.session.ChangePassword(ctx, string(old), pw)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Password changed."
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

// Users lists the accounts visible to the signed-in user.
func (a *App) Users(ctx context.Context, _ []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	users, err := a.api.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(a.out, "No users.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tNAME\tCONTACT")
	for i := range users {
		u := &users[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.FullName(), u.Contact())
	}
	return tw.Flush()
}
