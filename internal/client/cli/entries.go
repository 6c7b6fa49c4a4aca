package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
	"github.com/dmitrijs2005/otpvault/internal/client/services"
	"github.com/dmitrijs2005/otpvault/internal/common"
	"github.com/dmitrijs2005/otpvault/internal/filex"
	"github.com/dmitrijs2005/otpvault/internal/otp"
	"github.com/dmitrijs2005/otpvault/internal/otpauth"
)

const qrSize = 256

var errAmbiguousID = errors.New("id prefix matches more than one entry")

// resolve finds an entry by full id or unique id prefix.
func (a *App) resolve(prefix string) (models.VaultEntry, error) {
	if e, err := a.vault.Entry(prefix); err == nil {
		return e, nil
	}
	var found []models.VaultEntry
	for _, e := range a.vault.Entries() {
		if strings.HasPrefix(e.ID, prefix) {
			found = append(found, e)
		}
	}
	switch len(found) {
	case 0:
		return models.VaultEntry{}, fmt.Errorf("%w: %s", common.ErrEntryNotFound, prefix)
	case 1:
		return found[0], nil
	default:
		return models.VaultEntry{}, fmt.Errorf("%w: %s", errAmbiguousID, prefix)
	}
}

func (a *App) resolveArg(args []string, n int, usage string) (models.VaultEntry, error) {
	if len(args) < n {
		return models.VaultEntry{}, usageError{usage}
	}
	return a.resolve(args[0])
}

// add prompts for each field. Blank digits, period or algorithm keep the
// defaults.
func (a *App) add(ctx context.Context, _ []string) error {
	issuer, err := GetSimpleText(a.reader, "Issuer", a.out)
	if err != nil {
		return err
	}
	label, err := GetSimpleText(a.reader, "Account label", a.out)
	if err != nil {
		return err
	}
	secret, err := getPassword("Secret (Base32)", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	digits, err := a.optionalInt("Digits [6]")
	if err != nil {
		return err
	}
	period, err := a.optionalInt("Period in seconds [30]")
	if err != nil {
		return err
	}
	alg, err := GetSimpleText(a.reader, "Algorithm [SHA-1]", a.out)
	if err != nil {
		return err
	}

	e, err := a.vault.AddEntry(ctx, models.VaultEntry{
		Issuer:    issuer,
		Label:     label,
		Secret:    string(secret),
		Digits:    digits,
		Period:    period,
		Algorithm: otp.Algorithm(alg),
	})
	if err != nil {
		return err
	}
	a.printf("Added %s (%s / %s)\n", shortID(e.ID), e.Issuer, e.Label)
	return nil
}

func (a *App) optionalInt(prompt string) (int, error) {
	s, err := GetSimpleText(a.reader, prompt, a.out)
	if err != nil || s == "" {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return n, nil
}

func (a *App) addURL(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{"addurl <otpauth-uri>"}
	}
	k, err := otpauth.Parse(args[0])
	if err != nil {
		return err
	}
	e, err := a.vault.AddEntry(ctx, services.EntryFromKey(k))
	if err != nil {
		return err
	}
	a.printf("Added %s (%s / %s)\n", shortID(e.ID), e.Issuer, e.Label)
	return nil
}

func (a *App) remove(ctx context.Context, args []string) error {
	e, err := a.resolveArg(args, 1, "rm <id>")
	if err != nil {
		return err
	}
	if !Confirm(a.reader, fmt.Sprintf("Remove %s / %s?", e.Issuer, e.Label), a.out) {
		a.println("Cancelled")
		return nil
	}
	if err := a.vault.RemoveEntry(ctx, e.ID); err != nil {
		return err
	}
	a.println("Removed")
	return nil
}

func (a *App) show(_ context.Context, args []string) error {
	e, err := a.resolveArg(args, 1, "show <id>")
	if err != nil {
		return err
	}
	a.printEntry(e)
	return nil
}

func (a *App) tag(ctx context.Context, args []string) error {
	e, err := a.resolveArg(args, 2, "tag <id> <tag>")
	if err != nil {
		return err
	}
	e, err = a.vault.AddTag(ctx, e.ID, args[1])
	if err != nil {
		return err
	}
	a.printf("Tags: %s\n", strings.Join(e.Tags, ", "))
	return nil
}

func (a *App) untag(ctx context.Context, args []string) error {
	e, err := a.resolveArg(args, 2, "untag <id> <tag>")
	if err != nil {
		return err
	}
	e, err = a.vault.RemoveTag(ctx, e.ID, args[1])
	if err != nil {
		return err
	}
	a.printf("Tags: %s\n", strings.Join(e.Tags, ", "))
	return nil
}

// group with no name removes the entry from its group.
func (a *App) group(ctx context.Context, args []string) error {
	e, err := a.resolveArg(args, 1, "group <id> [name]")
	if err != nil {
		return err
	}
	name := strings.Join(args[1:], " ")
	e, err = a.vault.SetGroup(ctx, e.ID, name)
	if err != nil {
		return err
	}
	if g := e.GroupName(); g != "" {
		a.printf("Group: %s\n", g)
	} else {
		a.println("Ungrouped")
	}
	return nil
}

func (a *App) favorite(ctx context.Context, args []string) error {
	e, err := a.resolveArg(args, 1, "fav <id>")
	if err != nil {
		return err
	}
	e, err = a.vault.ToggleFavorite(ctx, e.ID)
	if err != nil {
		return err
	}
	a.printf("Favorite: %t\n", e.Favorite)
	return nil
}

func (a *App) note(ctx context.Context, args []string) error {
	e, err := a.resolveArg(args, 1, "note <id>")
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Notes (replaces the current text)", a.out)
	if err != nil {
		return err
	}
	if _, err := a.vault.UpdateNotes(ctx, e.ID, text); err != nil {
		return err
	}
	a.println("Notes saved")
	return nil
}

func (a *App) verify(_ context.Context, args []string) error {
	e, err := a.resolveArg(args, 2, "verify <id> <code>")
	if err != nil {
		return err
	}
	ok, err := a.tokens.Verify(e, args[1], 1)
	if err != nil {
		return err
	}
	if ok {
		a.println("Code is valid")
	} else {
		a.println("Code is NOT valid")
	}
	return nil
}

func (a *App) qr(_ context.Context, args []string) error {
	e, err := a.resolveArg(args, 2, "qr <id> <file.png>")
	if err != nil {
		return err
	}
	png, err := otpauth.QRCode(services.KeyFor(e), qrSize)
	if err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(args[1], png, 0o600); err != nil {
		return fmt.Errorf("write qr code: %w", err)
	}
	a.printf("QR code written to %s\n", args[1])
	return nil
}
