package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cryptkeep/cryptkeep/internal/client/models"
	"github.com/cryptkeep/cryptkeep/internal/client/repositories/records"
	"github.com/cryptkeep/cryptkeep/internal/client/session"
	"github.com/cryptkeep/cryptkeep/internal/cryptox"
	"github.com/fatih/color"
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	favoriteColor = color.New(color.FgYellow)
	idColor       = color.New(color.FgHiBlack)
	labelColor    = color.New(color.FgGreen)
)

// addRecord is a small workflow helper that:
//  1. prompts for the common envelope fields (name, metadata) and the
//     concrete record details via addDetails,
//  2. delegates encryption and persistence to recordService.Add.
//
// On any failure the error is logged and returned unchanged.
func (a *App) addRecord(ctx context.Context, addDetails func(context.Context) (models.TypedDetails, error)) error {
	envelope, err := a.inputEnvelope(ctx, a.reader, addDetails)
	if err != nil {
		if errors.Is(err, errAborted) {
			return nil
		}
		a.log.Error(ctx, "input error", "error", err)
		return err
	}

	id, err := a.recordService.Add(ctx, envelope)
	if err != nil {
		if errors.Is(err, session.ErrLocked) {
			fmt.Println("Vault is locked. Use 'unlock' first.")
			return nil
		}
		a.log.Error(ctx, "error adding record", "error", err)
		return err
	}

	fmt.Printf("Saved. Record id: %s\n", id)
	return nil
}

var errAborted = errors.New("input aborted")

// AddNote collects a note body and persists it as a new record.
func (a *App) AddNote(ctx context.Context) error {
	return a.addRecord(ctx, a.addNoteDetails)
}

// AddCard collects payment-card fields and persists them as a new record.
func (a *App) AddCard(ctx context.Context) error {
	return a.addRecord(ctx, a.addCardDetails)
}

// AddLogin collects login credentials and persists them as a new record.
func (a *App) AddLogin(ctx context.Context) error {
	return a.addRecord(ctx, a.addLoginDetails)
}

// addNoteDetails prompts for a multi-line note text and returns typed details.
func (a *App) addNoteDetails(ctx context.Context) (models.TypedDetails, error) {
	text, err := GetMultiline(a.reader, "Enter note text (double Enter to finish):", os.Stdout)
	if err != nil {
		return nil, err
	}
	return models.Note{Text: text}, nil
}

// addCardDetails prompts for card details and returns typed details.
func (a *App) addCardDetails(ctx context.Context) (models.TypedDetails, error) {
	number, err := GetSimpleText(a.reader, "Enter card number", os.Stdout)
	if err != nil {
		return nil, err
	}
	expiration, err := GetSimpleText(a.reader, "Enter expiration (MM/YY)", os.Stdout)
	if err != nil {
		return nil, err
	}
	cvv, err := GetSimpleText(a.reader, "Enter CVV", os.Stdout)
	if err != nil {
		return nil, err
	}
	holder, err := GetSimpleText(a.reader, "Enter holder name", os.Stdout)
	if err != nil {
		return nil, err
	}
	return models.Card{Number: number, Expiration: expiration, CVV: cvv, Holder: holder}, nil
}

// addLoginDetails prompts for login credentials and returns typed details.
func (a *App) addLoginDetails(ctx context.Context) (models.TypedDetails, error) {
	username, err := GetSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return nil, err
	}
	password, err := GetSimpleText(a.reader, "Enter password", os.Stdout)
	if err != nil {
		return nil, err
	}
	url, err := GetSimpleText(a.reader, "Enter URL", os.Stdout)
	if err != nil {
		return nil, err
	}
	notes, err := GetSimpleText(a.reader, "Enter notes (optional)", os.Stdout)
	if err != nil {
		return nil, err
	}
	return models.Login{Username: username, Password: password, URL: url, Notes: notes}, nil
}

// inputEnvelope gathers the common envelope data (name, metadata) and
// obtains typed details via 'rest', then wraps everything into the plaintext
// envelope the record service encrypts.
func (a *App) inputEnvelope(
	ctx context.Context,
	r *bufio.Reader,
	rest func(ctx context.Context) (models.TypedDetails, error),
) (models.Envelope, error) {
	var zero models.Envelope

	name, err := GetSimpleText(r, "Enter name", os.Stdout)
	if err != nil {
		return zero, fmt.Errorf("get name: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Name is required.")
		return zero, errAborted
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	details, err := rest(ctx)
	if err != nil {
		return zero, err
	}

	md, err := GetMetadata(r, os.Stdout)
	if err != nil {
		return zero, err
	}
	metadata, err := models.MetadataFromStrings(md)
	if err != nil {
		fmt.Println("Metadata must be in name=value form.")
		return zero, errAborted
	}

	return models.Wrap(name, metadata, details)
}

// List prints the cleartext overview of all records: id, type, name. Works
// with a locked vault.
func (a *App) List(ctx context.Context) error {
	list, err := a.recordService.List(ctx)
	if err != nil {
		a.log.Error(ctx, "error listing records", "error", err)
		return err
	}
	if len(list) == 0 {
		fmt.Println("The vault is empty.")
		return nil
	}

	headerColor.Printf("%-36s  %-6s  %s\n", "ID", "TYPE", "NAME")
	for _, item := range list {
		name := item.Name
		if item.Favorite {
			name = favoriteColor.Sprint("* ") + name
		}
		fmt.Printf("%s  %-6s  %s\n", idColor.Sprintf("%-36s", item.ID), item.Type, name)
	}
	return nil
}

// Show decrypts and displays a single record by id.
func (a *App) Show(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter record id to show", os.Stdout)
	if err != nil {
		return err
	}

	envelope, err := a.recordService.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrLocked):
			fmt.Println("Vault is locked. Use 'unlock' first.")
		case errors.Is(err, records.ErrNotFound):
			fmt.Println("No record with that id.")
		case errors.Is(err, cryptox.ErrDecryptionFailed):
			fmt.Println("The record could not be decrypted.")
		default:
			a.log.Error(ctx, "error showing record", "error", err)
			return err
		}
		return nil
	}

	headerColor.Println(envelope.Name)

	details, err := envelope.Unwrap()
	if err != nil {
		return err
	}

	switch item := details.(type) {
	case models.Note:
		a.printField("Note", item.Text)

	case models.Card:
		a.printField("Number", item.Number)
		a.printField("Expiration", item.Expiration)
		a.printField("CVV", item.CVV)
		a.printField("Holder", item.Holder)

	case models.Login:
		a.printField("Username", item.Username)
		a.printField("Password", item.Password)
		a.printField("URL", item.URL)
		if item.Notes != "" {
			a.printField("Notes", item.Notes)
		}
	}

	for _, md := range envelope.Metadata {
		a.printField(md.Name, md.Value)
	}
	return nil
}

func (a *App) printField(name, value string) {
	fmt.Printf("%s %s\n", labelColor.Sprintf("%s:", name), value)
}

// Delete tombstones a record by id, prompting the user for the id.
func (a *App) Delete(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter record id to delete", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.recordService.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			fmt.Println("No record with that id.")
			return nil
		}
		a.log.Error(ctx, "error deleting record", "error", err)
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

// Favorite toggles the favorite flag on a record.
func (a *App) Favorite(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter record id", os.Stdout)
	if err != nil {
		return err
	}
	answer, err := getSimpleText(a.reader, "Favorite? (y/n)", os.Stdout)
	if err != nil {
		return err
	}
	favorite := strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")

	if err := a.recordService.SetFavorite(ctx, id, favorite); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			fmt.Println("No record with that id.")
			return nil
		}
		a.log.Error(ctx, "error updating record", "error", err)
		return err
	}
	fmt.Println("Updated.")
	return nil
}

// Sync pushes pending local changes and pulls remote ones. Only ciphertext
// moves, so sync works with a locked vault too.
func (a *App) Sync(ctx context.Context) error {
	if err := a.recordService.Sync(ctx); err != nil {
		fmt.Println("Sync failed. Changes stay queued for the next attempt.")
		a.log.Error(ctx, "sync failed", "error", err)
		return err
	}
	fmt.Println("Sync finished.")
	return nil
}
