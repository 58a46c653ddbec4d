package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/akuzmenko/decksync/internal/models"
	"github.com/akuzmenko/decksync/internal/syncsvc"
)

func (a *App) Decks(ctx context.Context) error {
	dd, err := a.svc.ListDecks(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	if len(dd) == 0 {
		fmt.Println("No decks yet.")
		return nil
	}
	for i, d := range dd {
		fmt.Println(formatDeck(i+1, d))
	}
	return nil
}

func (a *App) AddDeck(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Deck name", os.Stdout)
	if err != nil {
		return err
	}
	descr, err := GetSimpleText(a.reader, "Description (optional)", os.Stdout)
	if err != nil {
		return err
	}

	d, err := a.svc.CreateDeck(ctx, syncsvc.NewDeck{Name: name, Description: descr})
	if err != nil {
		log.Println(err.Error())
		return err
	}

	fmt.Printf("Created deck %q (%s)\n", d.Name, d.ID)
	return nil
}

func (a *App) DeleteDeck(ctx context.Context) error {
	d, err := a.pickDeck(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	if err := a.svc.DeleteDeck(ctx, d.ID); err != nil {
		log.Println(err.Error())
		return err
	}
	fmt.Printf("Deleted deck %q\n", d.Name)
	return nil
}

// pickDeck lists decks and asks for a number.
func (a *App) pickDeck(ctx context.Context) (*models.Deck, error) {
	dd, err := a.svc.ListDecks(ctx)
	if err != nil {
		return nil, err
	}
	if len(dd) == 0 {
		return nil, fmt.Errorf("no decks")
	}

	for i, d := range dd {
		fmt.Println(formatDeck(i+1, d))
	}
	n, err := GetNumber(a.reader, "Deck number", 1, len(dd), os.Stdout)
	if err != nil {
		return nil, err
	}
	return &dd[n-1], nil
}

func formatDeck(n int, d models.Deck) string {
	marker := ""
	if !d.Reconciled() {
		marker = " [pending]"
	}
	return fmt.Sprintf("%3d. %s%s  (%d cards, %d new, %d due)",
		n, d.Name, marker, d.CardTotal, d.DueNew, d.DueReview)
}
