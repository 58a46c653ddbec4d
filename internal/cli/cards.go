package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/akuzmenko/decksync/internal/models"
	"github.com/akuzmenko/decksync/internal/syncsvc"
)

func (a *App) Cards(ctx context.Context) error {
	d, err := a.pickDeck(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	cc, err := a.svc.ListCards(ctx, d.ID)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	if len(cc) == 0 {
		fmt.Println("No cards in this deck.")
		return nil
	}
	for i, c := range cc {
		fmt.Println(formatCard(i+1, c))
	}
	return nil
}

func (a *App) AddCard(ctx context.Context) error {
	d, err := a.pickDeck(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	front, err := GetSimpleText(a.reader, "Front", os.Stdout)
	if err != nil {
		return err
	}
	back, err := GetSimpleText(a.reader, "Back", os.Stdout)
	if err != nil {
		return err
	}

	c, err := a.svc.CreateCard(ctx, syncsvc.NewCard{DeckID: d.ID, Front: front, Back: back})
	if err != nil {
		log.Println(err.Error())
		return err
	}

	fmt.Printf("Added card %q to %q (%s)\n", c.Front, d.Name, c.ID)
	return nil
}

func (a *App) DeleteCard(ctx context.Context) error {
	c, err := a.pickCard(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	if err := a.svc.DeleteCard(ctx, c.ID); err != nil {
		log.Println(err.Error())
		return err
	}
	fmt.Printf("Deleted card %q\n", c.Front)
	return nil
}

func (a *App) pickCard(ctx context.Context) (*models.Card, error) {
	d, err := a.pickDeck(ctx)
	if err != nil {
		return nil, err
	}

	cc, err := a.svc.ListCards(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if len(cc) == 0 {
		return nil, fmt.Errorf("no cards in deck %q", d.Name)
	}

	for i, c := range cc {
		fmt.Println(formatCard(i+1, c))
	}
	n, err := GetNumber(a.reader, "Card number", 1, len(cc), os.Stdout)
	if err != nil {
		return nil, err
	}
	return &cc[n-1], nil
}

func formatCard(n int, c models.Card) string {
	marker := ""
	if !c.Reconciled() {
		marker = " [pending]"
	}
	return fmt.Sprintf("%3d. %s | %s%s", n, c.Front, c.Back, marker)
}
