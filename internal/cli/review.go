package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/akuzmenko/decksync/internal/models"
)

// Review runs a study session over one deck: every due card is shown front
// first, then graded 1..4 (again, hard, good, easy). 0 ends the session.
func (a *App) Review(ctx context.Context) error {
	d, err := a.pickDeck(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	due, err := a.svc.DueCards(ctx, d.ID)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	if len(due) == 0 {
		fmt.Println("Nothing due. Come back later.")
		return nil
	}

	fmt.Printf("%d cards to review in %q\n", len(due), d.Name)
	for _, c := range due {
		fmt.Printf("\nQ: %s\n", c.Front)
		shown := time.Now()
		if _, err := GetSimpleText(a.reader, "(Enter to flip)", os.Stdout); err != nil {
			return err
		}
		fmt.Printf("A: %s\n", c.Back)

		n, err := GetNumber(a.reader, "Grade: 1 again, 2 hard, 3 good, 4 easy, 0 stop", 0, 4, os.Stdout)
		if err != nil {
			log.Println(err.Error())
			continue
		}
		if n == 0 {
			return nil
		}

		if _, err := a.svc.ReviewCard(ctx, c.ID, models.Rating(n), time.Since(shown)); err != nil {
			log.Println(err.Error())
		}
	}
	fmt.Println("Session finished.")
	return nil
}
