package cli

import (
	"context"
	"fmt"
	"log"
)

// Sync runs a reconciliation pass right now, without waiting for the next
// reconnect edge.
func (a *App) Sync(ctx context.Context) error {
	st, err := a.engine.Run(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	if st.Empty() {
		fmt.Println("Nothing to sync.")
		return nil
	}
	fmt.Printf("Synced: %d decks created, %d adopted, %d updated, %d deleted; %d cards created, %d adopted, %d updated, %d deleted; %d failed\n",
		st.DecksCreated, st.DecksAdopted, st.DecksUpdated, st.DecksDeleted,
		st.CardsCreated, st.CardsAdopted, st.CardsUpdated, st.CardsDeleted, st.Failed)
	return nil
}
