package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Decks(ctx context.Context) error
	AddDeck(ctx context.Context) error
	DeleteDeck(ctx context.Context) error
	Cards(ctx context.Context) error
	AddCard(ctx context.Context) error
	DeleteCard(ctx context.Context) error
	Review(ctx context.Context) error
	Sync(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the decksync CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// The prompt shows the current connectivity mode (from statusFn) and accepts:
//
//	  - help           — show available commands
//	  - decks | l      — list decks
//	  - add            — create a deck
//	  - del            — delete a deck
//	  - cards          — list a deck's cards
//	  - addcard        — add a card to a deck
//	  - delcard        — delete a card
//	  - review         — review due cards of a deck
//	  - sync           — run a reconciliation pass now
//	  - exit | quit    — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("ds> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			printlnFn("Available commands: (l)decks, add, del, cards, addcard, delcard, review, sync, exit")

		case "l", "decks":
			_ = a.Decks(ctx)

		case "add":
			_ = a.AddDeck(ctx)

		case "del":
			_ = a.DeleteDeck(ctx)

		case "cards":
			_ = a.Cards(ctx)

		case "addcard":
			_ = a.AddCard(ctx)

		case "delcard":
			_ = a.DeleteCard(ctx)

		case "review":
			_ = a.Review(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
