// Command davcored runs the method-dispatch engine against the in-memory
// reference storage backend. It is a demonstration harness, not a
// production server: no TLS, no authentication, a single hardcoded user.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/jrudio/davcore/dav"
	"github.com/jrudio/davcore/dav/memstore"
	"github.com/jrudio/davcore/dav/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store := memstore.New("alice", true)
	store.CreateCollection(storage.Collection{Slug: "alice"})
	store.CreateCollection(storage.Collection{Slug: "alice_home", Tag: storage.TagCalendar, Name: "Home"})
	store.CreateCollection(storage.Collection{Slug: "alice_contacts", Tag: storage.TagAddressBook, Name: "Contacts"})

	handler := dav.NewHandler(dav.Config{
		Store:  store,
		Logger: logger,
	})

	addr := ":8080"
	if v := os.Getenv("DAVCORED_ADDR"); v != "" {
		addr = v
	}

	logger.Info("starting server", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
