package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/meur/tierdeck/internal/models"
	"github.com/meur/tierdeck/internal/storage"
)

// Seeds the database with starter templates from a directory of JSON
// documents. Each file is one template body in the same shape PUT /template
// accepts.
func main() {
	dbPath := flag.String("db", "./tierdeck.db", "SQLite database path")
	seedsDir := flag.String("seeds", "./seeds", "Seeds directory")
	owner := flag.String("owner", "seed", "Owner uid for the seeded templates")
	flag.Parse()

	store, err := storage.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	entries, err := os.ReadDir(*seedsDir)
	if err != nil {
		log.Fatalf("Failed to read seeds directory: %v", err)
	}

	seeded := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(*seedsDir, e.Name())
		if err := seedTemplate(store, path, *owner); err != nil {
			log.Printf("Warning: failed to seed %s: %v", e.Name(), err)
			continue
		}
		log.Printf("✓ Seeded template from %s", e.Name())
		seeded++
	}

	log.Printf("🌱 Seeding complete: %d templates", seeded)
}

func seedTemplate(store *storage.Store, path, owner string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	template, err := models.ParseTemplate(data)
	if err != nil {
		return err
	}

	id, err := store.UniqueID("templates")
	if err != nil {
		return err
	}
	template.TemplateID = &id
	template.Owner = &owner

	// Seeded templates are public starter content.
	return store.CreateTemplate(&storage.Record{
		ID:        id,
		Owner:     owner,
		IsPrivate: false,
		Doc:       template,
	})
}
