package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/meur/tierdeck/internal/blob"
	"github.com/meur/tierdeck/internal/storage"
)

// Bulk-imports a directory of image files into a user's library: each file
// becomes a blob object plus an image record, the same state an upload
// through POST /image produces. Non-image files are skipped with a warning.
func main() {
	dbPath := flag.String("db", "./tierdeck.db", "SQLite database path")
	dataDir := flag.String("data", "./data", "Image blob directory")
	srcDir := flag.String("src", "", "Directory of images to import")
	userID := flag.String("user", "", "Owner uid for the imported images")
	flag.Parse()

	if *srcDir == "" || *userID == "" {
		log.Fatal("Both -src and -user are required")
	}

	store, err := storage.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}
	blobs := blob.NewOS(*dataDir)

	entries, err := os.ReadDir(*srcDir)
	if err != nil {
		log.Fatalf("Failed to read source directory: %v", err)
	}

	imported := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(*srcDir, e.Name())
		if err := importOne(store, blobs, *userID, path); err != nil {
			log.Printf("Warning: skipped %s: %v", e.Name(), err)
			continue
		}
		imported++
	}

	fmt.Printf("✓ Imported %d images for %s\n", imported, *userID)
}

func importOne(store *storage.Store, blobs *blob.Store, userID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return fmt.Errorf("not an image (%s)", mtype)
	}

	id := make([]byte, 16)
	rand.Read(id)
	imageID := hex.EncodeToString(id)

	if err := blobs.Save(userID, imageID, data, mtype.String()); err != nil {
		return err
	}
	return store.CreateImage(imageID, userID)
}
