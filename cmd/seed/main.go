package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/townmarket/townmarket-backend/config"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/app/repository"
	"github.com/townmarket/townmarket-backend/internal/app/service"
	"github.com/townmarket/townmarket-backend/internal/db"
)

func main() {
	kindFlag := flag.String("kind", "place", "catalog to seed: place or product")
	fileFlag := flag.String("file", "", "XLSX file to import (header row: name, town_code, town_name, barangay, description, status)")
	fakeFlag := flag.Int("fake", 0, "number of generated demo entries")
	seedFlag := flag.Int64("seed", 0, "random seed for generated entries, 0 for random")
	yesFlag := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	kind := model.EntityKind(*kindFlag)
	if !kind.Valid() {
		log.Fatalf("Unknown kind %q", *kindFlag)
	}
	if *fileFlag == "" && flag.NArg() > 0 {
		*fileFlag = flag.Arg(0)
	}
	if *fileFlag == "" && *fakeFlag <= 0 {
		log.Fatal("Usage: seed [-kind place|product] [-yes] (-file <xlsx_file_path> | -fake N)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(db.GetDB()); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	var entities []model.Entity
	if *fileFlag != "" {
		fmt.Printf("Reading XLSX file: %s\n", *fileFlag)
		entities, err = readEntitiesFromXLSX(*fileFlag)
		if err != nil {
			log.Fatal("Failed to read XLSX:", err)
		}
	}
	if *fakeFlag > 0 {
		entities = append(entities, fakeEntities(kind, *fakeFlag, *seedFlag)...)
	}

	fmt.Printf("Total %s to import: %d\n", kind.Plural(), len(entities))
	if len(entities) == 0 {
		return
	}

	if !*yesFlag {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	repo := repository.NewEntityRepository(db.GetDB(), kind)
	imported, err := importEntities(repo, entities)
	if err != nil {
		log.Fatalf("Import stopped after %d %s: %v", imported, kind.Plural(), err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total %s imported: %d\n", kind.Plural(), imported)
}

// importEntities creates the entities one by one so each receives its code.
// Names are title-cased the same way the admin forms store them.
func importEntities(repo repository.EntityRepository, entities []model.Entity) (int, error) {
	for i := range entities {
		entities[i].Name = service.TitleCase(strings.TrimSpace(entities[i].Name))
		if err := repo.Create(&entities[i]); err != nil {
			return i, fmt.Errorf("row %q: %w", entities[i].Name, err)
		}
		if (i+1)%100 == 0 {
			fmt.Printf("Imported %d/%d\n", i+1, len(entities))
		}
	}
	return len(entities), nil
}
