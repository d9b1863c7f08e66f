package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/nearify/nearify-backend/config"
	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/internal/db"
	"github.com/nearify/nearify-backend/pkg/util"
	"github.com/xuri/excelize/v2"
)

// Imports curated listings from an xlsx workbook. Expected columns:
// Name | Category | Address | City | State | ZipCode | Phone | Website |
// Rating | ReviewCount | OpenTime | CloseTime
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}
	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	listingRepo := repository.NewListingRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	listings, err := readListingsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total listings to import: %d\n", len(listings))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	batchSize := 1000
	fmt.Printf("Starting bulk import with batch size: %d\n", batchSize)
	if err := listingRepo.BulkCreate(listings, batchSize); err != nil {
		log.Fatal("Failed to bulk create listings:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total listings imported: %d\n", len(listings))
}

func readListingsFromXLSX(filePath string) ([]model.Listing, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows found (only header or empty sheet)")
	}

	listings := make([]model.Listing, 0, len(rows)-1)
	skipped := 0

	for i, row := range rows[1:] {
		name := cell(row, 0)
		if name == "" {
			skipped++
			continue
		}

		city := cell(row, 3)
		state := cell(row, 4)

		listing := model.Listing{
			Name:        name,
			Category:    strings.ToLower(cell(row, 1)),
			Address:     cell(row, 2),
			City:        city,
			State:       state,
			ZipCode:     cell(row, 5),
			Phone:       cell(row, 6),
			Website:     cell(row, 7),
			Rating:      parseFloat(cell(row, 8)),
			ReviewCount: parseInt(cell(row, 9)),
			OpenTime:    cell(row, 10),
			CloseTime:   cell(row, 11),
			Location:    util.BuildDisplayLocation(city, state),
			IsCurated:   true,
		}
		listings = append(listings, listing)

		if (i+1)%500 == 0 {
			fmt.Printf("Parsed %d rows...\n", i+1)
		}
	}

	if skipped > 0 {
		fmt.Printf("Skipped %d rows without a name\n", skipped)
	}
	return listings, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
