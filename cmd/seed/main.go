package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/hyerin/maplecart-backend/config"
	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/internal/app/repository"
	"github.com/hyerin/maplecart-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

// Expected columns in the products sheet:
// name | description | price | compare_at_price | category | allocation_eligible | stock | image_url
const productColumns = 8

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

	productRepo := repository.NewProductRepository(db.GetDB())
	membershipRepo := repository.NewMembershipRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	products, categories, err := readCatalogFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Categories to import: %d\n", len(categories))
	fmt.Printf("Products to import: %d\n", len(products))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	// Categories first so product rows can resolve their IDs.
	categoryIDs := make(map[string]uint, len(categories))
	var eligibleIDs []uint
	for i := range categories {
		if existing, err := productRepo.FindCategoryByName(categories[i].Name); err == nil {
			categories[i] = *existing
		} else if err := productRepo.CreateCategory(&categories[i]); err != nil {
			log.Fatal("Failed to create category:", err)
		}
		categoryIDs[categories[i].Name] = categories[i].ID
		if categories[i].AllocationEligible {
			eligibleIDs = append(eligibleIDs, categories[i].ID)
		}
	}

	for i := range products {
		products[i].CategoryID = categoryIDs[products[i].Category.Name]
		products[i].Category = model.Category{}
	}

	batchSize := 500
	fmt.Printf("Starting bulk import with batch size: %d\n", batchSize)
	if err := productRepo.BulkCreate(products, batchSize); err != nil {
		log.Fatal("Failed to bulk create products:", err)
	}

	if err := seedDefaultPlans(membershipRepo, eligibleIDs); err != nil {
		log.Fatal("Failed to seed membership plans:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total products imported: %d\n", len(products))
}

func readCatalogFromXLSX(filePath string) ([]model.Product, []model.Category, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, nil, fmt.Errorf("no sheets found in XLSX file")
	}

	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no data found in XLSX file")
	}

	var products []model.Product
	var categories []model.Category
	seenCategories := make(map[string]bool)
	seenProducts := make(map[string]bool)
	skippedCount := 0

	for i, row := range rows {
		if i == 0 {
			fmt.Printf("Headers: %v\n", row)
			continue
		}
		if len(row) < productColumns {
			skippedCount++
			continue
		}

		name := strings.TrimSpace(row[0])
		description := strings.TrimSpace(row[1])
		priceStr := strings.TrimSpace(row[2])
		compareAtStr := strings.TrimSpace(row[3])
		categoryName := strings.TrimSpace(row[4])
		eligibleStr := strings.TrimSpace(row[5])
		stockStr := strings.TrimSpace(row[6])
		imageURL := strings.TrimSpace(row[7])

		if name == "" || categoryName == "" {
			skippedCount++
			continue
		}
		if seenProducts[name] {
			skippedCount++
			continue
		}
		seenProducts[name] = true

		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price <= 0 {
			skippedCount++
			continue
		}
		compareAt, err := strconv.ParseFloat(compareAtStr, 64)
		if err != nil || compareAt < price {
			compareAt = price
		}
		stock, err := strconv.Atoi(stockStr)
		if err != nil || stock < 0 {
			stock = 0
		}
		eligible := strings.EqualFold(eligibleStr, "true") || eligibleStr == "1"

		if !seenCategories[categoryName] {
			seenCategories[categoryName] = true
			categories = append(categories, model.Category{
				Name:               categoryName,
				AllocationEligible: eligible,
			})
		}

		products = append(products, model.Product{
			Name:           name,
			Description:    description,
			Price:          price,
			CompareAtPrice: compareAt,
			StockQuantity:  stock,
			ImageURL:       imageURL,
			Active:         true,
			Category:       model.Category{Name: categoryName},
		})
	}

	fmt.Printf("Skipped rows: %d\n", skippedCount)
	return products, categories, nil
}

// seedDefaultPlans creates the standard membership plans when none exist.
// Every allocation-eligible category gets a monthly free quantity per plan
// tier.
func seedDefaultPlans(membershipRepo repository.MembershipRepository, eligibleIDs []uint) error {
	existing, err := membershipRepo.FindActivePlans()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		fmt.Println("Membership plans already exist, skipping plan seed.")
		return nil
	}

	tiers := []struct {
		name            string
		price           float64
		monthlyQuantity int
	}{
		{"Basic", 9.99, 1},
		{"Plus", 19.99, 3},
	}

	for _, tier := range tiers {
		plan := model.MembershipPlan{
			Name:          tier.name,
			PricePerMonth: tier.price,
			Active:        true,
		}
		for _, categoryID := range eligibleIDs {
			plan.Entitlements = append(plan.Entitlements, model.PlanEntitlement{
				CategoryID:      categoryID,
				MonthlyQuantity: tier.monthlyQuantity,
			})
		}
		if err := membershipRepo.CreatePlan(&plan); err != nil {
			return err
		}
		fmt.Printf("Created membership plan: %s\n", tier.name)
	}
	return nil
}
