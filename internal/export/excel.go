package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"bigman/internal/domain"
	"bigman/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	statusIconConfirmed = "✅"
	statusIconPending   = "⏳"
	statusIconCancelled = "❌"
)

// Exporter renders the appointment book into Excel files the shop owner
// can print or share.
type Exporter struct {
	repo     domain.Repository
	products domain.ProductRepository
	catalog  *models.Catalog
	path     string
	logger   *zerolog.Logger
}

func NewExporter(repo domain.Repository, products domain.ProductRepository, catalog *models.Catalog, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		repo:     repo,
		products: products,
		catalog:  catalog,
		path:     path,
		logger:   logger,
	}
}

// ExportSchedule writes a barber-by-date grid of appointments for the
// given period and returns the file path.
func (e *Exporter) ExportSchedule(ctx context.Context, startDate, endDate time.Time) (string, error) {
	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	appointments, err := e.repo.ListAppointmentsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting appointments: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Agenda"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Período: %s - %s",
		startDate.Format("02/01/2006"), endDate.Format("02/01/2006")))

	dateHeaders := e.writeDateHeaders(f, sheetName, startDate, endDate)
	e.writeBarberHeaders(f, sheetName)
	e.writeAppointmentCells(f, sheetName, appointments, dateHeaders)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 24)
	}

	lastCol := lastColumnName(len(dateHeaders) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("agenda_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("schedule export created")
	return filePath, nil
}

func (e *Exporter) writeDateHeaders(f *excelize.File, sheetName string, startDate, endDate time.Time) map[string]int {
	col := 2
	currentDate := startDate
	dateHeaders := make(map[string]int)

	for !currentDate.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, currentDate.Format("02/01"))
		dateHeaders[currentDate.Format("2006-01-02")] = col

		style, _ := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		col++
		currentDate = currentDate.AddDate(0, 0, 1)
	}
	return dateHeaders
}

func (e *Exporter) writeBarberHeaders(f *excelize.File, sheetName string) {
	row := 3
	for _, barber := range e.catalog.Barbers {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, barber.Name)

		style, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
			Font: &excelize.Font{Bold: true},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		row++
	}
}

func (e *Exporter) writeAppointmentCells(f *excelize.File, sheetName string, appointments []*models.Appointment, dateHeaders map[string]int) {
	type cellKey struct {
		barberID int64
		date     string
	}
	grouped := make(map[cellKey][]*models.Appointment)
	for _, appt := range appointments {
		key := cellKey{barberID: appt.BarberID, date: appt.Date.Format("2006-01-02")}
		grouped[key] = append(grouped[key], appt)
	}

	for key, appts := range grouped {
		col, exists := dateHeaders[key.date]
		if !exists {
			continue
		}
		row := 0
		for i, barber := range e.catalog.Barbers {
			if barber.ID == key.barberID {
				row = 3 + i
				break
			}
		}
		if row == 0 {
			continue
		}

		sort.Slice(appts, func(i, j int) bool { return appts[i].Time < appts[j].Time })

		var cellValue string
		for _, appt := range appts {
			serviceName := fmt.Sprintf("%d", appt.ServiceID)
			if svc, ok := e.catalog.ServiceByID(appt.ServiceID); ok {
				serviceName = svc.Name
			}
			cellValue += fmt.Sprintf("%s %s %s (%s)\n%s\n",
				statusIcon(appt.Status), appt.Time, appt.ClientName, appt.Phone, serviceName)
		}

		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheetName, cell, cellValue)

		if styleID, err := e.cellStyle(f, appts); err == nil {
			_ = f.SetCellStyle(sheetName, cell, cell, styleID)
		}
	}
}

// cellStyle picks the fill from the appointments' statuses: any pending
// makes the cell yellow, otherwise confirmed visits make it green.
func (e *Exporter) cellStyle(f *excelize.File, appts []*models.Appointment) (int, error) {
	active := 0
	hasPending := false
	for _, appt := range appts {
		if appt.Status == models.StatusCancelled {
			continue
		}
		active++
		if appt.Status == models.StatusPending {
			hasPending = true
		}
	}

	color := "#FFFFFF"
	switch {
	case active == 0:
	case hasPending:
		color = "#FFEB9C"
	default:
		color = "#C6EFCE"
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}

// ExportProducts writes the product list with prices and stock.
func (e *Exporter) ExportProducts(ctx context.Context) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	products, err := e.products.ListProducts(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting products: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Produtos"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"ID", "Nome", "Descrição", "Preço", "Estoque", "Criado em"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	for i, product := range products {
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), product.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), product.Name)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), product.Description)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), models.FormatPrice(product.PriceCents))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), product.Stock)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), product.CreatedAt.Format("02/01/2006 15:04"))
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "B", 25)
	_ = f.SetColWidth(sheetName, "C", "C", 40)
	_ = f.SetColWidth(sheetName, "D", "D", 12)
	_ = f.SetColWidth(sheetName, "E", "E", 10)
	_ = f.SetColWidth(sheetName, "F", "F", 18)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("produtos_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("products export created")
	return filePath, nil
}

func lastColumnName(colCount int) string {
	if colCount <= 26 {
		return string(rune('A' + colCount - 1))
	}

	firstChar := string(rune('A' + (colCount-1)/26 - 1))
	secondChar := string(rune('A' + (colCount-1)%26))
	return firstChar + secondChar
}

func statusIcon(status string) string {
	switch status {
	case models.StatusConfirmed, models.StatusCompleted:
		return statusIconConfirmed
	case models.StatusPending:
		return statusIconPending
	case models.StatusCancelled:
		return statusIconCancelled
	default:
		return "❓"
	}
}
