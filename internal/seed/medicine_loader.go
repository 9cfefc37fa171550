package seed

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"pharmtrack/m/internal/ledger"
)

// LoadMedicines ingests a CSV of starter inventory into the given pharmacy's
// ledger. Columns: name, quantity, threshold, expiry_date, batch_number,
// manufacturer, unit_price. Rows that fail validation are skipped.
func LoadMedicines(ctx context.Context, led *ledger.Service, pharmacyID, csvPath string) {
	file, err := os.Open(csvPath)
	if err != nil {
		logrus.Warnf("unable to load medicine seed %s: %v", csvPath, err)
		return
	}
	defer file.Close()

	existing, err := led.List(ctx, pharmacyID)
	if err != nil {
		logrus.Warnf("unable to check existing inventory: %v", err)
		return
	}
	if len(existing) > 0 {
		return
	}

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		logrus.Warnf("unable to read medicine seed header: %v", err)
		return
	}

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logrus.Warnf("unable to read medicine seed row: %v", err)
			continue
		}
		if len(record) < 7 {
			continue
		}
		quantity, _ := strconv.Atoi(strings.TrimSpace(record[1]))
		threshold, _ := strconv.Atoi(strings.TrimSpace(record[2]))

		in := ledger.MedicineInput{
			Name:         strings.TrimSpace(record[0]),
			Quantity:     quantity,
			Threshold:    threshold,
			ExpiryDate:   strings.TrimSpace(record[3]),
			BatchNumber:  strings.TrimSpace(record[4]),
			Manufacturer: strings.TrimSpace(record[5]),
			UnitPrice:    strings.TrimSpace(record[6]),
		}
		if _, err := led.Add(ctx, pharmacyID, in); err != nil {
			logrus.Warnf("unable to seed medicine %s: %v", in.Name, err)
			continue
		}
		rows++
	}

	logrus.Infof("seeded %d medicines for pharmacy %s", rows, pharmacyID)
}
