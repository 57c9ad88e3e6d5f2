package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/packdim/trust-cli/internal/db"
)

var seedCSVPath string

var seedColumns = []string{
	"id", "name", "category", "description",
	"length_mm", "width_mm", "height_mm", "weight_g",
	"created_by", "last_modified_by",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Bulk-load products from CSV",
	Long:  "Loads a catalog snapshot into the products table via the COPY protocol. Expects columns: name, category, description, length_mm, width_mm, height_mm, weight_g, created_by. PostgreSQL only.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Store.Driver != "postgres" {
			return eris.New("seed requires the postgres store driver")
		}

		rows, err := readSeedCSV(seedCSVPath)
		if err != nil {
			return err
		}

		pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "seed: connect")
		}
		defer pool.Close()

		start := time.Now()
		n, err := db.CopyFrom(ctx, pool, "products", seedColumns, rows)
		if err != nil {
			return eris.Wrap(err, "seed: copy products")
		}

		zap.L().Info("seed complete",
			zap.Int64("products", n),
			zap.String("csv", seedCSVPath),
			zap.Duration("took", time.Since(start).Round(time.Millisecond)),
		)
		return nil
	},
}

// readSeedCSV parses the snapshot CSV into COPY rows. The header row is
// required and must match the documented column order.
func readSeedCSV(path string) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "seed: open csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 8

	if _, err := r.Read(); err != nil {
		return nil, eris.Wrap(err, "seed: read csv header")
	}

	var rows [][]any
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "seed: read csv line %d", line)
		}

		dims := make([]float64, 4)
		for i, raw := range rec[3:7] {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "seed: bad dimension %q on line %d", raw, line)
			}
			dims[i] = v
		}

		createdBy := rec[7]
		rows = append(rows, []any{
			uuid.New().String(), rec[0], rec[1], rec[2],
			dims[0], dims[1], dims[2], dims[3],
			createdBy, createdBy,
		})
	}
	return rows, nil
}

func init() {
	seedCmd.Flags().StringVar(&seedCSVPath, "csv", "", "path to catalog CSV (required)")
	_ = seedCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(seedCmd)
}
