// Package excel exports finished sampling runs as spreadsheet
// workbooks: one sheet of posterior samples, one of run diagnostics.
package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"gotemper/domain/mcmc"
	"gotemper/internal/errors"
)

const (
	samplesSheet     = "Samples"
	diagnosticsSheet = "Diagnostics"
)

// WriteWorkbook writes the run's thinned chain and diagnostics to an
// .xlsx file at path.
func WriteWorkbook(path string, run *mcmc.RunResult) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(samplesSheet)
	if err != nil {
		return errors.StorageError("failed to create samples sheet", err)
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	// Header row: one column per parameter dimension.
	for d := 0; d < run.Ndim; d++ {
		cell, _ := excelize.CoordinatesToCellName(d+1, 1)
		if err := f.SetCellValue(samplesSheet, cell, fmt.Sprintf("param_%d", d)); err != nil {
			return errors.StorageError("failed to write header", err)
		}
	}
	for r, row := range run.Samples {
		for d, v := range row {
			cell, _ := excelize.CoordinatesToCellName(d+1, r+2)
			if err := f.SetCellValue(samplesSheet, cell, v); err != nil {
				return errors.StorageError("failed to write sample", err)
			}
		}
	}

	if _, err := f.NewSheet(diagnosticsSheet); err != nil {
		return errors.StorageError("failed to create diagnostics sheet", err)
	}
	diagnostics := [][]interface{}{
		{"run_id", run.ID.String()},
		{"label", run.Label},
		{"ndim", run.Ndim},
		{"nwalkers", run.Nwalkers},
		{"ntemps", run.Ntemps},
		{"iterations", run.Iterations},
		{"burnin", run.Burnin},
		{"acl", run.ACL},
		{"accept_mean", run.AcceptMean},
		{"rows", run.Rows()},
		{"created_at", run.CreatedAt.Format("2006-01-02 15:04:05")},
	}
	for r, pair := range diagnostics {
		for c, v := range pair {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(diagnosticsSheet, cell, v); err != nil {
				return errors.StorageError("failed to write diagnostics", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.StorageError("failed to save workbook", err)
	}
	return nil
}
