package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/360EntSecGroup-Skylar/excelize"
)

// SheetName is the worksheet the XLSX export writes to.
const SheetName = "Records"

var header = []string{
	"patientId", "patientName", "recordId", "date", "doctor", "diagnosis",
	"notes", "comment", "medications", "archived", "patientDeleted",
}

func (r Row) cells() []string {
	deleted := "active"
	if r.PatientDeleted {
		deleted = "deleted"
	}
	return []string{
		r.PatientID,
		r.PatientName,
		r.RecordID,
		r.Date,
		r.Doctor,
		r.Diagnosis,
		r.Notes,
		r.Comment,
		r.Medications,
		strconv.FormatBool(r.Archived),
		deleted,
	}
}

func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export csv: write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.cells()); err != nil {
			return fmt.Errorf("export csv: write row %s/%s: %w", r.PatientID, r.RecordID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX renders the rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []Row) error {
	file := excelize.NewFile()
	index := file.NewSheet(SheetName)
	file.DeleteSheet("Sheet1")
	file.SetActiveSheet(index)

	for col, name := range header {
		file.SetCellValue(SheetName, cellName(col, 1), name)
	}
	for i, r := range rows {
		for col, v := range r.cells() {
			file.SetCellValue(SheetName, cellName(col, i+2), v)
		}
	}
	if err := file.Write(w); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	return nil
}

// cellName returns the A1-style name of a zero-based column. The export
// never exceeds 26 columns.
func cellName(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}
