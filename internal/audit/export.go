package audit

import (
	"bufio"
	"encoding/csv"
	"io"
	"time"
)

const exportBufferSize = 32 * 1024

// exportColumns is the fixed reporting contract: column order matters
// to downstream tooling.
var exportColumns = []string{"Timestamp", "User", "Action", "Resource", "Resource ID", "IP Address"}

// WriteCSV renders records as CSV: one header row followed by one row
// per record, newest input order preserved.
func WriteCSV(w io.Writer, records []Record) error {
	buf := bufio.NewWriterSize(w, exportBufferSize)
	writer := csv.NewWriter(buf)
	if err := writer.Write(exportColumns); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.UserName,
			rec.Action,
			rec.Resource,
			rec.ResourceID,
			rec.IPAddress,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buf.Flush()
}
