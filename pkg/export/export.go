// Package export renders journal records for offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"github.com/kilianp07/roadside/infra/journal"
)

// WriteJSON writes the records to w as one JSON array.
func WriteJSON(w io.Writer, recs []journal.Record) error {
	if recs == nil {
		recs = []journal.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// WriteCSV writes one row per record. The payload column holds the raw
// event JSON.
func WriteCSV(w io.Writer, recs []journal.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "kind", "request_id", "payload"}); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.Time.Format(time.RFC3339Nano),
			r.Kind,
			r.RequestID,
			string(r.Payload),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
