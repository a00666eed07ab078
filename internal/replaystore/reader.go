package replaystore

import (
	"errors"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// ReadRows loads every TickRow out of a Parquet file written by
// Exporter.Flush. Grounded on brensch-snek2/archive2train's
// parquet.NewGenericReader + batched Read loop; a tournament runner uses
// this to fold per-game Parquet files into cross-game aggregates without
// touching the canonical replay format at all.
func ReadRows(path string) ([]TickRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := parquet.NewGenericReader[TickRow](f)
	defer reader.Close()

	var out []TickRow
	buf := make([]TickRow, 256)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
	}
	return out, nil
}
