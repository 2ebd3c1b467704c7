package tradelog

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"fenrir/internal/model"
)

var header = []string{"buyer_id", "seller_id", "price", "amount", "timestamp"}

// CSVSink appends one row per trade to an on-disk CSV file, flushing after
// every Append (the scheduler calls Append once per trade during a tick's
// settlement, so this matches the spec's "flush after each tick's drain"
// policy without the sink itself needing to know about ticks).
type CSVSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink opens (or creates) path and writes the header row if the file
// is new.
func NewCSVSink(path string) (*CSVSink, error) {
	info, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	sink := &CSVSink{file: f, writer: csv.NewWriter(f)}
	if statErr != nil || info.Size() == 0 {
		if err := sink.writer.Write(header); err != nil {
			f.Close()
			return nil, err
		}
		sink.writer.Flush()
	}
	return sink, nil
}

// Append writes trade as one CSV row and flushes immediately.
func (s *CSVSink) Append(trade model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := []string{
		strconv.FormatUint(trade.BuyerID, 10),
		strconv.FormatUint(trade.SellerID, 10),
		strconv.FormatUint(trade.Price, 10),
		strconv.FormatUint(trade.Amount, 10),
		strconv.FormatUint(trade.Timestamp, 10),
	}
	if err := s.writer.Write(row); err != nil {
		return err
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		log.Error().Err(err).Msg("trade log flush failed")
		return err
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Flush()
	return s.file.Close()
}
