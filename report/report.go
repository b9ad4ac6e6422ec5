// Package report writes run results to a line oriented text log and to a
// CSV record file.
package report

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

// ErrCreate is returned when an output file cannot be created.
var ErrCreate = errors.New("cannot create output file")

// sink pairs a text log with a CSV writer, both buffered.
type sink struct {
	log *bufio.Writer
	csv *gocsv.SafeCSVWriter
	buf *bufio.Writer

	files []*os.File
}

func newSink(log, records io.Writer) *sink {
	buf := bufio.NewWriter(records)
	return &sink{
		log: bufio.NewWriter(log),
		csv: gocsv.NewSafeCSVWriter(csv.NewWriter(buf)),
		buf: buf,
	}
}

// createFiles creates both files, closing the first if the second fails.
func createFiles(logPath, csvPath string) (*os.File, *os.File, error) {
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreate, err)
	}
	csvFile, err := os.Create(csvPath)
	if err != nil {
		logFile.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrCreate, err)
	}
	return logFile, csvFile, nil
}

func (s *sink) printf(format string, args ...interface{}) error {
	_, err := fmt.Fprintf(s.log, format, args...)
	return err
}

// Close flushes both writers and closes any file the sink owns. It returns
// the first error.
func (s *sink) Close() error {
	var errs []error
	errs = append(errs, s.log.Flush())
	s.csv.Flush()
	errs = append(errs, s.csv.Error(), s.buf.Flush())
	for _, f := range s.files {
		errs = append(errs, f.Close())
	}
	s.files = nil
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
