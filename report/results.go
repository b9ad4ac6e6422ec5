package report

import (
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"synburst/stats"
)

// Usec is a latency in microseconds, formatted with three decimals.
type Usec float64

// MarshalCSV implements gocsv.TypeMarshaller.
func (u Usec) MarshalCSV() (string, error) {
	return strconv.FormatFloat(float64(u), 'f', 3, 64), nil
}

// Record is one row of the packet CSV file.
type Record struct {
	Packet  int  `csv:"Packet_Number"`
	Elapsed Usec `csv:"Elapsed_Usec"`
	Second  int  `csv:"Second"`
}

// Results receives the samples of a sender run.
type Results struct {
	*sink
	row []Record
}

// NewResults writes the CSV header and returns Results writing to the
// given writers. Close does not close them.
func NewResults(log, records io.Writer) (*Results, error) {
	r := &Results{sink: newSink(log, records), row: make([]Record, 1)}
	if err := gocsv.MarshalCSV(&[]Record{}, r.csv); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateResults creates (truncating) the text log and the CSV file.
// Errors wrap ErrCreate.
func CreateResults(logPath, csvPath string) (*Results, error) {
	logFile, csvFile, err := createFiles(logPath, csvPath)
	if err != nil {
		return nil, err
	}
	r, err := NewResults(logFile, csvFile)
	if err != nil {
		logFile.Close()
		csvFile.Close()
		return nil, err
	}
	r.files = append(r.files, logFile, csvFile)
	return r, nil
}

// Packet appends one successful send to both outputs.
func (r *Results) Packet(s stats.Sample) error {
	if err := r.printf("Packet #%d | Elapsed: %.3f µs | Second: %d\n", s.Seq, s.ElapsedUsec, s.Second); err != nil {
		return err
	}
	r.row[0] = Record{Packet: s.Seq, Elapsed: Usec(s.ElapsedUsec), Second: s.Second}
	return gocsv.MarshalCSVWithoutHeaders(&r.row, r.csv)
}

// Summary appends the per-second averages and the run totals to the text
// log. A summary without packets reports NO_DATA instead of an average.
func (r *Results) Summary(s stats.Summary, elapsed time.Duration) error {
	for _, sec := range s.Seconds {
		if err := r.printf("SECOND %d: AVG_TIME_PER_PACKET_US %.3f\n", sec.Second, sec.AverageUsec); err != nil {
			return err
		}
	}
	if err := r.printf("TOTAL_PACKETS %d\n", s.TotalPackets); err != nil {
		return err
	}
	if err := r.printf("TOTAL_TIME_SECONDS %.3f\n", elapsed.Seconds()); err != nil {
		return err
	}
	if s.TotalPackets == 0 {
		return r.printf("AVG_TIME_PER_PACKET_US NO_DATA\n")
	}
	return r.printf("AVG_TIME_PER_PACKET_US %.3f\n", s.AverageUsec)
}
