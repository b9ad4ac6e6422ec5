package report

import (
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"synburst/monitor"
)

// Msec is a connect RTT in milliseconds. A failed ping marshals as Timeout.
type Msec struct {
	RTT time.Duration
	OK  bool
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (m Msec) MarshalCSV() (string, error) {
	if !m.OK {
		return "Timeout", nil
	}
	return strconv.FormatFloat(msec(m.RTT), 'f', 2, 64), nil
}

// PingRecord is one row of the monitor CSV file.
type PingRecord struct {
	Ping int  `csv:"Ping_Number"`
	RTT  Msec `csv:"RTT_Ms"`
}

// Pings receives the pings of a monitor run.
type Pings struct {
	*sink
	row []PingRecord
}

// NewPings writes the text banner and the CSV header and returns Pings
// writing to the given writers. Close does not close them.
func NewPings(log, records io.Writer) (*Pings, error) {
	p := &Pings{sink: newSink(log, records), row: make([]PingRecord, 1)}
	if err := p.printf("Ping Results\n============\n"); err != nil {
		return nil, err
	}
	if err := gocsv.MarshalCSV(&[]PingRecord{}, p.csv); err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePings creates (truncating) the text log and the CSV file.
// Errors wrap ErrCreate.
func CreatePings(logPath, csvPath string) (*Pings, error) {
	logFile, csvFile, err := createFiles(logPath, csvPath)
	if err != nil {
		return nil, err
	}
	p, err := NewPings(logFile, csvFile)
	if err != nil {
		logFile.Close()
		csvFile.Close()
		return nil, err
	}
	p.files = append(p.files, logFile, csvFile)
	return p, nil
}

// Ping implements monitor.Sink.
func (p *Pings) Ping(ping monitor.Ping) error {
	var err error
	if ping.OK() {
		err = p.printf("Ping %d: %.2f ms\n", ping.Seq, msec(ping.RTT))
	} else {
		err = p.printf("Ping %d: Request timed out\n", ping.Seq)
	}
	if err != nil {
		return err
	}
	p.row[0] = PingRecord{Ping: ping.Seq, RTT: Msec{RTT: ping.RTT, OK: ping.OK()}}
	return gocsv.MarshalCSVWithoutHeaders(&p.row, p.csv)
}

// Summary appends the averages of r to the text log, and after a blank
// row, to the CSV file.
func (p *Pings) Summary(r monitor.Report) error {
	avg := msec(r.AverageRTT())
	total := r.Elapsed.Seconds()
	perPing := r.AveragePerPing().Seconds()
	err := p.printf("\nAverage RTT: %.2f ms\n%s\nTotal execution time: %.2f seconds\nAverage time per packet: %.2f seconds\n",
		avg,
		"--------------------------------------------------",
		total,
		perPing,
	)
	if err != nil {
		return err
	}
	rows := [][]string{
		{},
		{"Average RTT", strconv.FormatFloat(avg, 'f', 2, 64)},
		{"Total Execution Time (s)", strconv.FormatFloat(total, 'f', 2, 64)},
		{"Average Time per Packet (s)", strconv.FormatFloat(perPing, 'f', 2, 64)},
	}
	for _, row := range rows {
		if err := p.csv.Write(row); err != nil {
			return err
		}
	}
	p.csv.Flush()
	return p.csv.Error()
}

func msec(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
