package ops

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/annie444/radio-hal/pkg/stats"
)

// LinkTestReport summarizes one link-test invocation: how many rounds ran,
// how many produced a valid reply, and streaming statistics over the
// signal strengths of the valid rounds. RemoteRSSI stays empty unless the
// test parsed trailers.
type LinkTestReport struct {
	Sent       uint32      `json:"sent"`
	Received   uint32      `json:"received"`
	LocalRSSI  stats.Stats `json:"local_rssi"`
	RemoteRSSI stats.Stats `json:"remote_rssi"`
}

// Loss returns the fraction of rounds without a valid reply, in [0, 1].
func (t *LinkTestReport) Loss() float64 {
	if t.Sent == 0 {
		return 0
	}
	return float64(t.Sent-t.Received) / float64(t.Sent)
}

func (t *LinkTestReport) String() string {
	return fmt.Sprintf("sent=%d received=%d loss=%.1f%% local rssi [%s] remote rssi [%s]",
		t.Sent, t.Received, 100*t.Loss(), t.LocalRSSI.String(), t.RemoteRSSI.String())
}

// Export writes the report to w as JSON.
func (t *LinkTestReport) Export(w io.Writer) error {
	return json.NewEncoder(w).Encode(t)
}

// ExportToFile writes the report to a file, replacing any previous
// contents.
func (t *LinkTestReport) ExportToFile(filename string) error {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer file.Close()
	return t.Export(file)
}

// ImportReport loads a report previously written with Export.
func ImportReport(r io.Reader) (*LinkTestReport, error) {
	var report LinkTestReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ImportReportFromFile loads a report from a file.
func ImportReportFromFile(filename string) (*LinkTestReport, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ImportReport(file)
}
