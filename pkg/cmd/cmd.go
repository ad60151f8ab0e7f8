/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// Package cmd holds the output helpers shared by the tagdump subcommands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"sigs.k8s.io/yaml"

	"github.com/mammark/go-tagcore/pkg/config"
	"github.com/mammark/go-tagcore/pkg/pix"
	"github.com/mammark/go-tagcore/pkg/stream"
)

var (
	warnColor = color.New(color.FgYellow)
	stopColor = color.New(color.FgRed, color.Bold)
	okColor   = color.New(color.FgGreen)
)

// Printer writes decode results in the configured format
type Printer struct {
	Out    io.Writer
	Format string
}

func NewPrinter(out io.Writer, format string) (*Printer, error) {
	switch format {
	case "yaml", "json":
	default:
		return nil, config.ErrInvalidOutput{Output: format}
	}
	return &Printer{Out: out, Format: format}, nil
}

// Object writes any value, as a yaml document or a json line
func (p *Printer) Object(v interface{}) error {
	if p.Format == "json" {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.Out, "%s\n", data)
		return err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.Out, "---\n%s", data)
	return err
}

func (p *Printer) Summary(s *stream.Summary) error {
	return p.Object(s)
}

// Anomalies prints one colored line per anomaly
func (p *Printer) Anomalies(anomalies []stream.Anomaly) {
	for _, a := range anomalies {
		warnColor.Fprintf(p.Out, "! %s\n", a)
	}
}

// Stopped prints the anomaly that ended a walk
func (p *Printer) Stopped(a *stream.Anomaly) {
	stopColor.Fprintf(p.Out, "!! walk stopped: %s\n", a)
}

// Totals is the exit summary of a decode
func (p *Printer) Totals(stats *stream.Stats, stopped *stream.Anomaly) {
	line := fmt.Sprintf("%d records, %d decoded, %d bytes, %d anomalies",
		stats.Records, stats.Decoded, stats.Bytes, stats.AnomalyCount())
	if stats.AnomalyCount() == 0 && stopped == nil {
		okColor.Fprintln(p.Out, line)
		return
	}
	warnColor.Fprintln(p.Out, line)
}

// Report prints a panic scan
func (p *Printer) Report(report *pix.Report) {
	if d := report.Directory; d != nil {
		fmt.Fprintf(p.Out, "Panic Directory %q: sig 0x%08x dir_sector %d high_sector %d block_index %d/%d block_size %d\n",
			d.ID, d.Sig, d.DirSector, d.HighSector, d.BlockIndex, d.BlockIndexMax, d.BlockSize)
	}
	for _, b := range report.Blocks {
		fmt.Fprintln(p.Out, b.Summary())
	}
	for _, a := range report.Anomalies {
		warnColor.Fprintf(p.Out, "! %s\n", a)
	}
	line := fmt.Sprintf("%d dumps in %d slots, %d anomalies", len(report.Blocks), report.Slots, len(report.Anomalies))
	if len(report.Anomalies) == 0 {
		okColor.Fprintln(p.Out, line)
		return
	}
	warnColor.Fprintln(p.Out, line)
}
