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

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/mammark/go-tagcore/pkg/pix"
	"github.com/mammark/go-tagcore/pkg/stream"
)

func init() {
	color.NoColor = true
}

func TestNewPrinter(t *testing.T) {
	for _, format := range []string{"yaml", "json"} {
		if _, err := NewPrinter(&bytes.Buffer{}, format); err != nil {
			t.Errorf("%s: %s", format, err)
		}
	}
	if _, err := NewPrinter(&bytes.Buffer{}, "csv"); err == nil {
		t.Errorf("csv must be rejected")
	}
}

func TestObject(t *testing.T) {
	s := &stream.Summary{Offset: 40, RecNum: 2, Name: "Note", Len: 24}

	out := &bytes.Buffer{}
	p, _ := NewPrinter(out, "yaml")
	if err := p.Summary(s); err != nil {
		t.Fatalf("yaml: %s", err)
	}
	if !strings.HasPrefix(out.String(), "---\n") || !strings.Contains(out.String(), "name: Note") {
		t.Errorf("unexpected yaml:\n%s", out)
	}

	out.Reset()
	p, _ = NewPrinter(out, "json")
	if err := p.Summary(s); err != nil {
		t.Fatalf("json: %s", err)
	}
	if strings.Count(out.String(), "\n") != 1 || !strings.Contains(out.String(), `"offset":40`) {
		t.Errorf("unexpected json line %q", out)
	}
}

func TestTotals(t *testing.T) {
	out := &bytes.Buffer{}
	p := &Printer{Out: out}
	stats := stream.NewStats()
	stats.Records = 4
	stats.Decoded = 3
	stats.Bytes = 120
	stats.Anomalies[stream.KindUnknownType] = 2
	stopped := &stream.Anomaly{Kind: stream.KindInvalidLength, Offset: 120, Reason: "len 3"}

	p.Anomalies([]stream.Anomaly{*stopped})
	p.Stopped(stopped)
	p.Totals(stats, stopped)
	want := "! InvalidLength at offset 120 (recnum 0): len 3\n" +
		"!! walk stopped: InvalidLength at offset 120 (recnum 0): len 3\n" +
		"4 records, 3 decoded, 120 bytes, 2 anomalies\n"
	if out.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", out, want)
	}
}

func TestReport(t *testing.T) {
	out := &bytes.Buffer{}
	(&Printer{Out: out}).Report(&pix.Report{
		Directory: &pix.Directory{ID: "PANI", Sig: pix.DirSig},
		Blocks:    []*pix.Block{{Index: 1, Offset: 77312}},
		Anomalies: []pix.Anomaly{{Kind: stream.KindSignatureMismatch, Block: 0, Offset: 512, Reason: "bad"}},
		Slots:     2,
	})
	for _, want := range []string{
		"sig 0xddddb00b",
		"Panic Block 1 at offset 77312",
		"! SignatureMismatch at offset 512 (block 0): bad",
		"1 dumps in 2 slots, 1 anomalies",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
