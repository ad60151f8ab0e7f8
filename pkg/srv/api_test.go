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

package srv

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mammark/go-tagcore/pkg/config"
	"github.com/mammark/go-tagcore/pkg/layers"
	"github.com/mammark/go-tagcore/pkg/pix"
	"github.com/mammark/go-tagcore/pkg/store"
	"github.com/mammark/go-tagcore/pkg/stream"
)

func sampleStream() []byte {
	rt := layers.RTCTime{Sec: 1, Day: 1, Mon: 1, Year: 2021}
	buf := layers.BuildRecord(layers.RecordTypeNote, 1, rt, []byte("one"))
	buf = append(buf, layers.BuildRecord(layers.RecordType(250), 2, rt, []byte{1})...)
	return append(buf, layers.BuildRecord(layers.RecordTypeNote, 3, rt, []byte("three"))...)
}

func newServer(t *testing.T, withState bool) *httptest.Server {
	var state *store.State
	if withState {
		var err error
		state, err = store.NewState(context.Background(), filepath.Join(t.TempDir(), "records.db"))
		if err != nil {
			t.Fatalf("NewState: %s", err)
		}
		t.Cleanup(func() { state.Close() })
	}
	s := NewApiServer(context.Background(), config.NewDefaultConfig(), state)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, v interface{}) int {
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %s", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %s", url, err)
		}
	}
	return resp.StatusCode
}

func TestDecodeMatchesLocalWalk(t *testing.T) {
	ts := newServer(t, false)
	data := sampleStream()
	resp, err := http.Post(ts.URL+"/api/decode", "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST: %s", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %s", resp.Status)
	}
	result := &DecodeResult{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		t.Fatalf("decoding response: %s", err)
	}

	local := Decode(data, 0, false)
	if len(result.Summaries) != len(local.Summaries) {
		t.Fatalf("expected %d summaries, got %d", len(local.Summaries), len(result.Summaries))
	}
	for i := range local.Summaries {
		if result.Summaries[i].Offset != local.Summaries[i].Offset || result.Summaries[i].Name != local.Summaries[i].Name {
			t.Errorf("summary %d differs: %+v", i, result.Summaries[i])
		}
	}
	if result.Stats.Records != 3 || result.Stats.Anomalies[stream.KindUnknownType] != 1 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
	if result.Stopped != nil {
		t.Errorf("walk must reach the end")
	}
}

func TestDecodeChecksumQuery(t *testing.T) {
	ts := newServer(t, false)
	data := sampleStream()
	data[len(data)-1] ^= 0xff

	post := func(query string) *DecodeResult {
		resp, err := http.Post(ts.URL+"/api/decode"+query, "application/octet-stream", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("POST: %s", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("unexpected status %s", resp.Status)
		}
		result := &DecodeResult{}
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			t.Fatalf("decoding response: %s", err)
		}
		return result
	}

	if n := post("").Stats.Anomalies[stream.KindChecksumMismatch]; n != 0 {
		t.Errorf("checksums are skipped by default, got %d mismatches", n)
	}
	if n := post("?skip_checksums=false").Stats.Anomalies[stream.KindChecksumMismatch]; n != 1 {
		t.Errorf("expected 1 mismatch when verifying, got %d", n)
	}
}

func TestDecodeReportsStop(t *testing.T) {
	data := sampleStream()
	result := Decode(data[:len(data)-2], 0, false)
	if result.Stopped == nil || result.Stopped.Kind != stream.KindTruncatedInput {
		t.Errorf("expected a TruncatedInput stop, got %+v", result.Stopped)
	}
	if len(result.Summaries) != 2 {
		t.Errorf("records before the stop must be kept, got %d", len(result.Summaries))
	}
}

func TestDecodeStoresSource(t *testing.T) {
	ts := newServer(t, true)
	resp, err := http.Post(ts.URL+"/api/decode?source=tag01.dblk", "application/octet-stream", bytes.NewReader(sampleStream()))
	if err != nil {
		t.Fatalf("POST: %s", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %s", resp.Status)
	}

	var sources []string
	if code := getJSON(t, ts.URL+"/api/sources", &sources); code != http.StatusOK || len(sources) != 1 || sources[0] != "tag01.dblk" {
		t.Errorf("unexpected sources %v (%d)", sources, code)
	}
	var summaries []*stream.Summary
	if code := getJSON(t, ts.URL+"/api/sources/tag01.dblk/records", &summaries); code != http.StatusOK || len(summaries) != 3 {
		t.Errorf("unexpected records %d (%d)", len(summaries), code)
	}
	stats := stream.NewStats()
	if code := getJSON(t, ts.URL+"/api/sources/tag01.dblk/stats", stats); code != http.StatusOK || stats.Records != 3 {
		t.Errorf("unexpected stats %+v (%d)", stats, code)
	}
	if code := getJSON(t, ts.URL+"/api/sources/missing/records", &summaries); code != http.StatusNotFound {
		t.Errorf("missing source must be 404, got %d", code)
	}
}

func TestDecodeBadQuery(t *testing.T) {
	ts := newServer(t, false)
	for _, q := range []string{"?offset=x", "?skip_checksums=maybe", "?source=needs-store"} {
		resp, err := http.Post(ts.URL+"/api/decode"+q, "application/octet-stream", bytes.NewReader(sampleStream()))
		if err != nil {
			t.Fatalf("POST: %s", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			t.Errorf("%s must be rejected", q)
		}
	}
}

func TestPanic(t *testing.T) {
	ts := newServer(t, false)
	raw := make([]byte, pix.DefaultBaseOffset+pix.BlockLen)
	copy(raw, []byte("PANI"))
	raw[4], raw[5], raw[6], raw[7] = 0x0b, 0xb0, 0xdd, 0xdd
	raw[pix.DefaultBaseOffset], raw[pix.DefaultBaseOffset+1], raw[pix.DefaultBaseOffset+2], raw[pix.DefaultBaseOffset+3] = 0x41, 0x50, 0x66, 0x44

	resp, err := http.Post(ts.URL+"/api/panic", "application/octet-stream", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST: %s", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %s", resp.Status)
	}
	report := &pix.Report{}
	if err := json.NewDecoder(resp.Body).Decode(report); err != nil {
		t.Fatalf("decoding response: %s", err)
	}
	if len(report.Blocks) != 1 || report.Directory.Sig != pix.DirSig {
		t.Errorf("unexpected report %+v", report)
	}

	raw[4] = 0
	resp2, err := http.Post(ts.URL+"/api/panic", "application/octet-stream", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST: %s", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad directory must be rejected, got %s", resp2.Status)
	}
}
