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

package client

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mammark/go-tagcore/pkg/config"
	"github.com/mammark/go-tagcore/pkg/layers"
	"github.com/mammark/go-tagcore/pkg/srv"
	"github.com/mammark/go-tagcore/pkg/store"
	"github.com/mammark/go-tagcore/pkg/stream"
)

func newClient(t *testing.T) *ApiClient {
	state, err := store.NewState(context.Background(), filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("NewState: %s", err)
	}
	t.Cleanup(func() { state.Close() })

	cfg := config.NewDefaultConfig()
	cfg.Decode.SkipChecksums = false
	ts := httptest.NewServer(srv.NewApiServer(context.Background(), cfg, state).Handler())
	t.Cleanup(ts.Close)

	addr := ts.Listener.Addr().(*net.TCPAddr)
	cfg.Api.Address = addr.IP.String()
	cfg.Api.Port = addr.Port
	return NewApiClient(cfg)
}

func sample() []byte {
	rt := layers.RTCTime{Sec: 30, Min: 1, Hr: 2, Day: 3, Mon: 4, Year: 2022}
	buf := layers.BuildRecord(layers.RecordTypeNote, 7, rt, []byte("hello"))
	return append(buf, layers.BuildRecord(layers.RecordTypeNote, 8, rt, []byte("again"))...)
}

func TestDecodeAndQuery(t *testing.T) {
	c := newClient(t)

	result, err := c.Decode(sample(), "deploy.dblk", 0)
	if err != nil {
		t.Fatalf("Decode: %s", err)
	}
	if result.Source != "deploy.dblk" || len(result.Summaries) != 2 || result.Summaries[1].RecNum != 8 {
		t.Errorf("unexpected result %+v", result)
	}

	sources, err := c.Sources()
	if err != nil {
		t.Fatalf("Sources: %s", err)
	}
	if len(sources) != 1 || sources[0] != "deploy.dblk" {
		t.Errorf("unexpected sources %v", sources)
	}

	summaries, err := c.Records("deploy.dblk")
	if err != nil {
		t.Fatalf("Records: %s", err)
	}
	if len(summaries) != 2 || summaries[0].Fields["note"] != "hello" {
		t.Errorf("unexpected summaries %+v", summaries)
	}

	stats, err := c.Stats("deploy.dblk")
	if err != nil {
		t.Fatalf("Stats: %s", err)
	}
	if stats.Records != 2 || stats.Types["Note"] != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestDecodeFromOffset(t *testing.T) {
	c := newClient(t)
	first := len(layers.BuildRecord(layers.RecordTypeNote, 7, layers.RTCTime{}, []byte("hello")))
	result, err := c.Decode(sample(), "", first)
	if err != nil {
		t.Fatalf("Decode: %s", err)
	}
	if len(result.Summaries) != 1 || result.Summaries[0].Offset != first {
		t.Errorf("unexpected result %+v", result.Summaries)
	}
}

func TestErrStatus(t *testing.T) {
	c := newClient(t)
	_, err := c.Records("missing.dblk")
	var status ErrStatus
	if !errors.As(err, &status) {
		t.Fatalf("expected ErrStatus, got %v", err)
	}
	if status.Status != "404 Not Found" {
		t.Errorf("unexpected status %q", status.Status)
	}

	_, err = c.Panic([]byte("short"))
	if !errors.As(err, &status) || status.Status != "422 Unprocessable Entity" {
		t.Errorf("expected 422, got %v", err)
	}
}

func TestAnomaliesSurviveTransport(t *testing.T) {
	c := newClient(t)
	buf := sample()
	buf[len(buf)-1] ^= 0xff
	result, err := c.Decode(buf, "", 0)
	if err != nil {
		t.Fatalf("Decode: %s", err)
	}
	last := result.Summaries[len(result.Summaries)-1]
	if !last.Corrupt || len(last.Anomalies) != 1 || last.Anomalies[0].Kind != stream.KindChecksumMismatch {
		t.Errorf("unexpected anomalies %+v", last)
	}
}
