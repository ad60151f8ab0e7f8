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

package stream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mammark/go-tagcore/pkg/layers"
)

var testRTC = layers.RTCTime{Sec: 1, Min: 2, Hr: 3, Day: 4, Mon: 5, Year: 2019}

func le(vals ...interface{}) []byte {
	buf := &bytes.Buffer{}
	for _, v := range vals {
		if b, ok := v.([]byte); ok {
			buf.Write(b)
			continue
		}
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

func eventBody(ev uint16) []byte {
	return le(ev, uint8(0), uint8(0), uint32(1), uint32(2), uint32(3), uint32(4))
}

func ubxFrame(cid layers.UBXClassID, payload []byte) []byte {
	frame := le(uint8(layers.UBXSync1), uint8(layers.UBXSync2), cid.Class(), cid.ID(), uint16(len(payload)), payload)
	a, b := layers.UBXChecksum(frame[2:])
	return append(frame, a, b)
}

func gpsRaw(frame []byte) []byte {
	return le(uint32(0x2000), uint8(1), uint8(0), uint16(0), frame)
}

type fixture struct {
	buf     []byte
	offsets []int
}

func (f *fixture) add(t layers.RecordType, body []byte) []byte {
	rec := layers.BuildRecord(t, uint32(len(f.offsets)+1), testRTC, body)
	f.offsets = append(f.offsets, len(f.buf))
	f.buf = append(f.buf, rec...)
	return rec
}

func wellFormed() *fixture {
	f := &fixture{}
	f.add(layers.RecordTypeEvent, eventBody(3))
	f.add(layers.RecordTypeNote, []byte("hello\x00"))
	f.add(layers.RecordTypeSync, le(uint32(0), uint32(layers.SyncMajik)))
	f.add(layers.RecordTypeAccel, le(uint32(10), int16(1), int16(2), int16(3)))
	f.add(layers.RecordTypeGPSRaw, gpsRaw(ubxFrame(layers.UBXNavEOE, le(uint32(77)))))
	f.add(layers.RecordTypeDebug, nil)
	return f
}

func walkAll(t *testing.T, d *Decoder) []*Record {
	var recs []*Record
	err := d.Walk(func(r *Record) error {
		recs = append(recs, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %s", err)
	}
	return recs
}

func TestWalkFollowsDeclaredLength(t *testing.T) {
	f := wellFormed()
	d := NewDecoder(f.buf, 0)
	recs := walkAll(t, d)
	if len(recs) != len(f.offsets) {
		t.Fatalf("expected %d records, got %d", len(f.offsets), len(recs))
	}
	for i, r := range recs {
		if r.Offset != f.offsets[i] {
			t.Errorf("record %d at %d, expected %d", i, r.Offset, f.offsets[i])
		}
		if r.Header.RecNum != uint32(i+1) {
			t.Errorf("record %d has recnum %d", i, r.Header.RecNum)
		}
		if len(r.Anomalies) != 0 {
			t.Errorf("record %d: unexpected anomalies %v", i, r.Anomalies)
		}
		if r.Consumed != int(r.Header.Len) {
			t.Errorf("record %d (%s): consumed %d of %d", i, r.Header.Type, r.Consumed, r.Header.Len)
		}
	}
	if d.Offset() != len(f.buf) {
		t.Errorf("walk ended at %d, buffer is %d", d.Offset(), len(f.buf))
	}
	st := d.Stats()
	if st.Records != 6 || st.Bytes != len(f.buf) || st.AnomalyCount() != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
	if st.Types["Event"] != 1 || st.Sensors["Accel"] != 1 || st.UBX["NAV-EOE"] != 1 {
		t.Errorf("unexpected counts %+v", st)
	}
}

func TestWalkFromOffset(t *testing.T) {
	f := wellFormed()
	recs := walkAll(t, NewDecoder(f.buf, f.offsets[2]))
	if len(recs) != 4 || recs[0].Header.Type != layers.RecordTypeSync {
		t.Errorf("unexpected walk from offset %d", f.offsets[2])
	}
}

func TestWalkUnknownType(t *testing.T) {
	f := &fixture{}
	f.add(layers.RecordType(255), []byte{9, 9, 9, 9, 9})
	f.add(layers.RecordTypeEvent, eventBody(1))
	d := NewDecoder(f.buf, 0)
	recs := walkAll(t, d)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Consumed != layers.RecordHeaderLen {
		t.Errorf("unknown body consumed %d bytes", recs[0].Consumed-layers.RecordHeaderLen)
	}
	if len(recs[0].Anomalies) != 1 || recs[0].Anomalies[0].Kind != KindUnknownType {
		t.Errorf("unexpected anomalies %v", recs[0].Anomalies)
	}
	if recs[1].Offset != f.offsets[1] || recs[1].Body() == nil {
		t.Errorf("record after unknown type not decoded")
	}
	if d.Stats().Anomalies[KindUnknownType] != 1 {
		t.Errorf("unknown type not counted")
	}
}

func TestWalkChecksumMismatch(t *testing.T) {
	f := wellFormed()
	f.buf[f.offsets[1]+layers.RecordHeaderLen] ^= 0x20

	recs := walkAll(t, NewDecoder(f.buf, 0))
	if len(recs) != len(f.offsets) {
		t.Fatalf("walk must continue past a corrupt record")
	}
	bad := recs[1]
	if !bad.Corrupt || bad.Packet != nil {
		t.Errorf("corrupt record must not be decoded")
	}
	if len(bad.Anomalies) != 1 || bad.Anomalies[0].Kind != KindChecksumMismatch {
		t.Errorf("unexpected anomalies %v", bad.Anomalies)
	}

	recs = walkAll(t, NewDecoder(f.buf, 0, SkipChecksums(true)))
	if recs[1].Corrupt || recs[1].Packet == nil {
		t.Errorf("checksums must not be verified when skipped")
	}
}

func TestWalkInvalidLength(t *testing.T) {
	f := &fixture{}
	f.add(layers.RecordTypeEvent, eventBody(1))
	f.add(layers.RecordTypeEvent, eventBody(2))
	binary.LittleEndian.PutUint16(f.buf[f.offsets[1]:], 4)

	d := NewDecoder(f.buf, 0)
	var n int
	err := d.Walk(func(*Record) error { n++; return nil })
	var stopped *ErrStopped
	if !errors.As(err, &stopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if stopped.Anomaly.Kind != KindInvalidLength || stopped.Anomaly.Offset != f.offsets[1] {
		t.Errorf("unexpected anomaly %s", stopped.Anomaly)
	}
	var invalid *layers.ErrInvalidLength
	if !errors.As(err, &invalid) {
		t.Errorf("ErrStopped must wrap ErrInvalidLength")
	}
	if n != 1 || d.Offset() != f.offsets[1] {
		t.Errorf("walk must stop at the bad record, got %d records offset %d", n, d.Offset())
	}
	if _, err := d.Next(); err == nil {
		t.Errorf("stopped decoder must not return records")
	}
}

func TestWalkOverrun(t *testing.T) {
	f := &fixture{}
	f.add(layers.RecordTypeEvent, eventBody(1))
	f.add(layers.RecordTypeNote, []byte("a long enough note to be cut"))
	buf := f.buf[:len(f.buf)-5]

	d := NewDecoder(buf, 0)
	err := d.Walk(func(*Record) error { return nil })
	var stopped *ErrStopped
	if !errors.As(err, &stopped) || stopped.Anomaly.Kind != KindTruncatedInput {
		t.Fatalf("expected TruncatedInput stop, got %v", err)
	}
	if d.Offset() != f.offsets[1] {
		t.Errorf("offset must stay on the partial record, got %d", d.Offset())
	}
}

func TestWalkShortTail(t *testing.T) {
	f := wellFormed()
	buf := append(append([]byte{}, f.buf...), make([]byte, layers.RecordHeaderLen-1)...)
	recs := walkAll(t, NewDecoder(buf, 0))
	if len(recs) != len(f.offsets) {
		t.Errorf("short tail must end the walk quietly")
	}
}

func TestWalkMalformedGPSFraming(t *testing.T) {
	f := &fixture{}
	f.add(layers.RecordTypeGPSRaw, gpsRaw([]byte{0x12, 0x34, 0x56}))
	f.add(layers.RecordTypeEvent, eventBody(1))
	d := NewDecoder(f.buf, 0)
	recs := walkAll(t, d)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if len(recs[0].Anomalies) != 1 || recs[0].Anomalies[0].Kind != KindMalformedFraming {
		t.Errorf("unexpected anomalies %v", recs[0].Anomalies)
	}
	if !strings.Contains(recs[0].Anomalies[0].Reason, "0x12 0x34") {
		t.Errorf("reason must name the bad start: %s", recs[0].Anomalies[0].Reason)
	}
}

func TestWalkNestedUnknown(t *testing.T) {
	f := &fixture{}
	f.add(layers.RecordTypeGPSRaw, gpsRaw(ubxFrame(layers.NewUBXClassID(layers.UBXClassCFG, 0x01), []byte{1, 2})))
	f.add(layers.RecordTypeSensorData, le(uint32(5), uint16(1)))
	d := NewDecoder(f.buf, 0)
	recs := walkAll(t, d)
	for i, r := range recs {
		if len(r.Anomalies) != 1 || r.Anomalies[0].Kind != KindUnknownType {
			t.Errorf("record %d: unexpected anomalies %v", i, r.Anomalies)
		}
		if r.Body() == nil {
			t.Errorf("record %d: outer body must still be decoded", i)
		}
	}
	if d.Stats().UBX["UBX-CFG-0x01"] != 1 {
		t.Errorf("unexpected ubx counts %v", d.Stats().UBX)
	}
}

func TestWalkTruncatedBodyOffset(t *testing.T) {
	f := &fixture{}
	f.add(layers.RecordTypeNote, []byte("first\x00"))
	f.add(layers.RecordTypeEvent, le(uint16(9)))
	f.add(layers.RecordTypeGPSRaw, gpsRaw(le(uint8(layers.UBXSync1), uint8(layers.UBXSync2), uint8(1))))
	recs := walkAll(t, NewDecoder(f.buf, 0))
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}

	ev := recs[1]
	if len(ev.Anomalies) != 1 || ev.Anomalies[0].Kind != KindTruncatedInput {
		t.Fatalf("unexpected anomalies %v", ev.Anomalies)
	}
	// ev is 2 bytes, the first u8 after it is missing
	want := fmt.Sprintf("Truncated input at offset %d:", f.offsets[1]+layers.RecordHeaderLen+2)
	if !strings.HasPrefix(ev.Anomalies[0].Reason, want) {
		t.Errorf("reason %q must use the file offset %q", ev.Anomalies[0].Reason, want)
	}

	gps := recs[2]
	if len(gps.Anomalies) != 1 || gps.Anomalies[0].Kind != KindTruncatedInput {
		t.Fatalf("unexpected anomalies %v", gps.Anomalies)
	}
	frame := f.offsets[2] + layers.RecordHeaderLen + len(gpsRaw(nil))
	if !strings.Contains(gps.Anomalies[0].Reason, fmt.Sprintf("at offset %d:", frame)) {
		t.Errorf("reason %q must point into the ubx frame at %d", gps.Anomalies[0].Reason, frame)
	}
}

func TestStatsDecoded(t *testing.T) {
	f := &fixture{}
	f.add(layers.RecordTypeEvent, eventBody(1))
	f.add(layers.RecordTypeNote, []byte("corrupt\x00"))
	f.add(layers.RecordType(255), []byte{1, 2, 3})
	f.add(layers.RecordTypeEvent, le(uint16(9)))
	f.add(layers.RecordTypeNote, []byte("last\x00"))
	f.buf[f.offsets[1]+layers.RecordHeaderLen] ^= 0x01

	d := NewDecoder(f.buf, 0)
	recs := walkAll(t, d)
	decoded := []bool{true, false, false, false, true}
	for i, r := range recs {
		if r.Decoded() != decoded[i] {
			t.Errorf("record %d (%s): Decoded %v", i, r.Header.Type, r.Decoded())
		}
	}
	st := d.Stats()
	if st.Records != 5 || st.Decoded != 2 {
		t.Errorf("expected 5 records and 2 decoded, got %d and %d", st.Records, st.Decoded)
	}
	st.Reset()
	if st.Decoded != 0 {
		t.Errorf("Reset left %d decoded", st.Decoded)
	}
}

func TestWalkSyncMajik(t *testing.T) {
	f := &fixture{}
	f.add(layers.RecordTypeSync, le(uint32(0), uint32(0xdeadbeef)))
	recs := walkAll(t, NewDecoder(f.buf, 0))
	if len(recs[0].Anomalies) != 1 || recs[0].Anomalies[0].Kind != KindSignatureMismatch {
		t.Errorf("unexpected anomalies %v", recs[0].Anomalies)
	}
}

func TestSharedStats(t *testing.T) {
	st := NewStats()
	f := wellFormed()
	walkAll(t, NewDecoder(f.buf, 0, WithStats(st)))
	walkAll(t, NewDecoder(f.buf, 0, WithStats(st)))
	if st.Records != 12 {
		t.Errorf("expected 12 records, got %d", st.Records)
	}
	st.Reset()
	if st.Records != 0 || len(st.Types) != 0 {
		t.Errorf("Reset left %+v", st)
	}
}

func TestParallelDecode(t *testing.T) {
	f := wellFormed()
	want := walkAll(t, NewDecoder(f.buf, 0))
	var wg sync.WaitGroup
	results := make([][]*Record, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = NewDecoder(f.buf, 0).Walk(func(r *Record) error {
				results[i] = append(results[i], r)
				return nil
			})
		}(i)
	}
	wg.Wait()
	for i, recs := range results {
		if len(recs) != len(want) {
			t.Fatalf("walk %d: %d records", i, len(recs))
		}
		for j := range recs {
			if recs[j].Summary().String() != want[j].Summary().String() {
				t.Errorf("walk %d record %d differs", i, j)
			}
		}
	}
}

func TestSummary(t *testing.T) {
	f := wellFormed()
	recs := walkAll(t, NewDecoder(f.buf, 0))
	s := recs[1].Summary()
	if s.Name != "Note" || s.Fields["note"] != "hello" || s.Time == "" {
		t.Errorf("unexpected note summary %+v", s)
	}
	s = recs[3].Summary()
	if len(s.Nested) != 1 || s.Nested[0].Layer != "Accel" {
		t.Errorf("unexpected sensor summary %+v", s)
	}
	out := recs[4].Summary().String()
	if !strings.Contains(out, "NAV-EOE") || !strings.Contains(out, "framing: ubx") {
		t.Errorf("unexpected gps summary:\n%s", out)
	}
}
