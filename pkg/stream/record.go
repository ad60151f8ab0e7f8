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
	"encoding/hex"
	"time"

	"github.com/google/gopacket"
	"sigs.k8s.io/yaml"

	"github.com/mammark/go-tagcore/pkg/layers"
)

// Record is one walked record. Packet is nil when the record failed its
// checksums and the body was not decoded.
type Record struct {
	Offset    int
	Header    layers.RecordHeader
	Raw       []byte
	Packet    gopacket.Packet
	Corrupt   bool
	Consumed  int
	Anomalies []Anomaly
}

// Body returns the record body layer, nil for unknown types and
// records that were not decoded
func (r *Record) Body() layers.BodyLayer {
	if r.Packet == nil {
		return nil
	}
	if b, ok := r.Packet.Layer(r.Header.Type.LayerType()).(layers.BodyLayer); ok {
		return b
	}
	return nil
}

// Decoded reports whether the record passed its checksums, has a known
// type and every layer below it decoded without error
func (r *Record) Decoded() bool {
	return !r.Corrupt && r.Packet != nil && r.Packet.ErrorLayer() == nil && r.Body() != nil
}

// Nested is a layer decoded below the record body
type Nested struct {
	Layer  string                 `json:"layer"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// Summary is the printable and storable form of a Record
type Summary struct {
	Offset    int                    `json:"offset"`
	RecNum    uint32                 `json:"recnum"`
	Type      uint8                  `json:"type"`
	Name      string                 `json:"name"`
	Len       uint16                 `json:"len"`
	RTC       layers.RTCTime         `json:"rt"`
	Time      string                 `json:"time,omitempty"`
	Corrupt   bool                   `json:"corrupt,omitempty"`
	Consumed  int                    `json:"consumed"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Nested    []Nested               `json:"nested,omitempty"`
	Anomalies []Anomaly              `json:"anomalies,omitempty"`
}

func (s *Summary) String() string {
	out, err := yaml.Marshal(s)
	if err != nil {
		return err.Error()
	}
	return string(out)
}

func (r *Record) Summary() *Summary {
	s := &Summary{
		Offset:    r.Offset,
		RecNum:    r.Header.RecNum,
		Type:      uint8(r.Header.Type),
		Name:      r.Header.Type.String(),
		Len:       r.Header.Len,
		RTC:       r.Header.RTC,
		Corrupt:   r.Corrupt,
		Consumed:  r.Consumed,
		Anomalies: r.Anomalies,
	}
	if t, ok := r.Header.RTC.Time(); ok {
		s.Time = t.Format(time.RFC3339Nano)
	}
	if r.Packet == nil {
		return s
	}
	if b := r.Body(); b != nil {
		s.Fields = bodyFields(b)
	}
	for _, l := range r.Packet.Layers() {
		if n, ok := nested(l); ok {
			s.Nested = append(s.Nested, n)
		}
	}
	return s
}

func bodyFields(b layers.BodyLayer) map[string]interface{} {
	body := b.Body()
	fields := body.Values.Map()
	if fields == nil {
		fields = map[string]interface{}{}
	}
	switch l := b.(type) {
	case *layers.NoteLayer:
		fields["note"] = l.Text()
	case *layers.VersionLayer:
		fields["version"] = l.Version()
	case *layers.GPSRawLayer:
		fields["framing"] = l.Framing.String()
	case *layers.GPSTrackLayer:
		avg := make([]float64, 0, len(l.Channels()))
		for i := range l.Channels() {
			avg = append(avg, l.CNoAvg(i))
		}
		fields["cno_avg"] = avg
	default:
		if len(body.Trailer) > 0 {
			fields["trailer"] = hex.EncodeToString(body.Trailer)
		}
	}
	return fields
}

func nested(l gopacket.Layer) (Nested, bool) {
	switch l := l.(type) {
	case *layers.SensorSampleLayer:
		return Nested{Layer: l.Sensor.String(), Fields: l.Values.Map()}, true
	case *layers.UnknownSensorLayer:
		return Nested{Layer: l.Sensor.String()}, true
	case *layers.UBXMessageLayer:
		fields := l.Values.Map()
		if ext := l.MonVerExtensions(); len(ext) > 0 {
			fields["extensions"] = ext
		}
		return Nested{Layer: l.ClassID.String(), Fields: fields}, true
	case *layers.UBXUnknownLayer:
		return Nested{Layer: l.ClassID.String(), Fields: map[string]interface{}{
			"payload": hex.EncodeToString(l.Payload),
		}}, true
	case *layers.NMEALayer:
		return Nested{Layer: "NMEA", Fields: map[string]interface{}{
			"sentence":    l.Sentence,
			"checksum_ok": l.ChecksumOK(),
		}}, true
	}
	return Nested{}, false
}
