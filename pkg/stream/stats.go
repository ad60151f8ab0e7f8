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
	"github.com/mammark/go-tagcore/pkg/layers"
)

// Stats counts what a walk has seen. It is reset at the start of a scan
// and read at the end, a Decoder never shares it unless WithStats is used.
// Records counts every walked record, Decoded only those where Record.Decoded holds.
type Stats struct {
	Records   int                 `json:"records"`
	Decoded   int                 `json:"decoded"`
	Bytes     int                 `json:"bytes"`
	Types     map[string]int      `json:"types"`
	Sensors   map[string]int      `json:"sensors"`
	UBX       map[string]int      `json:"ubx"`
	Anomalies map[AnomalyKind]int `json:"anomalies"`
}

func NewStats() *Stats {
	s := &Stats{}
	s.Reset()
	return s
}

func (s *Stats) Reset() {
	s.Records = 0
	s.Decoded = 0
	s.Bytes = 0
	s.Types = map[string]int{}
	s.Sensors = map[string]int{}
	s.UBX = map[string]int{}
	s.Anomalies = map[AnomalyKind]int{}
}

// AnomalyCount is the total over all kinds
func (s *Stats) AnomalyCount() int {
	n := 0
	for _, c := range s.Anomalies {
		n += c
	}
	return n
}

func (s *Stats) addAnomaly(a Anomaly) {
	s.Anomalies[a.Kind]++
}

func (s *Stats) addRecord(r *Record) {
	s.Records++
	s.Bytes += int(r.Header.Len)
	s.Types[r.Header.Type.String()]++
	if r.Decoded() {
		s.Decoded++
	}
	if r.Packet == nil {
		return
	}
	for _, l := range r.Packet.Layers() {
		switch l := l.(type) {
		case *layers.SensorSampleLayer:
			s.Sensors[l.Sensor.String()]++
		case *layers.UnknownSensorLayer:
			s.Sensors[l.Sensor.String()]++
		case *layers.UBXLayer:
			s.UBX[l.ClassID.String()]++
		}
	}
}
