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

package layers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/mammark/go-tagcore/pkg/schema"
)

const (
	NMEALayerNum = 3401
	// NMEAStart is the first byte of every NMEA sentence
	NMEAStart = '$'
)

// Framing tells how the bytes after gps_hdr are framed
type Framing uint8

const (
	FramingUBX Framing = iota
	FramingNMEA
	FramingMalformed
)

func (f Framing) String() string {
	switch f {
	case FramingUBX:
		return "ubx"
	case FramingNMEA:
		return "nmea"
	}
	return "malformed"
}

// GPSRawLayer is the gps raw record body: gps_hdr followed by one UBX or NMEA frame
type GPSRawLayer struct {
	RecordBody
	Framing Framing
}

func (g *GPSRawLayer) Dir() uint8 {
	return uint8(g.Values.Uint("dir"))
}

func (g *GPSRawLayer) NextLayerType() gopacket.LayerType {
	switch g.Framing {
	case FramingUBX:
		return LayerTypeUBX
	case FramingNMEA:
		return LayerTypeNMEA
	}
	return gopacket.LayerTypeZero
}

// FramingOf looks at the first bytes of a frame. Nothing is scanned past them.
func FramingOf(frame []byte) Framing {
	if len(frame) >= 1 && frame[0] == NMEAStart {
		return FramingNMEA
	}
	if len(frame) >= 2 && frame[0] == UBXSync1 && frame[1] == UBXSync2 {
		return FramingUBX
	}
	return FramingMalformed
}

func decodeGPSRaw(t RecordType, data []byte, p gopacket.PacketBuilder) error {
	g := &GPSRawLayer{RecordBody: RecordBody{Type: t}}
	if err := g.DecodeFromBytes(data, p); err != nil {
		return err
	}
	g.Framing = FramingOf(g.Payload)
	p.AddLayer(g)
	switch g.Framing {
	case FramingUBX:
		return decodeUBX(g.Payload, p)
	case FramingNMEA:
		return decodeNMEA(g.Payload, p)
	}
	return nil
}

// NMEALayer is one NMEA sentence, kept as text
type NMEALayer struct {
	layers.BaseLayer
	Sentence string
	Fields   []string
	Checksum int
}

var LayerTypeNMEA = gopacket.RegisterLayerType(NMEALayerNum,
	gopacket.LayerTypeMetadata{Name: "NMEA", Decoder: gopacket.DecodeFunc(decodeNMEA)})

func (n *NMEALayer) LayerType() gopacket.LayerType {
	return LayerTypeNMEA
}

// Talker returns the address field, like GPGGA
func (n *NMEALayer) Talker() string {
	if len(n.Fields) == 0 {
		return ""
	}
	return n.Fields[0]
}

// Computed is the XOR of the bytes between '$' and '*'
func (n *NMEALayer) Computed() int {
	body := strings.TrimPrefix(n.Sentence, "$")
	if i := strings.IndexByte(body, '*'); i >= 0 {
		body = body[:i]
	}
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return int(sum)
}

// ChecksumOK is false when the sentence carries a checksum that does not match.
// Sentences without one are accepted.
func (n *NMEALayer) ChecksumOK() bool {
	return n.Checksum < 0 || n.Checksum == n.Computed()
}

func (n *NMEALayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) == 0 || data[0] != NMEAStart {
		return &ErrMalformedFraming{Reason: "nmea sentence does not start with '$'"}
	}
	n.BaseLayer = layers.BaseLayer{Contents: data}
	n.Sentence = schema.TrimText(data)
	n.Checksum = -1
	body := n.Sentence[1:]
	if i := strings.IndexByte(body, '*'); i >= 0 {
		if ck, err := strconv.ParseUint(strings.TrimSpace(body[i+1:]), 16, 8); err == nil {
			n.Checksum = int(ck)
		}
		body = body[:i]
	}
	n.Fields = strings.Split(body, ",")
	return nil
}

func (n *NMEALayer) String() string {
	return fmt.Sprintf("NMEA %s", n.Sentence)
}

func decodeNMEA(data []byte, p gopacket.PacketBuilder) error {
	n := &NMEALayer{}
	if err := n.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(n)
	return nil
}
