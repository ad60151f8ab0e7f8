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
	"testing"

	"github.com/google/gopacket"
)

var testGPSHeader = le(uint32(0x1000), uint8(0x01), uint8(1), uint16(0))

func ubxFrame(cid UBXClassID, payload []byte) []byte {
	frame := le(uint8(UBXSync1), uint8(UBXSync2), cid.Class(), cid.ID(), uint16(len(payload)), payload)
	a, b := UBXChecksum(frame[2:])
	return append(frame, a, b)
}

func decodeGPSRawRecord(frame []byte) gopacket.Packet {
	return decodeRecord(RecordTypeGPSRaw, append(append([]byte{}, testGPSHeader...), frame...))
}

func TestDecodeUBX(t *testing.T) {
	p := decodeGPSRawRecord(ubxFrame(UBXNavEOE, le(uint32(345600))))
	if p.ErrorLayer() != nil {
		t.Fatalf("decode failed: %s", p.ErrorLayer().Error())
	}
	g := p.Layer(RecordTypeGPSRaw.LayerType()).(*GPSRawLayer)
	if g.Framing != FramingUBX || g.Dir() != 1 {
		t.Errorf("unexpected gps raw layer %+v", g)
	}
	u := p.Layer(LayerTypeUBX).(*UBXLayer)
	if u.ClassID != UBXNavEOE || u.Len != 4 || len(u.LayerContents()) != UBXHeaderLen {
		t.Errorf("unexpected ubx header %+v", u)
	}
	m, ok := p.Layer(UBXNavEOE.LayerType()).(*UBXMessageLayer)
	if !ok {
		t.Fatalf("no NAV-EOE layer")
	}
	if m.Values.Uint("iTow") != 345600 {
		t.Errorf("unexpected iTow %d", m.Values.Uint("iTow"))
	}
}

func TestDecodeUBXChecksumMismatch(t *testing.T) {
	frame := ubxFrame(UBXNavEOE, le(uint32(1)))
	frame[len(frame)-1] ^= 0xff
	p := decodeGPSRawRecord(frame)
	if p.Layer(LayerTypeUBX) == nil {
		t.Fatalf("ubx layer must be kept on checksum mismatch")
	}
	if p.Layer(UBXNavEOE.LayerType()) != nil {
		t.Errorf("payload must not be decoded on checksum mismatch")
	}
	if p.ErrorLayer() == nil {
		t.Fatalf("checksum mismatch must be reported")
	}
	if _, ok := p.ErrorLayer().Error().(*ErrChecksumMismatch); !ok {
		t.Errorf("expected ErrChecksumMismatch, got %T", p.ErrorLayer().Error())
	}
}

func TestDecodeUBXUnknown(t *testing.T) {
	cid := NewUBXClassID(UBXClassNAV, 0x99)
	p := decodeGPSRawRecord(ubxFrame(cid, []byte{1, 2, 3}))
	if p.ErrorLayer() != nil {
		t.Fatalf("unknown class/id must not fail: %s", p.ErrorLayer().Error())
	}
	u, ok := p.Layer(LayerTypeUBXUnknown).(*UBXUnknownLayer)
	if !ok {
		t.Fatalf("no unknown ubx layer")
	}
	if u.ClassID != cid || len(u.LayerPayload()) != 3 {
		t.Errorf("unexpected unknown ubx %+v", u)
	}
	if cid.String() != "UBX-NAV-0x99" {
		t.Errorf("unexpected name %s", cid)
	}
	if NewUBXClassID(0x77, 0x01).String() != "UBX-0x77-0x01" {
		t.Errorf("unexpected name %s", NewUBXClassID(0x77, 0x01))
	}
}

func TestDecodeUBXTruncatedFrame(t *testing.T) {
	frame := ubxFrame(UBXNavEOE, le(uint32(1)))
	p := decodeGPSRawRecord(frame[:len(frame)-3])
	if p.ErrorLayer() == nil || !p.Metadata().Truncated {
		t.Errorf("frame shorter than its len must be truncated")
	}
}

func TestDecodeGPSRawMalformed(t *testing.T) {
	for _, frame := range [][]byte{{0x00, 0x01, 0x02}, {UBXSync1}, {}} {
		p := decodeGPSRawRecord(frame)
		if p.ErrorLayer() != nil {
			t.Errorf("malformed framing must not fail: %s", p.ErrorLayer().Error())
			continue
		}
		g := p.Layer(RecordTypeGPSRaw.LayerType()).(*GPSRawLayer)
		if g.Framing != FramingMalformed {
			t.Errorf("frame % x: expected malformed, got %s", frame, g.Framing)
		}
		if len(g.LayerPayload()) != len(frame) {
			t.Errorf("malformed frame must stay in the payload")
		}
	}
}

func TestDecodeNMEA(t *testing.T) {
	body := "GPGGA,123519,4807.038,N"
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	sentence := fmt.Sprintf("$%s*%02X\r\n", body, sum)
	p := decodeGPSRawRecord([]byte(sentence))
	n, ok := p.Layer(LayerTypeNMEA).(*NMEALayer)
	if !ok {
		t.Fatalf("no nmea layer")
	}
	if n.Talker() != "GPGGA" || len(n.Fields) != 4 {
		t.Errorf("unexpected fields %v", n.Fields)
	}
	if !n.ChecksumOK() {
		t.Errorf("checksum 0x%02x not accepted", sum)
	}
}

func TestDecodeNavSat(t *testing.T) {
	sv := func(id uint8, cno uint8) []byte {
		return le(uint8(0), id, cno, int8(45), int16(180), int16(-3), uint32(0x1f))
	}
	payload := le(uint32(1000), uint8(1), uint8(2), uint16(0), sv(5, 38), sv(12, 41))
	p := decodeGPSRawRecord(ubxFrame(UBXNavSat, payload))
	m := p.Layer(UBXNavSat.LayerType()).(*UBXMessageLayer)
	svs := m.Values.Elems("sv")
	if len(svs) != 2 || svs[1].Uint("svId") != 12 || svs[0].Int("prRes") != -3 {
		t.Errorf("unexpected svs %v", m.Values.Map())
	}
}

func TestDecodeUBXVariants(t *testing.T) {
	p := decodeGPSRawRecord(ubxFrame(UBXUpdSOS, le(uint8(2), make([]byte, 3))))
	m := p.Layer(UBXUpdSOS.LayerType()).(*UBXMessageLayer)
	if m.Values.Has("rsp") {
		t.Errorf("command variant must not have rsp")
	}

	p = decodeGPSRawRecord(ubxFrame(UBXUpdSOS, le(uint8(3), make([]byte, 3), uint8(1), make([]byte, 3))))
	m = p.Layer(UBXUpdSOS.LayerType()).(*UBXMessageLayer)
	if m.Values.Uint("rsp") != 1 {
		t.Errorf("response variant must carry rsp")
	}

	p = decodeGPSRawRecord(ubxFrame(UBXRxmPMReq, le(uint8(0), make([]byte, 3), uint32(1000), uint32(2), uint32(8))))
	m = p.Layer(UBXRxmPMReq.LayerType()).(*UBXMessageLayer)
	if m.Values.Uint("wakeupSources") != 8 {
		t.Errorf("unexpected pmreq %v", m.Values.Map())
	}
}

func TestDecodeMonVer(t *testing.T) {
	text := func(s string, n int) []byte {
		b := make([]byte, n)
		copy(b, s)
		return b
	}
	payload := le(text("ROM CORE 3.01", 30), text("00080000", 10), text("FWVER=SPG 3.01", 30), text("PROTVER=18.00", 30))
	p := decodeGPSRawRecord(ubxFrame(UBXMonVer, payload))
	m := p.Layer(UBXMonVer.LayerType()).(*UBXMessageLayer)
	if m.Values.Display("swVersion") != "ROM CORE 3.01" {
		t.Errorf("unexpected swVersion %q", m.Values.Display("swVersion"))
	}
	ext := m.MonVerExtensions()
	if len(ext) != 2 || ext[1] != "PROTVER=18.00" {
		t.Errorf("unexpected extensions %v", ext)
	}
}
