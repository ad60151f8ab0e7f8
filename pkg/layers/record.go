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
	"encoding/binary"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/sigurn/crc8"

	"github.com/mammark/go-tagcore/pkg/log"
	"github.com/mammark/go-tagcore/pkg/schema"
)

const (
	// RecordLayerNum identifies the layer
	RecordLayerNum = 3000
	// RecordHeaderLen is the size of the header every record starts with
	// len(2) type(1) hdr_crc8(1) recnum(4) rt(10) recsum(2)
	RecordHeaderLen = 20
	// RTCLen is the size of the embedded real time clock stamp
	RTCLen = 10
	// RTCTicksPerSecond is the rate of the sub second counter
	RTCTicksPerSecond = 32768
)

const (
	recsumOffset = 18
	crcOffset    = 3
)

var crc8Table = crc8.MakeTable(crc8.CRC8)

// RTCSchema is the layout of an RTC stamp when it is embedded in a record body
var RTCSchema = schema.NewComposite("rtctime",
	schema.M("sub_sec", schema.U16()),
	schema.M("sec", schema.U8()),
	schema.M("min", schema.U8()),
	schema.M("hr", schema.U8()),
	schema.M("dow", schema.U8()),
	schema.M("day", schema.U8()),
	schema.M("mon", schema.U8()),
	schema.M("year", schema.U16()),
)

type RTCTime struct {
	SubSec uint16 `json:"sub_sec"`
	Sec    uint8  `json:"sec"`
	Min    uint8  `json:"min"`
	Hr     uint8  `json:"hr"`
	Dow    uint8  `json:"dow"`
	Day    uint8  `json:"day"`
	Mon    uint8  `json:"mon"`
	Year   uint16 `json:"year"`
}

// Time converts the stamp, ok is false when the stamp is not a valid date
func (rt RTCTime) Time() (time.Time, bool) {
	if rt.Mon < 1 || rt.Mon > 12 || rt.Day < 1 || rt.Day > 31 || rt.Hr > 23 || rt.Min > 59 || rt.Sec > 59 {
		return time.Time{}, false
	}
	nsec := int(uint64(rt.SubSec) * uint64(time.Second) / RTCTicksPerSecond)
	return time.Date(int(rt.Year), time.Month(rt.Mon), int(rt.Day), int(rt.Hr), int(rt.Min), int(rt.Sec), nsec, time.UTC), true
}

func decodeRTC(data []byte) RTCTime {
	return RTCTime{
		SubSec: binary.LittleEndian.Uint16(data[0:2]),
		Sec:    data[2],
		Min:    data[3],
		Hr:     data[4],
		Dow:    data[5],
		Day:    data[6],
		Mon:    data[7],
		Year:   binary.LittleEndian.Uint16(data[8:10]),
	}
}

type RecordHeader struct {
	Len    uint16     `json:"len"`
	Type   RecordType `json:"type"`
	HdrCRC uint8      `json:"hdr_crc8"`
	RecNum uint32     `json:"recnum"`
	RTC    RTCTime    `json:"rt"`
	RecSum uint16     `json:"recsum"`
}

// ParseRecordHeader reads the fixed header at the start of data
func ParseRecordHeader(data []byte) (*RecordHeader, error) {
	if len(data) < RecordHeaderLen {
		return nil, &schema.ErrTruncatedInput{Offset: 0, Need: RecordHeaderLen, Have: len(data)}
	}
	h := &RecordHeader{
		Len:    binary.LittleEndian.Uint16(data[0:2]),
		Type:   RecordType(data[2]),
		HdrCRC: data[3],
		RecNum: binary.LittleEndian.Uint32(data[4:8]),
		RTC:    decodeRTC(data[8 : 8+RTCLen]),
		RecSum: binary.LittleEndian.Uint16(data[recsumOffset:RecordHeaderLen]),
	}
	if int(h.Len) < RecordHeaderLen {
		return h, &ErrInvalidLength{Len: h.Len, Min: RecordHeaderLen}
	}
	return h, nil
}

// HeaderCRC is the CRC-8 of the header up to recsum, with the crc byte itself taken as zero
func HeaderCRC(hdr []byte) uint8 {
	var tmp [recsumOffset]byte
	copy(tmp[:], hdr[:recsumOffset])
	tmp[crcOffset] = 0
	return crc8.Checksum(tmp[:], crc8Table)
}

// RecordSum is the 16 bit sum of every record byte except the recsum field
func RecordSum(rec []byte) uint16 {
	var sum uint16
	for i, b := range rec {
		if i == recsumOffset || i == recsumOffset+1 {
			continue
		}
		sum += uint16(b)
	}
	return sum
}

// VerifyHeader checks hdr_crc8 against the raw header bytes
func (h *RecordHeader) VerifyHeader(hdr []byte) error {
	if crc := HeaderCRC(hdr); crc != h.HdrCRC {
		return &ErrChecksumMismatch{What: "hdr_crc8", Expected: uint32(h.HdrCRC), Actual: uint32(crc)}
	}
	return nil
}

// VerifyRecord checks recsum against the whole record span
func (h *RecordHeader) VerifyRecord(span []byte) error {
	if len(span) < int(h.Len) {
		return &schema.ErrTruncatedInput{Offset: 0, Need: int(h.Len), Have: len(span)}
	}
	if sum := RecordSum(span[:h.Len]); sum != h.RecSum {
		return &ErrChecksumMismatch{What: "recsum", Expected: uint32(h.RecSum), Actual: uint32(sum)}
	}
	return nil
}

// SerializeTo writes the header into the first RecordHeaderLen bytes of buf
func (h *RecordHeader) SerializeTo(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], h.Len)
	buf[2] = uint8(h.Type)
	buf[3] = h.HdrCRC
	binary.LittleEndian.PutUint32(buf[4:8], h.RecNum)
	binary.LittleEndian.PutUint16(buf[8:10], h.RTC.SubSec)
	buf[10] = h.RTC.Sec
	buf[11] = h.RTC.Min
	buf[12] = h.RTC.Hr
	buf[13] = h.RTC.Dow
	buf[14] = h.RTC.Day
	buf[15] = h.RTC.Mon
	binary.LittleEndian.PutUint16(buf[16:18], h.RTC.Year)
	binary.LittleEndian.PutUint16(buf[18:20], h.RecSum)
}

// BuildRecord frames body with a header carrying valid hdr_crc8 and recsum
func BuildRecord(t RecordType, recnum uint32, rt RTCTime, body []byte) []byte {
	rec := make([]byte, RecordHeaderLen+len(body))
	h := &RecordHeader{
		Len:    uint16(len(rec)),
		Type:   t,
		RecNum: recnum,
		RTC:    rt,
	}
	h.SerializeTo(rec)
	copy(rec[RecordHeaderLen:], body)
	rec[crcOffset] = HeaderCRC(rec)
	binary.LittleEndian.PutUint16(rec[recsumOffset:RecordHeaderLen], RecordSum(rec))
	return rec
}

type RecordLayer struct {
	layers.BaseLayer
	RecordHeader
}

var LayerTypeRecord = gopacket.RegisterLayerType(RecordLayerNum,
	gopacket.LayerTypeMetadata{Name: "Record", Decoder: gopacket.DecodeFunc(decodeRecordLayer)})

func (rl *RecordLayer) LayerType() gopacket.LayerType {
	return LayerTypeRecord
}

// DecodeFromBytes decodes the header and bounds the payload by the declared length
func (rl *RecordLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	h, err := ParseRecordHeader(data)
	if err != nil {
		if _, ok := err.(*schema.ErrTruncatedInput); ok {
			df.SetTruncated()
		}
		return err
	}
	if int(h.Len) > len(data) {
		df.SetTruncated()
		return &schema.ErrTruncatedInput{Offset: 0, Need: int(h.Len), Have: len(data)}
	}
	rl.RecordHeader = *h
	rl.BaseLayer = layers.BaseLayer{
		Contents: data[0:RecordHeaderLen],
		Payload:  data[RecordHeaderLen:h.Len],
	}
	return nil
}

func (rl *RecordLayer) NextLayerType() gopacket.LayerType {
	return rl.Type.LayerType()
}

func decodeRecordLayer(data []byte, p gopacket.PacketBuilder) error {
	rl := &RecordLayer{}
	err := rl.DecodeFromBytes(data, p)
	if err != nil {
		log.Debug("Error while decoding record layer: %s", err)
		return err
	}
	p.AddLayer(rl)
	// called directly so an empty body still reaches the body decoder
	return rl.Type.Decode(rl.Payload, p)
}
