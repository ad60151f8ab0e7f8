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
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"

	"github.com/mammark/go-tagcore/pkg/layers"
	"github.com/mammark/go-tagcore/pkg/log"
	"github.com/mammark/go-tagcore/pkg/schema"
)

// Decoder walks a buffer of back to back records. The header len field
// decides where the next record starts, whatever the body decoders consumed.
type Decoder struct {
	buf           []byte
	offset        int
	skipChecksums bool
	stats         *Stats
	stopped       bool
}

type Option func(*Decoder)

// SkipChecksums turns off hdr_crc8 and recsum verification
func SkipChecksums(skip bool) Option {
	return func(d *Decoder) {
		d.skipChecksums = skip
	}
}

// WithStats makes the decoder add to s instead of its own accumulator
func WithStats(s *Stats) Option {
	return func(d *Decoder) {
		d.stats = s
	}
}

func NewDecoder(buf []byte, offset int, opts ...Option) *Decoder {
	d := &Decoder{
		buf:    buf,
		offset: offset,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.stats == nil {
		d.stats = NewStats()
	}
	return d
}

// Offset is where the next record is expected. After a stop it is the
// start of the record that could not be walked.
func (d *Decoder) Offset() int {
	return d.offset
}

func (d *Decoder) Stats() *Stats {
	return d.stats
}

func (d *Decoder) anomaly(kind AnomalyKind, recnum uint32, offset int, reason string) Anomaly {
	a := Anomaly{Kind: kind, Offset: offset, RecNum: recnum, Reason: reason}
	d.stats.addAnomaly(a)
	log.Warning("%s", a)
	return a
}

func (d *Decoder) stop(kind AnomalyKind, recnum uint32, err error) error {
	d.stopped = true
	return &ErrStopped{Anomaly: d.anomaly(kind, recnum, d.offset, err.Error()), Err: err}
}

// Next decodes the record at Offset and advances past it.
// It returns io.EOF once fewer than a header's worth of bytes remain.
func (d *Decoder) Next() (*Record, error) {
	if d.stopped || d.offset < 0 || len(d.buf)-d.offset < layers.RecordHeaderLen {
		return nil, io.EOF
	}
	rest := d.buf[d.offset:]
	h, err := layers.ParseRecordHeader(rest)
	if err != nil {
		var recnum uint32
		if h != nil {
			recnum = h.RecNum
		}
		return nil, d.stop(KindOf(err), recnum, err)
	}
	if int(h.Len) > len(rest) {
		return nil, d.stop(KindTruncatedInput, h.RecNum,
			&schema.ErrTruncatedInput{Offset: d.offset, Need: int(h.Len), Have: len(rest)})
	}

	span := rest[:h.Len]
	r := &Record{
		Offset: d.offset,
		Header: *h,
		Raw:    span,
	}
	if !d.skipChecksums {
		if err := h.VerifyHeader(span); err != nil {
			r.Corrupt = true
			r.Anomalies = append(r.Anomalies, d.anomaly(KindChecksumMismatch, h.RecNum, d.offset, err.Error()))
		} else if err := h.VerifyRecord(span); err != nil {
			r.Corrupt = true
			r.Anomalies = append(r.Anomalies, d.anomaly(KindChecksumMismatch, h.RecNum, d.offset, err.Error()))
		}
	}
	if !r.Corrupt {
		d.decode(r)
	}
	d.stats.addRecord(r)
	d.offset += int(h.Len)
	return r, nil
}

// decode runs the layer decoders over the record span and turns nested
// unknown tags, bad framing and decoder errors into anomalies
func (d *Decoder) decode(r *Record) {
	r.Packet = gopacket.NewPacket(r.Raw, layers.LayerTypeRecord, gopacket.DecodeOptions{NoCopy: true})
	base := 0
	note := func(kind AnomalyKind, reason string) {
		r.Anomalies = append(r.Anomalies, d.anomaly(kind, r.Header.RecNum, r.Offset, reason))
	}
	for _, l := range r.Packet.Layers() {
		switch l := l.(type) {
		case *layers.UnknownRecordLayer:
			note(KindUnknownType, (&layers.ErrUnknownType{Table: "record type", Tag: fmt.Sprintf("%d", uint8(l.Type))}).Error())
		case *layers.UnknownSensorLayer:
			note(KindUnknownType, (&layers.ErrUnknownType{Table: "sensor", Tag: fmt.Sprintf("%d", uint8(l.Sensor))}).Error())
		case *layers.UBXUnknownLayer:
			note(KindUnknownType, (&layers.ErrUnknownType{Table: "ubx class/id", Tag: l.ClassID.String()}).Error())
		case *layers.GPSRawLayer:
			if l.Framing == layers.FramingMalformed {
				note(KindMalformedFraming, malformedReason(l.Payload))
			}
		}
		if l.LayerType() == gopacket.LayerTypeDecodeFailure {
			continue
		}
		// layers are back to back, the failing decoder got the bytes from base on
		base += len(l.LayerContents())
		r.Consumed += len(l.LayerContents())
		if _, ok := l.(*layers.UBXLayer); ok {
			r.Consumed += layers.UBXChecksumLen
		}
	}
	if el := r.Packet.ErrorLayer(); el != nil {
		err := el.Error()
		var truncated *schema.ErrTruncatedInput
		if errors.As(err, &truncated) {
			// nested decoders report offsets into their own slice
			err = &schema.ErrTruncatedInput{Offset: r.Offset + base + truncated.Offset, Need: truncated.Need, Have: truncated.Have}
		}
		note(KindOf(err), err.Error())
	}
	if r.Consumed != int(r.Header.Len) {
		log.Debug("Record %d at offset %d: decoders consumed %d of %d bytes",
			r.Header.RecNum, r.Offset, r.Consumed, r.Header.Len)
	}
}

func malformedReason(frame []byte) string {
	if len(frame) < 2 {
		return (&layers.ErrMalformedFraming{Reason: fmt.Sprintf("frame too short (%d bytes)", len(frame))}).Error()
	}
	return (&layers.ErrMalformedFraming{Reason: fmt.Sprintf("unexpected start 0x%02x 0x%02x", frame[0], frame[1])}).Error()
}

// Walk calls fn for every record until the buffer is exhausted.
// It returns *ErrStopped when the walk could not reach the end and
// any error fn returns.
func (d *Decoder) Walk(fn func(*Record) error) error {
	for {
		r, err := d.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
}
