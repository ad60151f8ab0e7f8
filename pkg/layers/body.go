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

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/mammark/go-tagcore/pkg/log"
	"github.com/mammark/go-tagcore/pkg/schema"
)

// RecordBody is the decoded body of a record of a known type.
// Trailer holds the free form bytes that follow the fixed part of
// debug, test, note, config and tagnet records.
type RecordBody struct {
	layers.BaseLayer
	Type    RecordType
	Values  *schema.Values
	Trailer []byte
}

func (b *RecordBody) LayerType() gopacket.LayerType {
	return b.Type.LayerType()
}

// Body returns the embedded RecordBody, all record body layers implement it
func (b *RecordBody) Body() *RecordBody {
	return b
}

// DecodeFromBytes decodes data against the schema of the record type.
// Bytes past the schema stay in Payload.
func (b *RecordBody) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	entry := RecordTypeMetadata[b.Type]
	if entry.Schema == nil {
		return fmt.Errorf("No schema for record type %s", b.Type)
	}
	values, n, err := entry.Schema.Decode(data, 0)
	if err != nil {
		if _, ok := err.(*schema.ErrTruncatedInput); ok {
			df.SetTruncated()
		}
		return err
	}
	b.Values = values
	b.BaseLayer = layers.BaseLayer{
		Contents: data[0:n],
		Payload:  data[n:],
	}
	return nil
}

// BodyLayer is implemented by every record body layer
type BodyLayer interface {
	gopacket.Layer
	Body() *RecordBody
}

func decodeRecordBody(t RecordType, data []byte, p gopacket.PacketBuilder) error {
	body := &RecordBody{Type: t}
	if err := body.DecodeFromBytes(data, p); err != nil {
		log.Debug("Error while decoding %s body: %s", t, err)
		return err
	}
	p.AddLayer(body)
	return nil
}

// decodeTrailer keeps the bytes after the fixed part as part of the body
func decodeTrailer(t RecordType, data []byte, p gopacket.PacketBuilder) error {
	body := &RecordBody{Type: t}
	if err := body.DecodeFromBytes(data, p); err != nil {
		return err
	}
	body.takeTrailer(data)
	p.AddLayer(body)
	return nil
}

func (b *RecordBody) takeTrailer(data []byte) {
	b.Trailer = b.Payload
	b.Contents = data
	b.Payload = nil
}

// NoteLayer is a note record, its body is free text
type NoteLayer struct {
	RecordBody
}

// Text returns the note with trailing NULs and whitespace removed
func (n *NoteLayer) Text() string {
	return schema.TrimText(n.Trailer)
}

func decodeNote(t RecordType, data []byte, p gopacket.PacketBuilder) error {
	note := &NoteLayer{RecordBody{Type: t}}
	if err := note.DecodeFromBytes(data, p); err != nil {
		return err
	}
	note.takeTrailer(data)
	p.AddLayer(note)
	return nil
}

// VersionLayer is a version record carrying the running image_info
type VersionLayer struct {
	RecordBody
}

// Version returns major.minor.build of the image
func (v *VersionLayer) Version() string {
	ver := v.Values.Sub("image_info.basic.ver_id")
	return fmt.Sprintf("%d.%d.%d", ver.Uint("major"), ver.Uint("minor"), ver.Uint("build"))
}

// Descriptor returns a plus area string, empty when the image does not carry it
func (v *VersionLayer) Descriptor(tlvType uint8) string {
	return v.Values.TLV("image_info.plus").String(tlvType)
}

// SignatureValid reports whether image_info carries ImageInfoSig
func (v *VersionLayer) SignatureValid() bool {
	return v.Values.Uint("image_info.basic.ii_sig") == ImageInfoSig
}

func decodeVersion(t RecordType, data []byte, p gopacket.PacketBuilder) error {
	ver := &VersionLayer{RecordBody{Type: t}}
	if err := ver.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(ver)
	return nil
}

// SyncLayer is a sync record, it lets a reader find record boundaries again
type SyncLayer struct {
	RecordBody
}

func (s *SyncLayer) Majik() uint32 {
	return uint32(s.Values.Uint("majik"))
}

func (s *SyncLayer) PrevSync() uint32 {
	return uint32(s.Values.Uint("prev_sync"))
}

func decodeSync(t RecordType, data []byte, p gopacket.PacketBuilder) error {
	sync := &SyncLayer{RecordBody{Type: t}}
	if err := sync.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(sync)
	if sync.Majik() != SyncMajik {
		return &ErrSignatureMismatch{What: "sync majik", Expected: SyncMajik, Actual: sync.Majik()}
	}
	return nil
}

// GPSTrackLayer is the legacy per channel tracking record
type GPSTrackLayer struct {
	RecordBody
}

// Channels returns one element per tracked channel
func (g *GPSTrackLayer) Channels() []*schema.Values {
	return g.Values.Elems("chan")
}

// CNoAvg returns the mean of the cno samples of channel i
func (g *GPSTrackLayer) CNoAvg(i int) float64 {
	chans := g.Channels()
	if i < 0 || i >= len(chans) {
		return 0
	}
	var sum uint64
	for n := 0; n < GPSTrackCNoSamples; n++ {
		sum += chans[i].Uint(fmt.Sprintf("cno%d", n))
	}
	return float64(sum) / GPSTrackCNoSamples
}

func decodeGPSTrack(t RecordType, data []byte, p gopacket.PacketBuilder) error {
	trk := &GPSTrackLayer{RecordBody{Type: t}}
	if err := trk.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(trk)
	return nil
}
