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
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/mammark/go-tagcore/pkg/schema"
)

const (
	UBXLayerNum        = 3402
	UBXUnknownLayerNum = 3403
	// UBXMessageLayerNumBase is the first layer number handed to known UBX messages
	UBXMessageLayerNumBase = 3500

	UBXSync1 = 0xB5
	UBXSync2 = 0x62
	// UBXHeaderLen is sync(2) class(1) id(1) len(2)
	UBXHeaderLen = 6
	// UBXChecksumLen is ck_a and ck_b at the end of every frame
	UBXChecksumLen = 2
)

// UBX message classes
const (
	UBXClassNAV  = 0x01
	UBXClassRXM  = 0x02
	UBXClassINF  = 0x04
	UBXClassACK  = 0x05
	UBXClassCFG  = 0x06
	UBXClassUPD  = 0x09
	UBXClassMON  = 0x0A
	UBXClassAID  = 0x0B
	UBXClassTIM  = 0x0D
	UBXClassESF  = 0x10
	UBXClassMGA  = 0x13
	UBXClassLOG  = 0x21
	UBXClassSEC  = 0x27
	UBXClassHNR  = 0x28
	UBXClassNMEA = 0xF0
)

var ubxClassNames = map[uint8]string{
	UBXClassNAV:  "NAV",
	UBXClassRXM:  "RXM",
	UBXClassINF:  "INF",
	UBXClassACK:  "ACK",
	UBXClassCFG:  "CFG",
	UBXClassUPD:  "UPD",
	UBXClassMON:  "MON",
	UBXClassAID:  "AID",
	UBXClassTIM:  "TIM",
	UBXClassESF:  "ESF",
	UBXClassMGA:  "MGA",
	UBXClassLOG:  "LOG",
	UBXClassSEC:  "SEC",
	UBXClassHNR:  "HNR",
	UBXClassNMEA: "NMEA",
}

// UBXClassID is class<<8 | id
type UBXClassID uint16

const (
	UBXNavPosECEF   UBXClassID = 0x0101
	UBXNavPosLLH    UBXClassID = 0x0102
	UBXNavStatus    UBXClassID = 0x0103
	UBXNavDOP       UBXClassID = 0x0104
	UBXNavPVT       UBXClassID = 0x0107
	UBXNavTimeGPS   UBXClassID = 0x0120
	UBXNavTimeUTC   UBXClassID = 0x0121
	UBXNavClock     UBXClassID = 0x0122
	UBXNavTimeLS    UBXClassID = 0x0126
	UBXNavOrb       UBXClassID = 0x0134
	UBXNavSat       UBXClassID = 0x0135
	UBXNavAOPStatus UBXClassID = 0x0160
	UBXNavEOE       UBXClassID = 0x0161
	UBXRxmPMReq     UBXClassID = 0x0241
	UBXAckNack      UBXClassID = 0x0500
	UBXAckAck       UBXClassID = 0x0501
	UBXUpdSOS       UBXClassID = 0x0914
	UBXMonVer       UBXClassID = 0x0A04
	UBXTimTP        UBXClassID = 0x0D01
)

// MonVerExtensionLen is the size of each extension string trailing MON-VER
const MonVerExtensionLen = 30

func NewUBXClassID(class, id uint8) UBXClassID {
	return UBXClassID(uint16(class)<<8 | uint16(id))
}

func (c UBXClassID) Class() uint8 {
	return uint8(c >> 8)
}

func (c UBXClassID) ID() uint8 {
	return uint8(c)
}

// UBXChecksum is the 8 bit Fletcher checksum of class, id, len and payload
func UBXChecksum(data []byte) (uint8, uint8) {
	var a, b uint8
	for _, c := range data {
		a += c
		b += a
	}
	return a, b
}

type UBXClassIDEntry struct {
	DecodeWith gopacket.Decoder
	Name       string
	LayerType  gopacket.LayerType
	// Variants are the payload layouts, picked by payload length
	Variants []*schema.Composite
	Known    bool
}

type unknownUBXDecoder uint16

func (d *unknownUBXDecoder) Decode(data []byte, p gopacket.PacketBuilder) error {
	p.AddLayer(&UBXUnknownLayer{
		BaseLayer: layers.BaseLayer{Payload: data},
		ClassID:   UBXClassID(*d),
	})
	return nil
}

var unknownUBXDecoders [65536]unknownUBXDecoder
var UBXClassIDMetadata [65536]UBXClassIDEntry

var LayerTypeUBX = gopacket.RegisterLayerType(UBXLayerNum,
	gopacket.LayerTypeMetadata{Name: "UBX", Decoder: gopacket.DecodeFunc(decodeUBX)})

var LayerTypeUBXUnknown = gopacket.RegisterLayerType(UBXUnknownLayerNum,
	gopacket.LayerTypeMetadata{Name: "UBXUnknown", Decoder: gopacket.DecodeUnknown})

func initUnknownUBXClassIDs() {
	for i := 0; i < 65536; i++ {
		unknownUBXDecoders[i] = unknownUBXDecoder(i)
		UBXClassIDMetadata[i] = UBXClassIDEntry{
			DecodeWith: &unknownUBXDecoders[i],
			Name:       "UBXUnknown",
			LayerType:  LayerTypeUBXUnknown,
		}
	}
}

var ubxMessageLayerNum = UBXMessageLayerNumBase

func setUBXClassID(cid UBXClassID, name string, variants ...*schema.Composite) {
	dec := ubxDecoder(cid)
	lt := gopacket.RegisterLayerType(ubxMessageLayerNum,
		gopacket.LayerTypeMetadata{Name: name, Decoder: dec})
	ubxMessageLayerNum++
	UBXClassIDMetadata[cid] = UBXClassIDEntry{
		DecodeWith: dec,
		Name:       name,
		LayerType:  lt,
		Variants:   variants,
		Known:      true,
	}
}

var navPosECEFSchema = schema.NewComposite("nav_posecef",
	schema.M("iTow", schema.U32()),
	schema.M("ecefX", schema.I32()),
	schema.M("ecefY", schema.I32()),
	schema.M("ecefZ", schema.I32()),
	schema.M("pAcc", schema.U32()),
)

var navPosLLHSchema = schema.NewComposite("nav_posllh",
	schema.M("iTow", schema.U32()),
	schema.M("lon", schema.I32()),
	schema.M("lat", schema.I32()),
	schema.M("height", schema.I32()),
	schema.M("hMSL", schema.I32()),
	schema.M("hAcc", schema.U32()),
	schema.M("vAcc", schema.U32()),
)

var navStatusSchema = schema.NewComposite("nav_status",
	schema.M("iTow", schema.U32()),
	schema.M("gpsFix", schema.U8()),
	schema.M("flags", schema.U8().As("0x%02x")),
	schema.M("fixStat", schema.U8().As("0x%02x")),
	schema.M("flags2", schema.U8().As("0x%02x")),
	schema.M("ttff", schema.U32()),
	schema.M("msss", schema.U32()),
)

var navDOPSchema = schema.NewComposite("nav_dop",
	schema.M("iTow", schema.U32()),
	schema.M("gDop", schema.U16()),
	schema.M("pDop", schema.U16()),
	schema.M("tDop", schema.U16()),
	schema.M("vDop", schema.U16()),
	schema.M("hDop", schema.U16()),
	schema.M("nDop", schema.U16()),
	schema.M("eDop", schema.U16()),
)

var navPVTSchema = schema.NewComposite("nav_pvt",
	schema.M("iTow", schema.U32()),
	schema.M("year", schema.U16()),
	schema.M("month", schema.U8()),
	schema.M("day", schema.U8()),
	schema.M("hour", schema.U8()),
	schema.M("min", schema.U8()),
	schema.M("sec", schema.U8()),
	schema.M("valid", schema.U8().As("0x%02x")),
	schema.M("tAcc", schema.U32()),
	schema.M("nano", schema.I32()),
	schema.M("fixType", schema.U8()),
	schema.M("flags", schema.U8().As("0x%02x")),
	schema.M("flags2", schema.U8().As("0x%02x")),
	schema.M("numSV", schema.U8()),
	schema.M("lon", schema.I32()),
	schema.M("lat", schema.I32()),
	schema.M("height", schema.I32()),
	schema.M("hMSL", schema.I32()),
	schema.M("hAcc", schema.U32()),
	schema.M("vAcc", schema.U32()),
	schema.M("velN", schema.I32()),
	schema.M("velE", schema.I32()),
	schema.M("velD", schema.I32()),
	schema.M("gSpeed", schema.I32()),
	schema.M("headMot", schema.I32()),
	schema.M("sAcc", schema.U32()),
	schema.M("headAcc", schema.U32()),
	schema.M("pDop", schema.U16()),
	schema.M("flags3", schema.U8().As("0x%02x")),
	schema.M("reserved1", schema.Hex(5)),
	schema.M("headVeh", schema.I32()),
	schema.M("magDec", schema.I16()),
	schema.M("magAcc", schema.U16()),
)

var navTimeGPSSchema = schema.NewComposite("nav_timegps",
	schema.M("iTow", schema.U32()),
	schema.M("fTow", schema.I32()),
	schema.M("week", schema.I16()),
	schema.M("leapS", schema.I8()),
	schema.M("valid", schema.U8().As("0x%02x")),
	schema.M("tAcc", schema.U32()),
)

var navTimeUTCSchema = schema.NewComposite("nav_timeutc",
	schema.M("iTow", schema.U32()),
	schema.M("tAcc", schema.U32()),
	schema.M("nano", schema.I32()),
	schema.M("year", schema.U16()),
	schema.M("month", schema.U8()),
	schema.M("day", schema.U8()),
	schema.M("hour", schema.U8()),
	schema.M("min", schema.U8()),
	schema.M("sec", schema.U8()),
	schema.M("valid", schema.U8().As("0x%02x")),
)

var navClockSchema = schema.NewComposite("nav_clock",
	schema.M("iTow", schema.U32()),
	schema.M("clkB", schema.I32()),
	schema.M("clkD", schema.I32()),
	schema.M("tAcc", schema.U32()),
	schema.M("fAcc", schema.U32()),
)

var navTimeLSSchema = schema.NewComposite("nav_timels",
	schema.M("iTow", schema.U32()),
	schema.M("version", schema.U8()),
	schema.M("reserved1", schema.Hex(3)),
	schema.M("srcOfCurrLs", schema.U8()),
	schema.M("currLs", schema.I8()),
	schema.M("srcOfLsChange", schema.U8()),
	schema.M("lsChange", schema.I8()),
	schema.M("timeToLsEvent", schema.I32()),
	schema.M("dateOfLsGpsWn", schema.U16()),
	schema.M("dateOfLsGpsDn", schema.U16()),
	schema.M("reserved2", schema.Hex(3)),
	schema.M("valid", schema.U8().As("0x%02x")),
)

var navOrbSVSchema = schema.NewComposite("sv",
	schema.M("gnssId", schema.U8()),
	schema.M("svId", schema.U8()),
	schema.M("svFlag", schema.U8().As("0x%02x")),
	schema.M("eph", schema.U8().As("0x%02x")),
	schema.M("alm", schema.U8().As("0x%02x")),
	schema.M("otherOrb", schema.U8().As("0x%02x")),
)

var navOrbSchema = schema.NewComposite("nav_orb",
	schema.M("iTow", schema.U32()),
	schema.M("version", schema.U8()),
	schema.M("numSvs", schema.U8()),
	schema.M("reserved1", schema.Hex(2)),
	schema.M("sv", schema.CountedArray{CountFrom: "numSvs", Elem: navOrbSVSchema}),
)

var navSatSVSchema = schema.NewComposite("sv",
	schema.M("gnssId", schema.U8()),
	schema.M("svId", schema.U8()),
	schema.M("cno", schema.U8()),
	schema.M("elev", schema.I8()),
	schema.M("azim", schema.I16()),
	schema.M("prRes", schema.I16()),
	schema.M("flags", schema.U32().As("0x%08x")),
)

var navSatSchema = schema.NewComposite("nav_sat",
	schema.M("iTow", schema.U32()),
	schema.M("version", schema.U8()),
	schema.M("numSvs", schema.U8()),
	schema.M("reserved1", schema.Hex(2)),
	schema.M("sv", schema.CountedArray{CountFrom: "numSvs", Elem: navSatSVSchema}),
)

var navAOPStatusSchema = schema.NewComposite("nav_aopstatus",
	schema.M("iTow", schema.U32()),
	schema.M("aopCfg", schema.U8().As("0x%02x")),
	schema.M("status", schema.U8()),
	schema.M("reserved1", schema.Hex(10)),
)

var navEOESchema = schema.NewComposite("nav_eoe",
	schema.M("iTow", schema.U32()),
)

var timTPSchema = schema.NewComposite("tim_tp",
	schema.M("towMs", schema.U32()),
	schema.M("towSubMs", schema.U32()),
	schema.M("qErr", schema.I32()),
	schema.M("week", schema.U16()),
	schema.M("flags", schema.U8().As("0x%02x")),
	schema.M("refInfo", schema.U8().As("0x%02x")),
)

var ackSchema = schema.NewComposite("ack",
	schema.M("clsID", schema.U8().As("0x%02x")),
	schema.M("msgID", schema.U8().As("0x%02x")),
)

var updSOSCmdSchema = schema.NewComposite("upd_sos",
	schema.M("cmd", schema.U8()),
	schema.M("reserved1", schema.Hex(3)),
)

var updSOSRspSchema = schema.NewComposite("upd_sos_rsp",
	schema.M("cmd", schema.U8()),
	schema.M("reserved1", schema.Hex(3)),
	schema.M("rsp", schema.U8()),
	schema.M("reserved2", schema.Hex(3)),
)

var rxmPMReqSchema = schema.NewComposite("rxm_pmreq",
	schema.M("duration", schema.U32()),
	schema.M("flags", schema.U32().As("0x%08x")),
)

var rxmPMReqV1Schema = schema.NewComposite("rxm_pmreq_v1",
	schema.M("version", schema.U8()),
	schema.M("reserved1", schema.Hex(3)),
	schema.M("duration", schema.U32()),
	schema.M("flags", schema.U32().As("0x%08x")),
	schema.M("wakeupSources", schema.U32().As("0x%08x")),
)

var monVerSchema = schema.NewComposite("mon_ver",
	schema.M("swVersion", schema.Text(30)),
	schema.M("hwVersion", schema.Text(10)),
)

func initActualUBXClassIDs() {
	setUBXClassID(UBXNavPosECEF, "NAV-POSECEF", navPosECEFSchema)
	setUBXClassID(UBXNavPosLLH, "NAV-POSLLH", navPosLLHSchema)
	setUBXClassID(UBXNavStatus, "NAV-STATUS", navStatusSchema)
	setUBXClassID(UBXNavDOP, "NAV-DOP", navDOPSchema)
	setUBXClassID(UBXNavPVT, "NAV-PVT", navPVTSchema)
	setUBXClassID(UBXNavTimeGPS, "NAV-TIMEGPS", navTimeGPSSchema)
	setUBXClassID(UBXNavTimeUTC, "NAV-TIMEUTC", navTimeUTCSchema)
	setUBXClassID(UBXNavClock, "NAV-CLOCK", navClockSchema)
	setUBXClassID(UBXNavTimeLS, "NAV-TIMELS", navTimeLSSchema)
	setUBXClassID(UBXNavOrb, "NAV-ORB", navOrbSchema)
	setUBXClassID(UBXNavSat, "NAV-SAT", navSatSchema)
	setUBXClassID(UBXNavAOPStatus, "NAV-AOPSTATUS", navAOPStatusSchema)
	setUBXClassID(UBXNavEOE, "NAV-EOE", navEOESchema)
	setUBXClassID(UBXRxmPMReq, "RXM-PMREQ", rxmPMReqSchema, rxmPMReqV1Schema)
	setUBXClassID(UBXAckNack, "ACK-NACK", ackSchema)
	setUBXClassID(UBXAckAck, "ACK-ACK", ackSchema)
	setUBXClassID(UBXUpdSOS, "UPD-SOS", updSOSCmdSchema, updSOSRspSchema)
	setUBXClassID(UBXMonVer, "MON-VER", monVerSchema)
	setUBXClassID(UBXTimTP, "TIM-TP", timTPSchema)
}

// LookupUBX returns the table entry of cid, ok is false for unknown messages
func LookupUBX(cid UBXClassID) (UBXClassIDEntry, bool) {
	e := UBXClassIDMetadata[cid]
	return e, e.Known
}

func (c UBXClassID) LayerType() gopacket.LayerType {
	return UBXClassIDMetadata[c].LayerType
}

func (c UBXClassID) Decode(data []byte, p gopacket.PacketBuilder) error {
	return UBXClassIDMetadata[c].DecodeWith.Decode(data, p)
}

// String returns the message name, UBX-<class>-0xNN when the message is not in the table
func (c UBXClassID) String() string {
	if UBXClassIDMetadata[c].Known {
		return UBXClassIDMetadata[c].Name
	}
	class, ok := ubxClassNames[c.Class()]
	if !ok {
		class = fmt.Sprintf("0x%02x", c.Class())
	}
	return fmt.Sprintf("UBX-%s-0x%02x", class, c.ID())
}

// UBXLayer is the UBX frame header. Payload is the message payload,
// the checksum bytes are neither in Contents nor in Payload.
type UBXLayer struct {
	layers.BaseLayer
	ClassID UBXClassID
	Len     uint16
	CkA     uint8
	CkB     uint8
}

func (u *UBXLayer) LayerType() gopacket.LayerType {
	return LayerTypeUBX
}

func (u *UBXLayer) NextLayerType() gopacket.LayerType {
	return u.ClassID.LayerType()
}

// DecodeFromBytes reads one frame, data must start with the sync bytes
func (u *UBXLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < UBXHeaderLen {
		df.SetTruncated()
		return &schema.ErrTruncatedInput{Offset: 0, Need: UBXHeaderLen, Have: len(data)}
	}
	if data[0] != UBXSync1 || data[1] != UBXSync2 {
		return &ErrMalformedFraming{Reason: fmt.Sprintf("bad ubx sync 0x%02x 0x%02x", data[0], data[1])}
	}
	u.ClassID = NewUBXClassID(data[2], data[3])
	u.Len = binary.LittleEndian.Uint16(data[4:6])
	end := UBXHeaderLen + int(u.Len)
	if len(data) < end+UBXChecksumLen {
		df.SetTruncated()
		return &schema.ErrTruncatedInput{Offset: 0, Need: end + UBXChecksumLen, Have: len(data)}
	}
	u.CkA = data[end]
	u.CkB = data[end+1]
	u.BaseLayer = layers.BaseLayer{
		Contents: data[0:UBXHeaderLen],
		Payload:  data[UBXHeaderLen:end],
	}
	return nil
}

// Verify checks ck_a and ck_b against class, id, len and payload
func (u *UBXLayer) Verify() error {
	var hdr [4]byte
	copy(hdr[:], u.Contents[2:UBXHeaderLen])
	a, b := UBXChecksum(hdr[:])
	for _, c := range u.Payload {
		a += c
		b += a
	}
	if a != u.CkA || b != u.CkB {
		return &ErrChecksumMismatch{
			What:     "ubx checksum",
			Expected: uint32(u.CkA)<<8 | uint32(u.CkB),
			Actual:   uint32(a)<<8 | uint32(b),
		}
	}
	return nil
}

func decodeUBX(data []byte, p gopacket.PacketBuilder) error {
	u := &UBXLayer{}
	if err := u.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(u)
	if err := u.Verify(); err != nil {
		return err
	}
	return u.ClassID.Decode(u.Payload, p)
}

// UBXMessageLayer is a decoded UBX payload of a known message
type UBXMessageLayer struct {
	layers.BaseLayer
	ClassID UBXClassID
	Values  *schema.Values
}

func (m *UBXMessageLayer) LayerType() gopacket.LayerType {
	return m.ClassID.LayerType()
}

// pickVariant prefers a static layout of exactly the payload length,
// then a dynamic one, then the largest static layout that fits.
func pickVariant(variants []*schema.Composite, n int) *schema.Composite {
	var dynamic, fits *schema.Composite
	for _, v := range variants {
		size := v.Size()
		switch {
		case size == n:
			return v
		case size < 0:
			if dynamic == nil {
				dynamic = v
			}
		case size < n:
			if fits == nil || size > fits.Size() {
				fits = v
			}
		}
	}
	if dynamic != nil {
		return dynamic
	}
	return fits
}

func (m *UBXMessageLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	entry := UBXClassIDMetadata[m.ClassID]
	v := pickVariant(entry.Variants, len(data))
	if v == nil {
		df.SetTruncated()
		need := 0
		for _, s := range entry.Variants {
			if need == 0 || s.Size() < need {
				need = s.Size()
			}
		}
		return &schema.ErrTruncatedInput{Offset: 0, Need: need, Have: len(data)}
	}
	values, n, err := v.Decode(data, 0)
	if err != nil {
		df.SetTruncated()
		return err
	}
	m.Values = values
	m.BaseLayer = layers.BaseLayer{
		Contents: data[0:n],
		Payload:  data[n:],
	}
	return nil
}

// MonVerExtensions splits the MON-VER trailer into its extension strings
func (m *UBXMessageLayer) MonVerExtensions() []string {
	if m.ClassID != UBXMonVer {
		return nil
	}
	var ext []string
	for rest := m.Payload; len(rest) >= MonVerExtensionLen; rest = rest[MonVerExtensionLen:] {
		ext = append(ext, schema.TrimText(rest[:MonVerExtensionLen]))
	}
	return ext
}

type ubxDecoder UBXClassID

func (d ubxDecoder) Decode(data []byte, p gopacket.PacketBuilder) error {
	m := &UBXMessageLayer{ClassID: UBXClassID(d)}
	if err := m.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(m)
	return nil
}

// UBXUnknownLayer stands for a UBX payload whose class/id is not in the table
type UBXUnknownLayer struct {
	layers.BaseLayer
	ClassID UBXClassID
}

func (l *UBXUnknownLayer) LayerType() gopacket.LayerType {
	return LayerTypeUBXUnknown
}
