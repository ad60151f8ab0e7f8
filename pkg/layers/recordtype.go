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

	"github.com/mammark/go-tagcore/pkg/schema"
)

func init() {
	initUnknownRecordTypes()
	initActualRecordTypes()
	initUnknownSensorTypes()
	initActualSensorTypes()
	initUnknownUBXClassIDs()
	initActualUBXClassIDs()
}

const (
	// RecordBodyLayerNumBase + record type identifies the body layer of each record type
	RecordBodyLayerNumBase = 3100
	UnknownRecordLayerNum  = 3099
)

type RecordType uint8

const (
	RecordTypeNone          RecordType = 0
	RecordTypeReboot        RecordType = 1
	RecordTypeVersion       RecordType = 2
	RecordTypeSync          RecordType = 3
	RecordTypeEvent         RecordType = 4
	RecordTypeDebug         RecordType = 5
	RecordTypeSyncFlush     RecordType = 6
	RecordTypeSyncReboot    RecordType = 7
	RecordTypeGPSVersion    RecordType = 16
	RecordTypeGPSTime       RecordType = 17
	RecordTypeGPSGeo        RecordType = 18
	RecordTypeGPSXYZ        RecordType = 19
	RecordTypeSensorData    RecordType = 20
	RecordTypeSensorSet     RecordType = 21
	RecordTypeTest          RecordType = 22
	RecordTypeNote          RecordType = 23
	RecordTypeConfig        RecordType = 24
	RecordTypeGPSProtoStats RecordType = 25
	RecordTypeGPSTrack      RecordType = 26
	RecordTypeGPSClock      RecordType = 27
	RecordTypeGPSRaw        RecordType = 32
	RecordTypeTagnet        RecordType = 33
	// sensor records carry the sensor id in the type tag
	RecordTypeAccel RecordType = SensorRecordTagBase | RecordType(SensorAccel)
	RecordTypeMag   RecordType = SensorRecordTagBase | RecordType(SensorMag)
	RecordTypeGyro  RecordType = SensorRecordTagBase | RecordType(SensorGyro)
	RecordTypeTmp0  RecordType = SensorRecordTagBase | RecordType(SensorTmp0)
	RecordTypeTmp1  RecordType = SensorRecordTagBase | RecordType(SensorTmp1)
	RecordTypeBatt  RecordType = SensorRecordTagBase | RecordType(SensorBatt)
)

// RecordTypeEntry is one slot of the record dispatch table
type RecordTypeEntry struct {
	DecodeWith gopacket.Decoder
	Name       string
	LayerType  gopacket.LayerType
	Schema     *schema.Composite
	Known      bool
	Deprecated bool
}

type unknownRecordDecoder uint8

func (d *unknownRecordDecoder) Decode(data []byte, p gopacket.PacketBuilder) error {
	p.AddLayer(&UnknownRecordLayer{
		BaseLayer: layers.BaseLayer{Payload: data},
		Type:      RecordType(*d),
	})
	return nil
}

var unknownRecordDecoders [256]unknownRecordDecoder
var RecordTypeMetadata [256]RecordTypeEntry

var LayerTypeUnknownRecord = gopacket.RegisterLayerType(UnknownRecordLayerNum,
	gopacket.LayerTypeMetadata{Name: "UnknownRecord", Decoder: gopacket.DecodeUnknown})

func initUnknownRecordTypes() {
	for i := 0; i < 256; i++ {
		unknownRecordDecoders[i] = unknownRecordDecoder(i)
		RecordTypeMetadata[i] = RecordTypeEntry{
			DecodeWith: &unknownRecordDecoders[i],
			Name:       "UnknownRecordType",
			LayerType:  LayerTypeUnknownRecord,
		}
	}
}

func initActualRecordTypes() {
	setRecordType(RecordTypeReboot, "Reboot", rebootSchema, decodeRecordBody, false)
	setRecordType(RecordTypeVersion, "Version", versionSchema, decodeVersion, false)
	setRecordType(RecordTypeSync, "Sync", syncSchema, decodeSync, false)
	setRecordType(RecordTypeSyncFlush, "SyncFlush", syncSchema, decodeSync, false)
	setRecordType(RecordTypeSyncReboot, "SyncReboot", syncSchema, decodeSync, false)
	setRecordType(RecordTypeEvent, "Event", eventSchema, decodeRecordBody, false)
	setRecordType(RecordTypeDebug, "Debug", emptySchema, decodeTrailer, false)
	setRecordType(RecordTypeTest, "Test", emptySchema, decodeTrailer, false)
	setRecordType(RecordTypeNote, "Note", emptySchema, decodeNote, false)
	setRecordType(RecordTypeConfig, "Config", emptySchema, decodeTrailer, false)
	setRecordType(RecordTypeTagnet, "Tagnet", emptySchema, decodeTrailer, false)
	setRecordType(RecordTypeSensorSet, "SensorSet", emptySchema, decodeTrailer, false)
	setRecordType(RecordTypeGPSProtoStats, "GPSProtoStats", gpsProtoStatsSchema, decodeRecordBody, false)
	setRecordType(RecordTypeGPSRaw, "GPSRaw", gpsHeaderSchema, decodeGPSRaw, false)
	setRecordType(RecordTypeGPSVersion, "GPSVersion", gpsVersionSchema, decodeRecordBody, true)
	setRecordType(RecordTypeGPSTime, "GPSTime", gpsTimeSchema, decodeRecordBody, true)
	setRecordType(RecordTypeGPSGeo, "GPSGeo", gpsGeoSchema, decodeRecordBody, true)
	setRecordType(RecordTypeGPSXYZ, "GPSXYZ", gpsXYZSchema, decodeRecordBody, true)
	setRecordType(RecordTypeGPSClock, "GPSClock", gpsClockSchema, decodeRecordBody, true)
	setRecordType(RecordTypeGPSTrack, "GPSTrack", gpsTrackSchema, decodeGPSTrack, true)
	setRecordType(RecordTypeSensorData, "SensorData", sensorDataSchema, decodeSensor, false)
	setRecordType(RecordTypeAccel, "Accel", sensorDataSchema, decodeSensor, false)
	setRecordType(RecordTypeMag, "Mag", sensorDataSchema, decodeSensor, false)
	setRecordType(RecordTypeGyro, "Gyro", sensorDataSchema, decodeSensor, false)
	setRecordType(RecordTypeTmp0, "Tmp0", sensorDataSchema, decodeSensor, false)
	setRecordType(RecordTypeTmp1, "Tmp1", sensorDataSchema, decodeSensor, false)
	setRecordType(RecordTypeBatt, "Batt", sensorDataSchema, decodeSensor, false)
}

// bodyDecodeFunc decodes the body of a record of type t
type bodyDecodeFunc func(t RecordType, data []byte, p gopacket.PacketBuilder) error

type recordDecoder struct {
	t  RecordType
	fn bodyDecodeFunc
}

func (d recordDecoder) Decode(data []byte, p gopacket.PacketBuilder) error {
	return d.fn(d.t, data, p)
}

func setRecordType(t RecordType, name string, s *schema.Composite, fn bodyDecodeFunc, deprecated bool) {
	dec := recordDecoder{t: t, fn: fn}
	lt := gopacket.RegisterLayerType(RecordBodyLayerNumBase+int(t),
		gopacket.LayerTypeMetadata{Name: name, Decoder: dec})
	RecordTypeMetadata[t] = RecordTypeEntry{
		DecodeWith: dec,
		Name:       name,
		LayerType:  lt,
		Schema:     s,
		Known:      true,
		Deprecated: deprecated,
	}
}

// LookupRecordType returns the table entry of t, ok is false for unknown types
func LookupRecordType(t RecordType) (RecordTypeEntry, bool) {
	e := RecordTypeMetadata[t]
	return e, e.Known
}

// LayerType returns RecordTypeMetadata.LayerType
func (t RecordType) LayerType() gopacket.LayerType {
	return RecordTypeMetadata[t].LayerType
}

// Decode calls RecordTypeMetadata.DecodeWith's decoder
func (t RecordType) Decode(data []byte, p gopacket.PacketBuilder) error {
	return RecordTypeMetadata[t].DecodeWith.Decode(data, p)
}

// String returns RecordTypeMetadata.Name
func (t RecordType) String() string {
	if !RecordTypeMetadata[t].Known {
		return fmt.Sprintf("%s(%d)", RecordTypeMetadata[t].Name, uint8(t))
	}
	return RecordTypeMetadata[t].Name
}

// UnknownRecordLayer stands for the body of a record whose type is not in the table.
// Nothing is consumed, the whole body stays in the payload.
type UnknownRecordLayer struct {
	layers.BaseLayer
	Type RecordType
}

func (l *UnknownRecordLayer) LayerType() gopacket.LayerType {
	return LayerTypeUnknownRecord
}
