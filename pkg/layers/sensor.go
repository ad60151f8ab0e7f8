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

const (
	// SensorSampleLayerNumBase + sensor id identifies the sample layer of each sensor
	SensorSampleLayerNumBase = 3200
	UnknownSensorLayerNum    = 3199
)

// SensorType is the firmware sensor id (SNS_ID)
type SensorType uint8

const (
	SensorNone  SensorType = 0
	SensorAccel SensorType = 1
	SensorMag   SensorType = 2
	SensorGyro  SensorType = 3
	SensorTmp0  SensorType = 4
	SensorTmp1  SensorType = 5
	SensorBatt  SensorType = 6
)

// SensorRecordTagBase | id is the record type tag of a sensor record.
// Tags 1..6 are taken by REBOOT..SYNC_FLUSH.
const SensorRecordTagBase = 0x40

// SensorOf returns the sensor id carried by a record type tag,
// SensorNone for tags outside 0x40..0x7f such as SENSOR_DATA
func SensorOf(t RecordType) SensorType {
	if t&0xc0 != SensorRecordTagBase {
		return SensorNone
	}
	return SensorType(t &^ SensorRecordTagBase)
}

var xyzSampleSchema = schema.NewComposite("xyz",
	schema.M("x", schema.I16()),
	schema.M("y", schema.I16()),
	schema.M("z", schema.I16()),
)

var tempSampleSchema = schema.NewComposite("temp",
	schema.M("temp", schema.I16()),
)

var battSampleSchema = schema.NewComposite("batt",
	schema.M("volts", schema.U16()),
)

type SensorTypeEntry struct {
	DecodeWith gopacket.Decoder
	Name       string
	LayerType  gopacket.LayerType
	Schema     *schema.Composite
	Known      bool
}

type unknownSensorDecoder uint8

func (d *unknownSensorDecoder) Decode(data []byte, p gopacket.PacketBuilder) error {
	p.AddLayer(&UnknownSensorLayer{
		BaseLayer: layers.BaseLayer{Payload: data},
		Sensor:    SensorType(*d),
	})
	return nil
}

var unknownSensorDecoders [256]unknownSensorDecoder
var SensorTypeMetadata [256]SensorTypeEntry

var LayerTypeUnknownSensor = gopacket.RegisterLayerType(UnknownSensorLayerNum,
	gopacket.LayerTypeMetadata{Name: "UnknownSensor", Decoder: gopacket.DecodeUnknown})

func initUnknownSensorTypes() {
	for i := 0; i < 256; i++ {
		unknownSensorDecoders[i] = unknownSensorDecoder(i)
		SensorTypeMetadata[i] = SensorTypeEntry{
			DecodeWith: &unknownSensorDecoders[i],
			Name:       "UnknownSensor",
			LayerType:  LayerTypeUnknownSensor,
		}
	}
}

func initActualSensorTypes() {
	setSensorType(SensorAccel, "Accel", xyzSampleSchema)
	setSensorType(SensorMag, "Mag", xyzSampleSchema)
	setSensorType(SensorGyro, "Gyro", xyzSampleSchema)
	setSensorType(SensorTmp0, "Tmp0", tempSampleSchema)
	setSensorType(SensorTmp1, "Tmp1", tempSampleSchema)
	setSensorType(SensorBatt, "Batt", battSampleSchema)
}

type sensorDecoder SensorType

func (d sensorDecoder) Decode(data []byte, p gopacket.PacketBuilder) error {
	return decodeSensorSample(SensorType(d), data, p)
}

func setSensorType(s SensorType, name string, sch *schema.Composite) {
	lt := gopacket.RegisterLayerType(SensorSampleLayerNumBase+int(s),
		gopacket.LayerTypeMetadata{Name: name + "Sample", Decoder: sensorDecoder(s)})
	SensorTypeMetadata[s] = SensorTypeEntry{
		DecodeWith: sensorDecoder(s),
		Name:       name,
		LayerType:  lt,
		Schema:     sch,
		Known:      true,
	}
}

// LookupSensorType returns the table entry of s, ok is false for unknown sensors
func LookupSensorType(s SensorType) (SensorTypeEntry, bool) {
	e := SensorTypeMetadata[s]
	return e, e.Known
}

func (s SensorType) LayerType() gopacket.LayerType {
	return SensorTypeMetadata[s].LayerType
}

func (s SensorType) Decode(data []byte, p gopacket.PacketBuilder) error {
	return SensorTypeMetadata[s].DecodeWith.Decode(data, p)
}

func (s SensorType) String() string {
	if !SensorTypeMetadata[s].Known {
		return fmt.Sprintf("%s(%d)", SensorTypeMetadata[s].Name, uint8(s))
	}
	return SensorTypeMetadata[s].Name
}

// SensorLayer is the sensor data record body, sched_delta only.
// The sample itself is the next layer.
type SensorLayer struct {
	RecordBody
	Sensor SensorType
}

func (s *SensorLayer) SchedDelta() uint32 {
	return uint32(s.Values.Uint("sched_delta"))
}

func (s *SensorLayer) NextLayerType() gopacket.LayerType {
	return s.Sensor.LayerType()
}

func decodeSensor(t RecordType, data []byte, p gopacket.PacketBuilder) error {
	sl := &SensorLayer{RecordBody: RecordBody{Type: t}, Sensor: SensorOf(t)}
	if err := sl.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(sl)
	return sl.Sensor.Decode(sl.Payload, p)
}

// SensorSampleLayer holds one decoded sensor sample
type SensorSampleLayer struct {
	layers.BaseLayer
	Sensor SensorType
	Values *schema.Values
}

func (s *SensorSampleLayer) LayerType() gopacket.LayerType {
	return s.Sensor.LayerType()
}

func (s *SensorSampleLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	values, n, err := SensorTypeMetadata[s.Sensor].Schema.Decode(data, 0)
	if err != nil {
		df.SetTruncated()
		return err
	}
	s.Values = values
	s.BaseLayer = layers.BaseLayer{
		Contents: data[0:n],
		Payload:  data[n:],
	}
	return nil
}

func decodeSensorSample(s SensorType, data []byte, p gopacket.PacketBuilder) error {
	sample := &SensorSampleLayer{Sensor: s}
	if err := sample.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(sample)
	return nil
}

// UnknownSensorLayer stands for a sample of a sensor that is not in the table
type UnknownSensorLayer struct {
	layers.BaseLayer
	Sensor SensorType
}

func (l *UnknownSensorLayer) LayerType() gopacket.LayerType {
	return LayerTypeUnknownSensor
}
