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
	"github.com/mammark/go-tagcore/pkg/schema"
)

const (
	// ImageInfoSig marks a valid image_info block
	ImageInfoSig = 0x33275401
	// ImageInfoPlusSize is the room reserved for the plus TLV area
	ImageInfoPlusSize = 300
	// SyncMajik is carried by every sync record
	SyncMajik = 0xdedf00ef
)

// image_info plus TLV types
const (
	TLVDesc  = 1
	TLVRepo0 = 2
	TLVURL0  = 3
	TLVRepo1 = 4
	TLVURL1  = 5
	TLVStamp = 6
)

var emptySchema = schema.NewComposite("empty")

// overwatch control block
var owcbSchema = schema.NewComposite("owcb", schema.Concat(
	[]schema.Member{
		schema.M("ow_sig", schema.U32().As("0x%08x")),
		schema.M("rpt", schema.U32().As("0x%08x")),
		schema.M("boot_time", RTCSchema),
		schema.M("prev_boot", RTCSchema),
		schema.M("reset_status", schema.U32().As("0x%08x")),
		schema.M("reset_others", schema.U32().As("0x%08x")),
		schema.M("from_base", schema.U32().As("0x%08x")),
		schema.M("panic_count", schema.U32()),
		schema.M("panics_gold", schema.U32()),
		schema.M("fault_gold", schema.U32().As("0x%08x")),
		schema.M("fault_nib", schema.U32().As("0x%08x")),
		schema.M("subsys_disable", schema.U32().As("0x%08x")),
		schema.M("protection_status", schema.U32().As("0x%08x")),
		schema.M("ow_sig_b", schema.U32().As("0x%08x")),
		schema.M("ow_req", schema.U8()),
		schema.M("reboot_reason", schema.U8()),
		schema.M("ow_boot_mode", schema.U8()),
		schema.M("owt_action", schema.U8()),
		schema.M("reboot_count", schema.U32()),
		schema.M("strange", schema.U32()),
		schema.M("strange_loc", schema.U32().As("0x%04x")),
		schema.M("chk_fails", schema.U32()),
		schema.M("logging_flags", schema.U32()),
		schema.M("pi_panic_idx", schema.U16()),
		schema.M("pi_pcode", schema.U8()),
		schema.M("pi_where", schema.U8()),
	},
	schema.Repeat("pi_arg", 4, schema.U32()),
	[]schema.Member{
		schema.M("rtc_src", schema.U8()),
		schema.M("ow_debug", schema.U8().As("0x%02x")),
		schema.M("pad1", schema.U16()),
		schema.M("ow_sig_c", schema.U32().As("0x%08x")),
	},
)...)

var rebootSchema = schema.NewComposite("reboot",
	schema.M("core_rev", schema.U16().As("0x%04x")),
	schema.M("core_minor", schema.U16().As("0x%04x")),
	schema.M("base", schema.U32().As("0x%08x")),
	schema.M("node_id", schema.Hex(6)),
	schema.M("pad", schema.U16()),
	schema.M("owcb", owcbSchema),
)

var imageVersionSchema = schema.NewComposite("ver_id",
	schema.M("build", schema.U16()),
	schema.M("minor", schema.U8()),
	schema.M("major", schema.U8()),
)

var hwVersionSchema = schema.NewComposite("hw_ver",
	schema.M("rev", schema.U8()),
	schema.M("model", schema.U8()),
)

var imageBasicSchema = schema.NewComposite("basic",
	schema.M("ii_sig", schema.U32().As("0x%08x")),
	schema.M("im_start", schema.U32().As("0x%08x")),
	schema.M("im_len", schema.U32().As("0x%08x")),
	schema.M("ver_id", imageVersionSchema),
	schema.M("im_chk", schema.U32().As("0x%08x")),
	schema.M("hw_ver", hwVersionSchema),
	schema.M("plus_len", schema.U16()),
	schema.M("reserved", schema.Hex(8)),
)

var imageInfoSchema = schema.NewComposite("image_info",
	schema.M("basic", imageBasicSchema),
	schema.M("plus", schema.TLVChain{CapacityFrom: "basic.plus_len", Max: ImageInfoPlusSize}),
)

var versionSchema = schema.NewComposite("version",
	schema.M("base", schema.U32().As("0x%08x")),
	schema.M("image_info", imageInfoSchema),
)

var syncSchema = schema.NewComposite("sync",
	schema.M("prev_sync", schema.U32().As("0x%x")),
	schema.M("majik", schema.U32().As("0x%08x")),
)

var eventSchema = schema.NewComposite("event", schema.Concat(
	[]schema.Member{
		schema.M("event", schema.U16()),
		schema.M("pcode", schema.U8()),
		schema.M("w", schema.U8()),
	},
	schema.Repeat("arg", 4, schema.U32().As("0x%04x")),
)...)

var gpsProtoStatsSchema = schema.NewComposite("gps_proto_stats",
	schema.M("starts", schema.U32()),
	schema.M("complete", schema.U32()),
	schema.M("ignored", schema.U32()),
	schema.M("resets", schema.U16()),
	schema.M("too_small", schema.U16()),
	schema.M("too_big", schema.U16()),
	schema.M("chksum_fail", schema.U16()),
	schema.M("rx_timeouts", schema.U16()),
	schema.M("rx_errors", schema.U16()),
	schema.M("rx_framing", schema.U16()),
	schema.M("rx_overrun", schema.U16()),
	schema.M("rx_parity", schema.U16()),
	schema.M("proto_start_fail", schema.U16()),
	schema.M("proto_end_fail", schema.U16()),
)

var gpsHeaderSchema = schema.NewComposite("gps_hdr",
	schema.M("mark", schema.U32().As("0x%04x")),
	schema.M("chip", schema.U8().As("0x%02x")),
	schema.M("dir", schema.U8()),
	schema.M("pad", schema.U16()),
)

var gpsVersionSchema = schema.NewComposite("gps_version",
	schema.M("gps_hdr", gpsHeaderSchema),
)

var gpsTimeSchema = schema.NewComposite("gps_time",
	schema.M("gps_hdr", gpsHeaderSchema),
	schema.M("capdelta", schema.I32()),
	schema.M("itow", schema.U32()),
	schema.M("tacc", schema.U32()),
	schema.M("utc_ms", schema.U16()),
	schema.M("utc_year", schema.U16()),
	schema.M("utc_month", schema.U8()),
	schema.M("utc_day", schema.U8()),
	schema.M("utc_hour", schema.U8()),
	schema.M("utc_min", schema.U8()),
	schema.M("utc_sec", schema.U8()),
	schema.M("nsats", schema.U8()),
)

var gpsGeoSchema = schema.NewComposite("gps_geo",
	schema.M("gps_hdr", gpsHeaderSchema),
	schema.M("capdelta", schema.I32()),
	schema.M("itow", schema.U32()),
	schema.M("lat", schema.I32()),
	schema.M("lon", schema.I32()),
	schema.M("alt_ell", schema.I32()),
	schema.M("alt_msl", schema.I32()),
	schema.M("hacc", schema.U32()),
	schema.M("vacc", schema.U32()),
	schema.M("pdop", schema.U16()),
	schema.M("fixtype", schema.U8()),
	schema.M("flags", schema.U8().As("0x%02x")),
	schema.M("nsats", schema.U8()),
)

var gpsXYZSchema = schema.NewComposite("gps_xyz",
	schema.M("gps_hdr", gpsHeaderSchema),
	schema.M("capdelta", schema.I32()),
	schema.M("x", schema.I32()),
	schema.M("y", schema.I32()),
	schema.M("z", schema.I32()),
	schema.M("sat_mask", schema.U32().As("0x%08x")),
	schema.M("tow100", schema.U32()),
	schema.M("week_x", schema.U16()),
	schema.M("m1", schema.U8().As("0x%02x")),
	schema.M("hdop5", schema.U8()),
	schema.M("nsats", schema.U8()),
)

var gpsClockSchema = schema.NewComposite("gps_clk",
	schema.M("gps_hdr", gpsHeaderSchema),
	schema.M("capdelta", schema.I32()),
	schema.M("tow100", schema.U32()),
	schema.M("drift", schema.U32()),
	schema.M("bias", schema.U32()),
	schema.M("week_x", schema.U16()),
	schema.M("nsats", schema.U8()),
)

// GPSTrackCNoSamples is the number of cno samples per tracked channel
const GPSTrackCNoSamples = 10

var gpsTrackChannelSchema = schema.NewComposite("chan", schema.Concat(
	[]schema.Member{
		schema.M("az10", schema.U16()),
		schema.M("el10", schema.U16()),
		schema.M("state", schema.U16()),
		schema.M("svid", schema.U16()),
	},
	schema.Repeat("cno", GPSTrackCNoSamples, schema.U8()),
)...)

var gpsTrackSchema = schema.NewComposite("gps_trk",
	schema.M("gps_hdr", gpsHeaderSchema),
	schema.M("capdelta", schema.I32()),
	schema.M("tow100", schema.U32()),
	schema.M("week", schema.U16()),
	schema.M("chans", schema.U16()),
	schema.M("chan", schema.CountedArray{CountFrom: "chans", Elem: gpsTrackChannelSchema}),
)

var sensorDataSchema = schema.NewComposite("sensor_data",
	schema.M("sched_delta", schema.U32()),
)
