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

package pix

import (
	"github.com/mammark/go-tagcore/pkg/schema"
)

const (
	// DirSig marks a valid panic directory
	DirSig = 0xddddb00b
	// PanicInfoSig marks a panic block that holds a dump
	PanicInfoSig = 0x44665041
	// SectorSize is the size of a panic file sector
	SectorSize = 512
	// DirectoryLen is the size of the directory at the start of the file
	DirectoryLen = 32
	// BlockLen is the part of a panic block that is decoded
	BlockLen = 512
)

// Offsets inside a panic block
const (
	imageInfoOffset = 44
	addInfoOffset   = imageInfoOffset + 144
	crashInfoOffset = addInfoOffset + 20 + 52
	ramHeaderOffset = crashInfoOffset + 244
	// register file written by Extract, cc_sig through axPSR
	registersStart = 32
	registersEnd   = 112
)

var directorySchema = schema.NewComposite("panic_dir",
	schema.M("panic_dir_id", schema.Text(4)),
	schema.M("panic_dir_sig", schema.U32().As("0x%08x")),
	schema.M("panic_dir_sector", schema.U32()),
	schema.M("panic_high_sector", schema.U32()),
	schema.M("panic_block_index", schema.U32()),
	schema.M("panic_block_index_max", schema.U32()),
	schema.M("panic_block_size", schema.U32()),
	schema.M("panic_dir_checksum", schema.U32().As("0x%08x")),
)

var panicInfoSchema = schema.NewComposite("panic_info", schema.Concat(
	[]schema.Member{
		schema.M("pi_sig", schema.U32().As("0x%08x")),
		schema.M("boot_count", schema.U32()),
		schema.M("rt", schema.Hex(12)),
		schema.M("fail_count", schema.U32()),
		schema.M("subsys", schema.U8()),
		schema.M("where", schema.U8()),
		schema.M("pad", schema.U16()),
	},
	schema.Repeat("arg_", 4, schema.U32().As("0x%08x")),
)...)

var imageInfoSchema = schema.NewComposite("image_info",
	schema.M("ii_sig", schema.U32().As("0x%08x")),
	schema.M("image_start", schema.U32().As("0x%08x")),
	schema.M("image_length", schema.U32()),
	schema.M("vector_chk", schema.U32().As("0x%08x")),
	schema.M("image_chk", schema.U32().As("0x%08x")),
	schema.M("ver_id", schema.NewComposite("ver_id",
		schema.M("build", schema.U16()),
		schema.M("minor", schema.U8()),
		schema.M("major", schema.U8()),
	)),
	schema.M("descriptor0", schema.Text(44)),
	schema.M("descriptor1", schema.Text(44)),
	schema.M("stamp_date", schema.Text(30)),
	schema.M("hw_ver", schema.NewComposite("hw_ver",
		schema.M("hw_rev", schema.U8()),
		schema.M("hw_model", schema.U8()),
	)),
)

var addInfoSchema = schema.NewComposite("add_info",
	schema.M("ai_sig", schema.U32().As("0x%08x")),
	schema.M("ram_sector", schema.U32()),
	schema.M("ram_size", schema.U32()),
	schema.M("io_sector", schema.U32()),
	schema.M("fcrumb_sector", schema.U32()),
)

var crashInfoSchema = schema.NewComposite("crash_info", schema.Concat(
	[]schema.Member{
		schema.M("ci_sig", schema.U32().As("0x%08x")),
		schema.M("axLR", schema.U32().As("0x%08x")),
		schema.M("MSP", schema.U32().As("0x%08x")),
		schema.M("PSP", schema.U32().As("0x%08x")),
		schema.M("primask", schema.U32().As("0x%08x")),
		schema.M("basepri", schema.U32().As("0x%08x")),
		schema.M("faultmask", schema.U32().As("0x%08x")),
		schema.M("control", schema.U32().As("0x%08x")),
		// stored big endian, the only such field in the dump
		schema.M("cc_sig", schema.BE32()),
		schema.M("flags", schema.U32().As("0x%08x")),
	},
	schema.Repeat("bxReg_", 13, schema.U32().As("0x%08x")),
	[]schema.Member{
		schema.M("bxSP", schema.U32().As("0x%08x")),
		schema.M("bxLR", schema.U32().As("0x%08x")),
		schema.M("bxPC", schema.U32().As("0x%08x")),
		schema.M("bxPSR", schema.U32().As("0x%08x")),
		schema.M("axPSR", schema.U32().As("0x%08x")),
	},
	schema.Repeat("fpReg_", 32, schema.U32().As("0x%08x")),
	[]schema.Member{
		schema.M("fpscr", schema.U32().As("0x%08x")),
	},
)...)

var ramHeaderSchema = schema.NewComposite("ram_header",
	schema.M("start", schema.U32().As("0x%08x")),
	schema.M("end", schema.U32().As("0x%08x")),
)

var blockSchema = schema.NewComposite("panic_block",
	schema.M("panic_info", panicInfoSchema),
	schema.M("image_info", imageInfoSchema),
	schema.M("add_info", addInfoSchema),
	schema.M("padding", schema.Hex(52)),
	schema.M("crash_info", crashInfoSchema),
	schema.M("ram_header", ramHeaderSchema),
)
