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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mammark/go-tagcore/pkg/log"
	"github.com/mammark/go-tagcore/pkg/schema"
)

// registerNames is the order of the register file after cc_sig
var registerNames = []string{
	"flags",
	"bxReg_0", "bxReg_1", "bxReg_2", "bxReg_3", "bxReg_4", "bxReg_5", "bxReg_6",
	"bxReg_7", "bxReg_8", "bxReg_9", "bxReg_10", "bxReg_11", "bxReg_12",
	"bxSP", "bxLR", "bxPC", "bxPSR", "axPSR",
}

// EncodeRegisters writes cc_sig big endian and the register file little
// endian, the same bytes the crash_info region holds from cc_sig to axPSR
func EncodeRegisters(crash *schema.Values) []byte {
	buf := make([]byte, registersEnd-registersStart)
	binary.BigEndian.PutUint32(buf[0:4], uint32(crash.Uint("cc_sig")))
	for i, name := range registerNames {
		off := 4 + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(crash.Uint(name)))
	}
	return buf
}

// RAMRegion locates the RAM image of a block relative to the start of the file
func RAMRegion(dir *Directory, block *schema.Values) (int, int) {
	add := block.Sub("add_info")
	start := (int(add.Uint("ram_sector")) - int(dir.DirSector)) * SectorSize
	return start, int(add.Uint("ram_size"))
}

// Extract writes the crash dump of panic block index to w: register file,
// ram header and the RAM image. It returns the number of bytes written.
func Extract(raw []byte, index int, opts Options, w io.Writer) (int, error) {
	dir, err := ParseDirectory(raw)
	if err != nil {
		return 0, err
	}
	if err := dir.Verify(); err != nil {
		return 0, err
	}
	off := opts.SlotOffset(index)
	if index < 0 || off+BlockLen > len(raw) {
		return 0, fmt.Errorf("Panic block %d is outside of the file", index)
	}
	block, err := DecodeBlock(raw, off)
	if err != nil {
		return 0, err
	}

	start, size := RAMRegion(dir, block)
	if start < 0 || start+size > len(raw) {
		return 0, &schema.ErrTruncatedInput{Offset: start, Need: size, Have: len(raw) - start}
	}

	ram := block.Sub("ram_header")
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(ram.Uint("start")))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(ram.Uint("end")))

	total := 0
	for _, chunk := range [][]byte{EncodeRegisters(block.Sub("crash_info")), hdr[:], raw[start : start+size]} {
		n, err := w.Write(chunk)
		total += n
		if err != nil {
			return total, err
		}
	}
	log.Info("Panic block %d extracted, %d bytes of RAM from offset %d", index, size, start)
	return total, nil
}
