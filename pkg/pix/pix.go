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

// Package pix inspects panic dump files: a directory followed by
// fixed size panic blocks at a fixed stride.
package pix

import (
	"encoding/binary"
	"fmt"

	"github.com/mammark/go-tagcore/pkg/layers"
	"github.com/mammark/go-tagcore/pkg/log"
	"github.com/mammark/go-tagcore/pkg/schema"
	"github.com/mammark/go-tagcore/pkg/stream"
)

const (
	DefaultBaseOffset  = SectorSize
	DefaultBlockStride = SectorSize * 150
)

type Options struct {
	BaseOffset  int
	BlockStride int
}

func DefaultOptions() Options {
	return Options{
		BaseOffset:  DefaultBaseOffset,
		BlockStride: DefaultBlockStride,
	}
}

func (o Options) withDefaults() Options {
	if o.BlockStride <= 0 {
		o.BlockStride = DefaultBlockStride
	}
	if o.BaseOffset < 0 {
		o.BaseOffset = DefaultBaseOffset
	}
	return o
}

// SlotOffset is the file offset of panic block i
func (o Options) SlotOffset(i int) int {
	o = o.withDefaults()
	return o.BaseOffset + i*o.BlockStride
}

type Directory struct {
	ID            string `json:"id"`
	Sig           uint32 `json:"sig"`
	DirSector     uint32 `json:"dir_sector"`
	HighSector    uint32 `json:"high_sector"`
	BlockIndex    uint32 `json:"block_index"`
	BlockIndexMax uint32 `json:"block_index_max"`
	BlockSize     uint32 `json:"block_size"`
	Checksum      uint32 `json:"checksum"`
}

// ParseDirectory decodes the directory at the start of raw.
// The signature is not checked here, see Directory.Verify.
func ParseDirectory(raw []byte) (*Directory, error) {
	v, _, err := directorySchema.Decode(raw, 0)
	if err != nil {
		return nil, err
	}
	return &Directory{
		ID:            v.Display("panic_dir_id"),
		Sig:           uint32(v.Uint("panic_dir_sig")),
		DirSector:     uint32(v.Uint("panic_dir_sector")),
		HighSector:    uint32(v.Uint("panic_high_sector")),
		BlockIndex:    uint32(v.Uint("panic_block_index")),
		BlockIndexMax: uint32(v.Uint("panic_block_index_max")),
		BlockSize:     uint32(v.Uint("panic_block_size")),
		Checksum:      uint32(v.Uint("panic_dir_checksum")),
	}, nil
}

func (d *Directory) Verify() error {
	if d.Sig != DirSig {
		return &layers.ErrSignatureMismatch{What: "panic directory", Expected: DirSig, Actual: d.Sig}
	}
	return nil
}

// DirectoryChecksum is the 32 bit sum of the directory words, zero for a
// consistent directory
func DirectoryChecksum(raw []byte) uint32 {
	var sum uint32
	for i := 0; i+4 <= DirectoryLen && i+4 <= len(raw); i += 4 {
		sum += binary.LittleEndian.Uint32(raw[i : i+4])
	}
	return sum
}

type Block struct {
	Index  int                    `json:"index"`
	Offset int                    `json:"offset"`
	Fields map[string]interface{} `json:"fields"`
	Values *schema.Values         `json:"-"`
}

// Summary is the one line description of a panic block
func (b *Block) Summary() string {
	if b.Values == nil {
		// block received over the API, only Fields survive
		return fmt.Sprintf("Panic Block %d at offset %d", b.Index, b.Offset)
	}
	pi := b.Values.Sub("panic_info")
	return fmt.Sprintf("Panic Block %d: boot_count %d fail_count %d subsys %d where %d args %s %s %s %s",
		b.Index, pi.Uint("boot_count"), pi.Uint("fail_count"), pi.Uint("subsys"), pi.Uint("where"),
		pi.Display("arg_0"), pi.Display("arg_1"), pi.Display("arg_2"), pi.Display("arg_3"))
}

// Anomaly is a problem found while scanning, Block is -1 for the directory
type Anomaly struct {
	Kind   stream.AnomalyKind `json:"kind"`
	Block  int                `json:"block"`
	Offset int                `json:"offset"`
	Reason string             `json:"reason"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s at offset %d (block %d): %s", a.Kind, a.Offset, a.Block, a.Reason)
}

type Report struct {
	Directory *Directory `json:"directory"`
	Blocks    []*Block   `json:"blocks"`
	Anomalies []Anomaly  `json:"anomalies,omitempty"`
	// Slots is the number of block slots looked at
	Slots int `json:"slots"`
}

func (r *Report) anomaly(kind stream.AnomalyKind, block, offset int, err error) {
	a := Anomaly{Kind: kind, Block: block, Offset: offset, Reason: err.Error()}
	log.Warning("%s", a)
	r.Anomalies = append(r.Anomalies, a)
}

// DecodeBlock decodes the panic block at offset. The values are returned
// along with *layers.ErrSignatureMismatch when pi_sig is wrong.
func DecodeBlock(raw []byte, offset int) (*schema.Values, error) {
	if offset < 0 || offset > len(raw) {
		return nil, &schema.ErrTruncatedInput{Offset: offset, Need: BlockLen, Have: 0}
	}
	v, _, err := blockSchema.Decode(raw, offset)
	if err != nil {
		return nil, err
	}
	if sig := uint32(v.Uint("panic_info.pi_sig")); sig != PanicInfoSig {
		return v, &layers.ErrSignatureMismatch{What: "panic_info", Expected: PanicInfoSig, Actual: sig}
	}
	return v, nil
}

// Scan checks the directory and then every block slot until the file ends.
// A bad directory signature aborts the scan with no blocks, anything else
// is recorded and the scan goes on with the next slot.
func Scan(raw []byte, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	report := &Report{Blocks: []*Block{}}

	dir, err := ParseDirectory(raw)
	if err != nil {
		report.anomaly(stream.KindOf(err), -1, 0, err)
		return report, err
	}
	report.Directory = dir
	if err := dir.Verify(); err != nil {
		report.anomaly(stream.KindSignatureMismatch, -1, 0, err)
		return report, err
	}
	if sum := DirectoryChecksum(raw); sum != 0 {
		report.anomaly(stream.KindChecksumMismatch, -1, 0,
			&layers.ErrChecksumMismatch{What: "panic directory", Expected: 0, Actual: sum})
	}

	for i := 0; ; i++ {
		off := opts.SlotOffset(i)
		if off >= len(raw) || len(raw)-off < BlockLen {
			break
		}
		report.Slots++
		v, err := DecodeBlock(raw, off)
		if err != nil {
			report.anomaly(stream.KindOf(err), i, off, err)
			continue
		}
		report.Blocks = append(report.Blocks, &Block{
			Index:  i,
			Offset: off,
			Fields: v.Map(),
			Values: v,
		})
	}
	log.Debug("Scanned %d panic block slots, %d dumps found", report.Slots, len(report.Blocks))
	return report, nil
}
