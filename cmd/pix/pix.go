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
	"fmt"
	"io/ioutil"
	"os"

	"github.com/spf13/cobra"

	pkgcmd "github.com/mammark/go-tagcore/pkg/cmd"
	"github.com/mammark/go-tagcore/pkg/config"
	"github.com/mammark/go-tagcore/pkg/log"
	"github.com/mammark/go-tagcore/pkg/pix"
)

const (
	ExtractOptionName     = "extract"
	OutputOptionName      = "output"
	BaseOffsetOptionName  = "base-offset"
	BlockStrideOptionName = "block-stride"
)

const (
	pixExample = `
List the panic dumps of a panic file
# tagdump pix PANIC001

Write the crash dump of block 2 for the debugger
# tagdump pix PANIC001 --extract 2 --output panic2.dump
`
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var extract, baseOffset, blockStride int
	var output string
	cmd := &cobra.Command{
		Use:     "pix FILE",
		Short:   "Inspect a panic file and extract crash dumps",
		Example: pixExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pix.Options{
				BaseOffset:  cfg.Panic.BaseOffset,
				BlockStride: cfg.Panic.BlockStride,
			}
			if cmd.Flags().Changed(BaseOffsetOptionName) {
				opts.BaseOffset = baseOffset
			}
			if cmd.Flags().Changed(BlockStrideOptionName) {
				if blockStride <= 0 {
					return fmt.Errorf("--%s must be positive, got %d", BlockStrideOptionName, blockStride)
				}
				opts.BlockStride = blockStride
			}
			raw, err := ioutil.ReadFile(args[0])
			if err != nil {
				return err
			}

			if extract < 0 {
				report, err := pix.Scan(raw, opts)
				printer := &pkgcmd.Printer{Out: cmd.OutOrStdout()}
				printer.Report(report)
				return err
			}

			if output == "" {
				return fmt.Errorf("--%s is required with --%s", OutputOptionName, ExtractOptionName)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			n, err := pix.Extract(raw, extract, opts, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				log.Error("Extracting panic block %d: %s", extract, err)
				os.Remove(output)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Panic block %d: %d bytes written to %s\n", extract, n, output)
			return nil
		},
	}
	cmd.Flags().IntVar(&extract, ExtractOptionName, -1, "Index of the panic block to extract")
	cmd.Flags().StringVarP(&output, OutputOptionName, "o", "", "File the extracted crash dump is written to")
	cmd.Flags().IntVar(&baseOffset, BaseOffsetOptionName, config.DefaultPanicBaseOffset, "Offset of the first panic block, overrides panic.base_offset")
	cmd.Flags().IntVar(&blockStride, BlockStrideOptionName, config.DefaultPanicBlockStride, "Distance between panic blocks, overrides panic.block_stride")
	return cmd
}
