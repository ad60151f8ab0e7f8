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

package decode

import (
	"errors"
	"fmt"
	"io/ioutil"

	"github.com/spf13/cobra"

	pkgcmd "github.com/mammark/go-tagcore/pkg/cmd"
	"github.com/mammark/go-tagcore/pkg/config"
	"github.com/mammark/go-tagcore/pkg/log"
	"github.com/mammark/go-tagcore/pkg/store"
	"github.com/mammark/go-tagcore/pkg/stream"
)

const (
	OffsetOptionName        = "offset"
	OutputOptionName        = "output"
	StoreOptionName         = "store"
	SkipChecksumsOptionName = "skip-checksums"
	StatsOptionName         = "stats"
	QuietOptionName         = "quiet"
)

const (
	decodeExample = `
Decode a whole data file
# tagdump decode tag01.dblk

Decode from a known record boundary, as json lines
# tagdump decode tag01.dblk --offset 0x2000 --output json

Decode and keep the summaries for the API server
# tagdump decode tag01.dblk --store --stats
`
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var offset uint
	var output string
	var storeRecords, skipChecksums, showStats, quiet bool
	cmd := &cobra.Command{
		Use:     "decode FILE",
		Short:   "Decode the records of a dblk stream",
		Example: decodeExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = cfg.Decode.Output
			}
			if !cmd.Flags().Changed(SkipChecksumsOptionName) {
				skipChecksums = cfg.Decode.SkipChecksums
			}
			printer, err := pkgcmd.NewPrinter(cmd.OutOrStdout(), output)
			if err != nil {
				return err
			}
			data, err := ioutil.ReadFile(args[0])
			if err != nil {
				return err
			}
			log.Info("Decoding %s: %d bytes from offset %d", args[0], len(data), offset)

			var state *store.State
			source := store.SourceName(args[0])
			if storeRecords {
				state, err = store.NewState(cmd.Context(), cfg.Store.Path)
				if err != nil {
					return err
				}
				defer state.Close()
				if err := state.CreateBucket(source); err != nil {
					return err
				}
			}

			d := stream.NewDecoder(data, int(offset), stream.SkipChecksums(skipChecksums))
			var summaries []*stream.Summary
			var anomalies []stream.Anomaly
			err = d.Walk(func(r *stream.Record) error {
				anomalies = append(anomalies, r.Anomalies...)
				s := r.Summary()
				if state != nil {
					summaries = append(summaries, s)
				}
				if quiet {
					return nil
				}
				return printer.Summary(s)
			})

			var stopped *stream.ErrStopped
			var stoppedAnomaly *stream.Anomaly
			if errors.As(err, &stopped) {
				stoppedAnomaly = &stopped.Anomaly
			} else if err != nil {
				return err
			}

			if state != nil {
				if err := state.PutSummaries(source, summaries); err != nil {
					return err
				}
				if err := state.PutStats(source, d.Stats()); err != nil {
					return err
				}
				log.Info("Stored %d summaries as source %s", len(summaries), source)
			}
			if showStats {
				if err := printer.Object(d.Stats()); err != nil {
					return err
				}
			}
			printer.Anomalies(anomalies)
			if stoppedAnomaly != nil {
				printer.Stopped(stoppedAnomaly)
			}
			printer.Totals(d.Stats(), stoppedAnomaly)
			return nil
		},
	}
	cmd.Flags().UintVar(&offset, OffsetOptionName, 0, "Offset of the first record in the file")
	cmd.Flags().StringVar(&output, OutputOptionName, "", fmt.Sprintf("Output format, yaml or json. Default %s", config.DefaultOutput))
	cmd.Flags().BoolVar(&storeRecords, StoreOptionName, false, "Store the record summaries in the record store")
	cmd.Flags().BoolVar(&skipChecksums, SkipChecksumsOptionName, config.DefaultSkipChecksums, "Do not verify header and record checksums, overrides decode.skip_checksums")
	cmd.Flags().BoolVar(&showStats, StatsOptionName, false, "Print the walk statistics")
	cmd.Flags().BoolVarP(&quiet, QuietOptionName, "q", false, "Only print the totals")
	return cmd
}
