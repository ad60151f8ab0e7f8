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

package remote

import (
	"fmt"
	"io/ioutil"

	"github.com/spf13/cobra"

	"github.com/mammark/go-tagcore/pkg/client"
	pkgcmd "github.com/mammark/go-tagcore/pkg/cmd"
	"github.com/mammark/go-tagcore/pkg/config"
	"github.com/mammark/go-tagcore/pkg/store"
)

const (
	OffsetOptionName  = "offset"
	SourceOptionName  = "source"
	OutputOptionName  = "output"
	RecordsOptionName = "records"
	StoreOptionName   = "store"
)

func NewDecodeCommand(cfg *config.Config) *cobra.Command {
	var offset uint
	var source, output string
	var keep bool
	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Decode a dblk stream on the API server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = cfg.Decode.Output
			}
			printer, err := pkgcmd.NewPrinter(cmd.OutOrStdout(), output)
			if err != nil {
				return err
			}
			data, err := ioutil.ReadFile(args[0])
			if err != nil {
				return err
			}
			if keep && source == "" {
				source = store.SourceName(args[0])
			}
			result, err := client.NewApiClient(cfg).Decode(data, source, int(offset))
			if err != nil {
				return err
			}
			for _, s := range result.Summaries {
				if err := printer.Summary(s); err != nil {
					return err
				}
			}
			for _, s := range result.Summaries {
				printer.Anomalies(s.Anomalies)
			}
			if result.Stopped != nil {
				printer.Stopped(result.Stopped)
			}
			printer.Totals(result.Stats, result.Stopped)
			return nil
		},
	}
	cmd.Flags().UintVar(&offset, OffsetOptionName, 0, "Offset of the first record in the file")
	cmd.Flags().StringVar(&source, SourceOptionName, "", "Store the summaries on the server under this name")
	cmd.Flags().BoolVar(&keep, StoreOptionName, false, "Store the summaries on the server under the file name")
	cmd.Flags().StringVar(&output, OutputOptionName, "", "Output format, yaml or json")
	return cmd
}

func NewPanicCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panic FILE",
		Short: "Scan a panic file on the API server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := ioutil.ReadFile(args[0])
			if err != nil {
				return err
			}
			report, err := client.NewApiClient(cfg).Panic(data)
			if err != nil {
				return err
			}
			(&pkgcmd.Printer{Out: cmd.OutOrStdout()}).Report(report)
			return nil
		},
	}
	return cmd
}

func NewSourcesCommand(cfg *config.Config) *cobra.Command {
	var records bool
	cmd := &cobra.Command{
		Use:   "sources [NAME]",
		Short: "List the sources stored on the API server, or the stats of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := client.NewApiClient(cfg)
			printer, err := pkgcmd.NewPrinter(cmd.OutOrStdout(), cfg.Decode.Output)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				sources, err := apiClient.Sources()
				if err != nil {
					return err
				}
				for _, source := range sources {
					fmt.Fprintln(cmd.OutOrStdout(), source)
				}
				return nil
			}
			if records {
				summaries, err := apiClient.Records(args[0])
				if err != nil {
					return err
				}
				for _, s := range summaries {
					if err := printer.Summary(s); err != nil {
						return err
					}
				}
				return nil
			}
			stats, err := apiClient.Stats(args[0])
			if err != nil {
				return err
			}
			return printer.Object(stats)
		},
	}
	cmd.Flags().BoolVar(&records, RecordsOptionName, false, "Print the stored record summaries instead of the stats")
	return cmd
}
