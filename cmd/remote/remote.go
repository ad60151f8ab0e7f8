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
	"github.com/spf13/cobra"

	"github.com/mammark/go-tagcore/pkg/config"
)

const (
	AddressOptionName = "address"
	PortOptionName    = "port"
)

// NewCommand groups the commands that talk to a running API server
func NewCommand(cfg *config.Config) *cobra.Command {
	var address string
	var port int
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Use a running tagdump API server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// cobra runs only the closest persistent pre run
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if address != "" {
				cfg.Api.Address = address
			}
			if port != 0 {
				cfg.Api.Port = port
			}
			return nil
		},
	}
	cmd.AddCommand(NewDecodeCommand(cfg))
	cmd.AddCommand(NewPanicCommand(cfg))
	cmd.AddCommand(NewSourcesCommand(cfg))
	cmd.PersistentFlags().StringVar(&address, AddressOptionName, "", "API server address. Default from config")
	cmd.PersistentFlags().IntVar(&port, PortOptionName, 0, "API server port. Default from config")
	return cmd
}
