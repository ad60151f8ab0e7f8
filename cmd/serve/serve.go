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

package serve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mammark/go-tagcore/pkg/config"
	"github.com/mammark/go-tagcore/pkg/srv"
	"github.com/mammark/go-tagcore/pkg/store"
)

const (
	AddressOptionName = "address"
	PortOptionName    = "port"
	NoStoreOptionName = "no-store"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var address string
	var port int
	var noStore bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				cfg.Api.Address = address
			}
			if port != 0 {
				cfg.Api.Port = port
			}
			var state *store.State
			if !noStore {
				var err error
				state, err = store.NewState(cmd.Context(), cfg.Store.Path)
				if err != nil {
					return err
				}
				defer state.Close()
			}
			return srv.NewApiServer(cmd.Context(), cfg, state).Run()
		},
	}
	cmd.Flags().StringVar(&address, AddressOptionName, "", fmt.Sprintf("Address to bind. E.g. %s", config.DefaultApiAddress))
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("Port number to bind. E.g. %d", config.DefaultApiPort))
	cmd.Flags().BoolVar(&noStore, NoStoreOptionName, false, "Serve decode requests only, without the record store")
	return cmd
}
