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

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mammark/go-tagcore/cmd/completion"
	"github.com/mammark/go-tagcore/cmd/config"
	"github.com/mammark/go-tagcore/cmd/decode"
	"github.com/mammark/go-tagcore/cmd/pix"
	"github.com/mammark/go-tagcore/cmd/remote"
	"github.com/mammark/go-tagcore/cmd/serve"
	pkgconfig "github.com/mammark/go-tagcore/pkg/config"
	"github.com/mammark/go-tagcore/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
	LogFileOptionName  = "log-file"
	ConfigOptionName   = "config"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel, logFile, configPath string
	var logCloser io.Closer
	cfg := pkgconfig.NewDefaultConfig()
	cmd := &cobra.Command{
		Use:          "tagdump",
		Short:        "Tool to decode MamMark tag data streams and panic dumps",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg.SetPath(configPath)
			}
			if err := cfg.Load(); err != nil {
				return fmt.Errorf("Loading config %s: %w", cfg.Path(), err)
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFile != "" {
				cfg.Log.File = logFile
			}
			if cfg.Log.File == "" {
				return log.Init(cmd.ErrOrStderr(), cfg.Log.Level)
			}
			closer, err := log.InitFile(cmd.ErrOrStderr(), cfg.Log.File, log.Rotation{
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAgeDays: cfg.Log.MaxAgeDays,
				Compress:   cfg.Log.Compress,
			}, cfg.Log.Level)
			if err != nil {
				return err
			}
			logCloser = closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(decode.NewCommand(cfg))
	cmd.AddCommand(pix.NewCommand(cfg))
	cmd.AddCommand(serve.NewCommand(cfg))
	cmd.AddCommand(remote.NewCommand(cfg))
	cmd.AddCommand(config.NewCommand(cfg))
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	cmd.PersistentFlags().StringVar(&logFile, LogFileOptionName, "", "Also write the log to this file, rotated")
	cmd.PersistentFlags().StringVar(&configPath, ConfigOptionName, "", fmt.Sprintf("Config file. Default %s", pkgconfig.DefaultConfigPath()))
	return cmd
}
