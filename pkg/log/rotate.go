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

package log

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation describes how a log file is rotated
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// InitFile sends log lines both to out and to a rotated file at path.
// The returned closer must be closed on exit to flush the file.
func InitFile(out io.Writer, path string, rotation Rotation, strLevel string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotation.MaxSizeMB,
		MaxAge:     rotation.MaxAgeDays,
		MaxBackups: rotation.MaxBackups,
		Compress:   rotation.Compress,
	}
	if err := Init(io.MultiWriter(out, rotator), strLevel); err != nil {
		rotator.Close()
		return nil, err
	}
	return rotator, nil
}
