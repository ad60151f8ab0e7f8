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

package config

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"
)

func TestPersistAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigDir, ConfigFile)
	cfg := NewDefaultConfig()
	cfg.SetPath(path)
	cfg.Panic.BlockStride = 1024
	cfg.Api.Port = 9000
	if err := cfg.Persist(false); err != nil {
		t.Fatal(err)
	}

	loaded := NewDefaultConfig()
	loaded.SetPath(path)
	if err := loaded.Load(); err != nil {
		t.Fatal(err)
	}
	if loaded.Panic.BlockStride != 1024 || loaded.Api.Port != 9000 {
		t.Errorf("values not loaded: %+v %+v", loaded.Panic, loaded.Api)
	}
	if loaded.Panic.BaseOffset != DefaultPanicBaseOffset {
		t.Errorf("expected default base offset, got %d", loaded.Panic.BaseOffset)
	}
}

func TestPersistNoOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	cfg := NewDefaultConfig()
	cfg.SetPath(path)
	if err := cfg.Persist(false); err != nil {
		t.Fatal(err)
	}
	err := cfg.Persist(false)
	var exists ErrConfigFileExists
	if !errors.As(err, &exists) || exists.Path != path {
		t.Fatalf("expected ErrConfigFileExists, got %v", err)
	}
	if err := cfg.Persist(true); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetPath(filepath.Join(t.TempDir(), "nope"))
	if err := cfg.Load(); err != nil {
		t.Fatalf("missing file must keep defaults, got %v", err)
	}
	if cfg.Decode.Output != DefaultOutput {
		t.Errorf("unexpected output %q", cfg.Decode.Output)
	}
	if !cfg.Decode.SkipChecksums {
		t.Errorf("checksums must be skipped by default")
	}
}

func TestLoadKeepsSkipChecksums(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	if err := ioutil.WriteFile(path, []byte("decode:\n  output: json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	cfg.SetPath(path)
	if err := cfg.Load(); err != nil {
		t.Fatal(err)
	}
	if cfg.Decode.Output != "json" || !cfg.Decode.SkipChecksums {
		t.Errorf("decode section without skip_checksums must keep the default: %+v", cfg.Decode)
	}
}

func TestLoadPartialAndInvalid(t *testing.T) {
	dir := t.TempDir()

	partial := filepath.Join(dir, "partial")
	if err := ioutil.WriteFile(partial, []byte("decode:\n  skip_checksums: false\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	cfg.SetPath(partial)
	if err := cfg.Load(); err != nil {
		t.Fatal(err)
	}
	if cfg.Decode.SkipChecksums || cfg.Decode.Output != DefaultOutput || cfg.Log.Level != DefaultLogLevel {
		t.Errorf("partial file did not merge with defaults: %+v %+v", cfg.Decode, cfg.Log)
	}

	invalid := filepath.Join(dir, "invalid")
	if err := ioutil.WriteFile(invalid, []byte("decode:\n  output: xml\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg = NewDefaultConfig()
	cfg.SetPath(invalid)
	var bad ErrInvalidOutput
	if err := cfg.Load(); !errors.As(err, &bad) {
		t.Fatalf("expected ErrInvalidOutput, got %v", err)
	}
}
