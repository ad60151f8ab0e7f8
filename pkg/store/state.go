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

package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"github.com/mammark/go-tagcore/pkg/log"
	"github.com/mammark/go-tagcore/pkg/stream"
)

const (
	BucketPrefix = "dblk_"
	StatsKey     = "stats"
)

// ErrSourceNotFound returned when no bucket exists for a source
type ErrSourceNotFound struct {
	Name string
}

func (e ErrSourceNotFound) Error() string {
	return fmt.Sprintf("Source not found: %s", e.Name)
}

// State keeps decoded record summaries per source file
type State struct {
	context.Context
	DB *bbolt.DB
}

func NewState(ctx context.Context, path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &State{
		Context: ctx,
		DB:      db,
	}, nil
}

// Close ...
func (s *State) Close() error {
	return s.DB.Close()
}

func BucketName(source string) string {
	return fmt.Sprintf("%s%s", BucketPrefix, source)
}

// CreateBucket ...
func (s *State) CreateBucket(source string) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName(source)))
		return err
	})
}

func offsetKey(offset int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(offset))
	return b
}

func (s *State) update(source string, fn func(b *bbolt.Bucket) error) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName(source)))
		if b == nil {
			return ErrSourceNotFound{Name: source}
		}
		return fn(b)
	})
}

func (s *State) view(source string, fn func(b *bbolt.Bucket) error) error {
	return s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName(source)))
		if b == nil {
			return ErrSourceNotFound{Name: source}
		}
		return fn(b)
	})
}

// PutSummaries stores summaries keyed by record offset, in one transaction
func (s *State) PutSummaries(source string, summaries []*stream.Summary) error {
	log.Debug("Storing %d summaries: source: %s", len(summaries), source)
	return s.update(source, func(b *bbolt.Bucket) error {
		for _, sum := range summaries {
			data, err := yaml.Marshal(sum)
			if err != nil {
				return err
			}
			if err := b.Put(offsetKey(sum.Offset), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutSummary ...
func (s *State) PutSummary(source string, summary *stream.Summary) error {
	return s.PutSummaries(source, []*stream.Summary{summary})
}

// PutStats ...
func (s *State) PutStats(source string, stats *stream.Stats) error {
	return s.update(source, func(b *bbolt.Bucket) error {
		data, err := yaml.Marshal(stats)
		if err != nil {
			return err
		}
		return b.Put([]byte(StatsKey), data)
	})
}

// GetSummaries returns the summaries of a source in offset order
func (s *State) GetSummaries(source string) ([]*stream.Summary, error) {
	log.Debug("Getting summaries: source: %s", source)
	summaries := []*stream.Summary{}
	err := s.view(source, func(b *bbolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			if bytes.Equal(k, []byte(StatsKey)) {
				return nil
			}
			sum := &stream.Summary{}
			if err := yaml.Unmarshal(v, sum); err != nil {
				log.Error("Error while unmarshalling summary at offset %d: %s", binary.BigEndian.Uint64(k), err)
				return err
			}
			summaries = append(summaries, sum)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetStats ...
func (s *State) GetStats(source string) (*stream.Stats, error) {
	stats := stream.NewStats()
	err := s.view(source, func(b *bbolt.Bucket) error {
		data := b.Get([]byte(StatsKey))
		if data == nil {
			return fmt.Errorf("No stats stored for source %s", source)
		}
		return yaml.Unmarshal(data, stats)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Sources returns the names of all stored sources
func (s *State) Sources() ([]string, error) {
	sources := []string{}
	err := s.DB.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			if strings.HasPrefix(string(name), BucketPrefix) {
				sources = append(sources, strings.TrimPrefix(string(name), BucketPrefix))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// DeleteSource drops everything stored for a source
func (s *State) DeleteSource(source string) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket([]byte(BucketName(source)))
		if err == bbolt.ErrBucketNotFound {
			return ErrSourceNotFound{Name: source}
		}
		return err
	})
}

// SourceName turns a file path into a source name
func SourceName(path string) string {
	return filepath.Base(path)
}
