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

package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/imroc/req"

	"github.com/mammark/go-tagcore/pkg/config"
	"github.com/mammark/go-tagcore/pkg/pix"
	"github.com/mammark/go-tagcore/pkg/srv"
	"github.com/mammark/go-tagcore/pkg/stream"
)

// ErrStatus returned when the server answers with anything but 200
type ErrStatus struct {
	Status  string
	Message string
}

func (e ErrStatus) Error() string {
	if e.Message == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s/api", cfg.ApiAddr()),
	}
}

func check(r *req.Resp) error {
	if r.Response().StatusCode != 200 {
		return ErrStatus{Status: r.Response().Status, Message: strings.TrimSpace(r.String())}
	}
	return nil
}

// Decode posts a dblk stream, the summaries are stored under source
// on the server when source is not empty
func (c *ApiClient) Decode(data []byte, source string, offset int) (*srv.DecodeResult, error) {
	params := req.QueryParam{"offset": offset}
	if source != "" {
		params["source"] = source
	}
	r, err := req.Post(fmt.Sprintf("%s/decode", c.ApiPrefix), params, req.Header{"Content-Type": "application/octet-stream"}, data)
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	result := &srv.DecodeResult{}
	if err := r.ToJSON(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Panic posts a panic file and returns the scan report
func (c *ApiClient) Panic(data []byte) (*pix.Report, error) {
	r, err := req.Post(fmt.Sprintf("%s/panic", c.ApiPrefix), req.Header{"Content-Type": "application/octet-stream"}, data)
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	report := &pix.Report{}
	if err := r.ToJSON(report); err != nil {
		return nil, err
	}
	return report, nil
}

// Sources lists the sources stored on the server
func (c *ApiClient) Sources() ([]string, error) {
	r, err := req.Get(fmt.Sprintf("%s/sources", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	var sources []string
	if err := r.ToJSON(&sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// Records returns the stored summaries of a source
func (c *ApiClient) Records(source string) ([]*stream.Summary, error) {
	r, err := req.Get(fmt.Sprintf("%s/sources/%s/records", c.ApiPrefix, url.PathEscape(source)))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	var summaries []*stream.Summary
	if err := r.ToJSON(&summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Stats returns the stored statistics of a source
func (c *ApiClient) Stats(source string) (*stream.Stats, error) {
	r, err := req.Get(fmt.Sprintf("%s/sources/%s/stats", c.ApiPrefix, url.PathEscape(source)))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	stats := stream.NewStats()
	if err := r.ToJSON(stats); err != nil {
		return nil, err
	}
	return stats, nil
}
