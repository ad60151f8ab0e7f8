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

package stream

import (
	"errors"
	"fmt"

	"github.com/mammark/go-tagcore/pkg/layers"
	"github.com/mammark/go-tagcore/pkg/schema"
)

type AnomalyKind string

const (
	KindTruncatedInput    AnomalyKind = "TruncatedInput"
	KindInvalidLength     AnomalyKind = "InvalidLength"
	KindUnknownType       AnomalyKind = "UnknownType"
	KindChecksumMismatch  AnomalyKind = "ChecksumMismatch"
	KindSignatureMismatch AnomalyKind = "SignatureMismatch"
	KindMalformedFraming  AnomalyKind = "MalformedNestedFraming"
	KindDecodeFailure     AnomalyKind = "DecodeFailure"
)

// Anomaly is one diagnostic found while walking a stream
type Anomaly struct {
	Kind   AnomalyKind `json:"kind"`
	Offset int         `json:"offset"`
	RecNum uint32      `json:"recnum"`
	Reason string      `json:"reason"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s at offset %d (recnum %d): %s", a.Kind, a.Offset, a.RecNum, a.Reason)
}

// KindOf classifies a decode error
func KindOf(err error) AnomalyKind {
	var (
		truncated *schema.ErrTruncatedInput
		length    *layers.ErrInvalidLength
		unknown   *layers.ErrUnknownType
		checksum  *layers.ErrChecksumMismatch
		signature *layers.ErrSignatureMismatch
		framing   *layers.ErrMalformedFraming
	)
	switch {
	case errors.As(err, &truncated):
		return KindTruncatedInput
	case errors.As(err, &length):
		return KindInvalidLength
	case errors.As(err, &unknown):
		return KindUnknownType
	case errors.As(err, &checksum):
		return KindChecksumMismatch
	case errors.As(err, &signature):
		return KindSignatureMismatch
	case errors.As(err, &framing):
		return KindMalformedFraming
	}
	return KindDecodeFailure
}

// ErrStopped is returned by Next when the walk cannot go on.
// Offset is where the offending record starts.
type ErrStopped struct {
	Anomaly Anomaly
	Err     error
}

func (e *ErrStopped) Error() string {
	return fmt.Sprintf("Stream walk stopped: %s", e.Anomaly)
}

func (e *ErrStopped) Unwrap() error {
	return e.Err
}
