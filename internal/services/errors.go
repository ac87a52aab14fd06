package services

import (
	"errors"

	"github.com/miradorstack/mirador-thermal/internal/aggregator"
	"github.com/miradorstack/mirador-thermal/internal/logsource"
	"github.com/miradorstack/mirador-thermal/internal/parser"
	"github.com/miradorstack/mirador-thermal/internal/repo"
)

var (
	// ErrInvalidAction is returned by ApplyAction for unrecognised actions.
	ErrInvalidAction = errors.New("invalid action")
	// ErrUnsupportedFile is returned for uploads that are not .csv or .txt.
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// Error kind labels used in response bodies and metric labels.
const (
	KindNotFound             = "NotFound"
	KindReadError            = "ReadError"
	KindInsufficientData     = "InsufficientData"
	KindHeaderNotFound       = "HeaderNotFound"
	KindNoValidSamples       = "NoValidSamples"
	KindNoTemperatureColumns = "NoTemperatureColumns"
	KindUpstreamUnavailable  = "UpstreamUnavailable"
	KindUnsupportedFile      = "UnsupportedFile"
	KindInvalidAction        = "InvalidAction"
	KindInternal             = "Internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{logsource.ErrNotFound, KindNotFound},
	{logsource.ErrReadFailed, KindReadError},
	{parser.ErrInsufficientData, KindInsufficientData},
	{parser.ErrHeaderNotFound, KindHeaderNotFound},
	{parser.ErrNoValidSamples, KindNoValidSamples},
	{aggregator.ErrNoTemperatureColumns, KindNoTemperatureColumns},
	{repo.ErrUpstreamUnavailable, KindUpstreamUnavailable},
	{ErrUnsupportedFile, KindUnsupportedFile},
	{ErrInvalidAction, KindInvalidAction},
}

// Kind maps err onto its kind label. Nil maps to "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
