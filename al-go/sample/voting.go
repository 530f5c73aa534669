package sample

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/spf13/afero"

	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/errors"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/fileutil"
)

// VotingResult is one entry of a voting_results_round_<n>.json file produced
// by the external voting layer for a previously queried sample.
type VotingResult struct {
	OriginalIndex int               `json:"original_index"`
	FinalLabel    flexString        `json:"final_label"`
	SampleData    json.RawMessage   `json:"sample_data"`
	Votes         map[string]string `json:"votes,omitempty"`
	Consensus     bool              `json:"consensus"`
	Timestamp     string            `json:"timestamp,omitempty"`
}

// flexString accepts both JSON strings and numbers, since voters submit
// labels in either form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// LoadVotingResults reads a voting results file. A missing file is not an
// error: rounds before any labels arrive legitimately have nothing to merge.
func LoadVotingResults(fs afero.Fs, path string) ([]VotingResult, error) {
	if !fileutil.Exists(fs, path) {
		return nil, nil
	}
	data, err := fileutil.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading voting results %s", path)
	}
	var results []VotingResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, errors.Wrapf(err, "error decoding voting results %s", path)
	}
	return results, nil
}

// Sample converts a voting result into a labeled sample attributed to the
// given round. It returns false when the result carries no usable feature
// data or no consensus was reached.
func (v VotingResult) Sample(round int) (Labeled, bool) {
	if !v.Consensus || len(v.SampleData) == 0 {
		return Labeled{}, false
	}
	features, err := extractFeatures(v.SampleData)
	if err != nil || len(features) == 0 {
		return Labeled{}, false
	}
	return Labeled{
		ID:          v.OriginalIndex,
		Features:    features,
		Label:       string(v.FinalLabel),
		SourceRound: round,
	}, true
}

// extractFeatures pulls the feature vector out of a sample_data object. An
// explicit "features" array wins; otherwise the numeric values of the object
// are taken in document order, which requires walking the raw JSON tokens
// because map decoding would scramble the column order.
func extractFeatures(raw json.RawMessage) ([]float64, error) {
	var withFeatures struct {
		Features []float64 `json:"features"`
	}
	if err := json.Unmarshal(raw, &withFeatures); err == nil && len(withFeatures.Features) > 0 {
		return withFeatures.Features, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.Errorf("sample_data must be an object")
	}

	var features []float64
	for dec.More() {
		if _, err := dec.Token(); err != nil { // key
			return nil, err
		}
		val, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if num, ok := val.(json.Number); ok {
			f, err := num.Float64()
			if err != nil {
				return nil, err
			}
			features = append(features, f)
		} else if _, ok := val.(json.Delim); ok {
			// nested value: skip it entirely
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
	}
	return features, nil
}

func skipValue(dec *json.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
