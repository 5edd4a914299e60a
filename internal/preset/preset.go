// Package preset stores compressor parameters as JSON documents.
//
//	{"threshold": -18, "ratio": 4, "attack": 5, "release": 250,
//	 "knee": 18, "autoGain": 0.5, "rms": true}
//
// Fields missing from a document keep their default values.
package preset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/farcloser/primordium/fault"

	"github.com/cwbudde/algo-vocalcomp/dsp/effects/dynamics"
)

type document struct {
	Threshold *float64 `json:"threshold,omitempty"`
	Ratio     *float64 `json:"ratio,omitempty"`
	Attack    *float64 `json:"attack,omitempty"`
	Release   *float64 `json:"release,omitempty"`
	Knee      *float64 `json:"knee,omitempty"`
	AutoGain  *float64 `json:"autoGain,omitempty"`
	RMS       *bool    `json:"rms,omitempty"`
}

// Decode reads a preset from r. The result is validated and clamped to the
// host parameter ranges.
func Decode(r io.Reader) (dynamics.Params, error) {
	var doc document

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&doc); err != nil {
		return dynamics.Params{}, fmt.Errorf("%w: %w", fault.ErrInvalidJSON, err)
	}

	p := dynamics.DefaultParams()
	set(&p.ThresholdDB, doc.Threshold)
	set(&p.Ratio, doc.Ratio)
	set(&p.AttackMs, doc.Attack)
	set(&p.ReleaseMs, doc.Release)
	set(&p.KneeDB, doc.Knee)
	set(&p.AutoGain, doc.AutoGain)
	set(&p.RMS, doc.RMS)

	if err := p.Validate(); err != nil {
		return dynamics.Params{}, err
	}

	return p.Clamp(), nil
}

// Encode writes p to w as an indented JSON document.
func Encode(w io.Writer, p dynamics.Params) error {
	doc := document{
		Threshold: &p.ThresholdDB,
		Ratio:     &p.Ratio,
		Attack:    &p.AttackMs,
		Release:   &p.ReleaseMs,
		Knee:      &p.KneeDB,
		AutoGain:  &p.AutoGain,
		RMS:       &p.RMS,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding preset: %w", err)
	}

	return nil
}

// Load reads the preset file at path.
func Load(path string) (dynamics.Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return dynamics.Params{}, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return dynamics.Params{}, fmt.Errorf("preset %s: %w", path, err)
	}

	return p, nil
}

// Save writes p to the file at path, replacing it.
func Save(path string, p dynamics.Params) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating preset: %w", err)
	}

	if err := Encode(f, p); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
