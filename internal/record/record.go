// Package record defines the versioned JSON form of finished runs.
//
// Records are what the store keeps alongside its indexed columns and what
// the archive exports. Every decode is validated against the embedded JSON
// schema for the record kind.
package record

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/vlab/internal/challenge"
	"github.com/abhisek/vlab/internal/experiment"
	"github.com/abhisek/vlab/internal/osmosis"
	"github.com/abhisek/vlab/internal/phase"
)

// Version is the record format written by this build.
const Version = 1

// Kind names a record type. It is used as the schema name and archive
// prefix.
type Kind string

const (
	KindExperiment Kind = "experiment"
	KindChallenge  Kind = "challenge"
)

// Experiment is a saved experiment session.
type Experiment struct {
	Version        int                  `json:"version"`
	ID             string               `json:"id"`
	CreatedAt      time.Time            `json:"createdAt"`
	Archetype      osmosis.Archetype    `json:"archetype"`
	Solution       osmosis.SolutionType `json:"solution"`
	State          experiment.State     `json:"state"`
	CompletedSteps []experiment.Step    `json:"completedSteps"`
	Phase          phase.Label          `json:"phase"`
}

// NewExperiment builds a record from a session snapshot.
func NewExperiment(id string, snap experiment.Snapshot, at time.Time) Experiment {
	return Experiment{
		Version:        Version,
		ID:             id,
		CreatedAt:      at.UTC(),
		Archetype:      snap.Archetype,
		Solution:       snap.Solution,
		State:          snap.State,
		CompletedSteps: snap.CompletedSteps,
		Phase:          snap.Phase,
	}
}

// Challenge is a finished challenge session.
type Challenge struct {
	Version   int               `json:"version"`
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	Session   challenge.Session `json:"session"`
	Rank      challenge.Rank    `json:"rank"`
}

// NewChallenge builds a record from a challenge session. The record ID is
// the session ID.
func NewChallenge(s *challenge.Session, at time.Time) Challenge {
	return Challenge{
		Version:   Version,
		ID:        s.ID,
		CreatedAt: at.UTC(),
		Session:   *s,
		Rank:      s.Rank(),
	}
}

//go:embed schema/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[Kind]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	schemas = make(map[Kind]*jsonschema.Schema, 2)
	for _, k := range []Kind{KindExperiment, KindChallenge} {
		name := "schema/" + string(k) + ".json"
		raw, err := schemaFS.ReadFile(name)
		if err != nil {
			schemasErr = fmt.Errorf("read %s: %w", name, err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			schemasErr = fmt.Errorf("parse %s: %w", name, err)
			return
		}
		url := "vlab://record/" + string(k) + ".json"
		if err := c.AddResource(url, doc); err != nil {
			schemasErr = fmt.Errorf("add %s: %w", name, err)
			return
		}
		sch, err := c.Compile(url)
		if err != nil {
			schemasErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		schemas[k] = sch
	}
}

// Validate checks data against the schema for kind.
func Validate(kind Kind, data []byte) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	sch, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("unknown record kind %q", kind)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode %s record: %w", kind, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("invalid %s record: %w", kind, err)
	}
	return checkVersion(kind, doc)
}

func checkVersion(kind Kind, doc any) error {
	m, _ := doc.(map[string]any)
	n, _ := m["version"].(json.Number)
	v, err := n.Int64()
	if err != nil {
		return fmt.Errorf("%s record: bad version %q", kind, n)
	}
	if v > Version {
		return fmt.Errorf("%s record version %d is newer than supported version %d", kind, v, Version)
	}
	return nil
}

func encode(kind Kind, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", kind, err)
	}
	if err := Validate(kind, data); err != nil {
		return nil, err
	}
	return data, nil
}

// EncodeExperiment marshals and validates r. A zero Version is set to the
// current one.
func EncodeExperiment(r Experiment) ([]byte, error) {
	if r.Version == 0 {
		r.Version = Version
	}
	return encode(KindExperiment, r)
}

// DecodeExperiment validates and unmarshals an experiment record.
func DecodeExperiment(data []byte) (Experiment, error) {
	var r Experiment
	if err := Validate(KindExperiment, data); err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("decode experiment record: %w", err)
	}
	return r, nil
}

// EncodeChallenge marshals and validates r. A zero Version is set to the
// current one.
func EncodeChallenge(r Challenge) ([]byte, error) {
	if r.Version == 0 {
		r.Version = Version
	}
	return encode(KindChallenge, r)
}

// DecodeChallenge validates and unmarshals a challenge record.
func DecodeChallenge(data []byte) (Challenge, error) {
	var r Challenge
	if err := Validate(KindChallenge, data); err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("decode challenge record: %w", err)
	}
	return r, nil
}

// Restore loads r into s.
func (r Experiment) Restore(s *experiment.Session) {
	s.Restore(r.Archetype, r.Solution, r.State, r.CompletedSteps)
}
