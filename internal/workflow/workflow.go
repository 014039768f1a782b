// Package workflow turns generation requests into engine job descriptions.
package workflow

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"datasetgen/internal/domain"
)

// Slot identifiers of the template graph that are overwritten per request.
const (
	SlotSaveImage   = "136"
	SlotInputImage  = "142"
	SlotTagPrefix   = "189"
	SlotMetadata    = "190"
	SlotPromptText  = "192"
	inputOutputTag  = " [output]"
	artifactPattern = "%s_%05d_"
)

//go:embed default_template.json
var defaultTemplate []byte

// Description is the node graph submitted to the engine.
type Description map[string]any

// NodeSet lists the top-level slot identifiers of a description.
type NodeSet map[string]struct{}

// NodeSet returns the work units whose completion must be observed.
func (d Description) NodeSet() NodeSet {
	set := make(NodeSet, len(d))
	for id := range d {
		set[id] = struct{}{}
	}
	return set
}

// IDs returns the sorted node identifiers.
func (n NodeSet) IDs() []string {
	ids := make([]string, 0, len(n))
	for id := range n {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Template is an immutable template graph. Every Build decodes a fresh copy.
type Template struct {
	raw []byte
}

// LoadTemplate reads a template from path, or returns the embedded default when path is empty.
func LoadTemplate(path string) (*Template, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ParseTemplate(defaultTemplate)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: read template: %w", err)
	}
	return ParseTemplate(raw)
}

// ParseTemplate validates that every tracked slot is present with an inputs object.
func ParseTemplate(raw []byte) (*Template, error) {
	t := &Template{raw: append([]byte(nil), raw...)}
	desc, err := t.decode()
	if err != nil {
		return nil, err
	}
	for _, slot := range []string{SlotSaveImage, SlotInputImage, SlotTagPrefix, SlotMetadata, SlotPromptText} {
		if _, err := inputsOf(desc, slot); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Build overwrites the request-specific slots of a fresh template copy.
func (t *Template) Build(req domain.GenerateRequest, prompt, inputArtifact string) (Description, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(inputArtifact) == "" {
		return nil, fmt.Errorf("%w: input artifact is required", domain.ErrConfiguration)
	}
	desc, err := t.decode()
	if err != nil {
		return nil, err
	}
	values := map[string][2]string{
		SlotPromptText: {"text", prompt},
		SlotSaveImage:  {"filename_prefix", FilenamePrefix(req)},
		SlotTagPrefix:  {"prefix", req.TriggerWord},
		SlotMetadata:   {"file", MetadataFileName(req)},
		SlotInputImage: {"image", InputReference(inputArtifact)},
	}
	for slot, kv := range values {
		inputs, err := inputsOf(desc, slot)
		if err != nil {
			return nil, err
		}
		inputs[kv[0]] = kv[1]
	}
	return desc, nil
}

func (t *Template) decode() (Description, error) {
	dec := json.NewDecoder(bytes.NewReader(t.raw))
	dec.UseNumber()
	var desc Description
	if err := dec.Decode(&desc); err != nil {
		return nil, fmt.Errorf("%w: decode template: %v", domain.ErrConfiguration, err)
	}
	return desc, nil
}

func inputsOf(desc Description, slot string) (map[string]any, error) {
	node, ok := desc[slot].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: template missing node %s", domain.ErrConfiguration, slot)
	}
	inputs, ok := node["inputs"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: template node %s has no inputs", domain.ErrConfiguration, slot)
	}
	return inputs, nil
}

// FilenamePrefix is the engine's output filename prefix for the request.
func FilenamePrefix(req domain.GenerateRequest) string {
	if req.Mode == domain.ModeExpression {
		return strings.Join([]string{domain.ExpressionShotType, req.TriggerWord, req.Expression, req.Angle}, "_")
	}
	return req.TriggerWord
}

// MetadataFileName is the sidecar caption file written by the engine.
func MetadataFileName(req domain.GenerateRequest) string {
	return fmt.Sprintf(artifactPattern+".txt", req.TriggerWord+"_"+req.Qualifier(), req.Index)
}

// OutputArtifactName is the image file the engine saves for the request.
func OutputArtifactName(req domain.GenerateRequest) string {
	return fmt.Sprintf(artifactPattern+".png", FilenamePrefix(req), req.Index)
}

// InputArtifactName is the conditioning image expected for a shot_type request.
func InputArtifactName(req domain.GenerateRequest) string {
	return req.ShotType() + "_" + req.TriggerWord + ".png"
}

// InputReference tags an artifact name as sourced from the engine's output directory.
func InputReference(name string) string {
	return name + inputOutputTag
}
