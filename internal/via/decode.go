package via

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/afero"

	"github.com/tphakala/via2coco/internal/errors"
)

const componentVIA = "via"

// projectMetadataKey holds the per-image annotations inside a VIA 2 project file.
const projectMetadataKey = "_via_img_metadata"

var (
	errNotObject      = errors.NewStd("expected a JSON object")
	errNotContainer   = errors.NewStd("expected a JSON object or array")
	errTrailingData   = errors.NewStd("unexpected data after the top-level value")
	errNoFilename     = errors.NewStd(`missing "filename"`)
	errNoRegions      = errors.NewStd(`missing "regions"`)
	errNoPoints       = errors.NewStd(`shape_attributes missing "all_points_x" or "all_points_y"`)
	errLengthMismatch = errors.NewStd("all_points_x and all_points_y differ in length")
)

// member is one key/value pair of a JSON object in document order.
type member struct {
	key string
	raw json.RawMessage
}

type wireEntry struct {
	Filename *string         `json:"filename"`
	Regions  json.RawMessage `json:"regions"`
}

type wireRegion struct {
	RegionAttributes map[string]json.RawMessage `json:"region_attributes"`
	ShapeAttributes  *struct {
		AllPointsX []json.RawMessage `json:"all_points_x"`
		AllPointsY []json.RawMessage `json:"all_points_y"`
	} `json:"shape_attributes"`
}

// Load opens path on fsys and decodes it.
func Load(fsys afero.Fs, path string) (*Project, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("open annotations: %w", err)).
			Component(componentVIA).
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	defer f.Close()

	project, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return project, nil
}

// Decode reads a VIA annotation object, or a VIA 2 project file wrapping
// one, preserving key order. Shape problems fail the whole decode with a
// file-parsing error naming the entry and region.
func Decode(r io.Reader) (*Project, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New(fmt.Errorf("read annotations: %w", err)).
			Component(componentVIA).
			Category(errors.CategoryFileIO).
			Build()
	}

	members, err := readMembers(data, false)
	if err != nil {
		return nil, parseError(err).Build()
	}

	for _, m := range members {
		if m.key == projectMetadataKey {
			if members, err = readMembers(m.raw, false); err != nil {
				return nil, parseError(fmt.Errorf("%s: %w", projectMetadataKey, err)).Build()
			}
			break
		}
	}

	project := &Project{Entries: make([]Entry, 0, len(members))}
	for _, m := range members {
		entry, err := decodeEntry(m)
		if err != nil {
			return nil, err
		}
		project.Entries = append(project.Entries, entry)
	}

	return project, nil
}

func decodeEntry(m member) (Entry, error) {
	var wire wireEntry
	if err := json.Unmarshal(m.raw, &wire); err != nil {
		return Entry{}, parseError(fmt.Errorf("entry %q: %w", m.key, err)).
			Entry(m.key).
			Build()
	}

	switch {
	case wire.Filename == nil:
		return Entry{}, entryError(m.key, errNoFilename)
	case isNull(wire.Regions):
		return Entry{}, entryError(m.key, errNoRegions)
	}

	regionMembers, err := readMembers(wire.Regions, true)
	if err != nil {
		return Entry{}, entryError(m.key, fmt.Errorf("regions: %w", err))
	}

	entry := Entry{
		Key:      m.key,
		Filename: *wire.Filename,
		Regions:  make([]Region, 0, len(regionMembers)),
	}
	for _, rm := range regionMembers {
		region, err := decodeRegion(rm)
		if err != nil {
			return Entry{}, parseError(fmt.Errorf("entry %q region %q: %w", m.key, rm.key, err)).
				Entry(m.key).
				Region(rm.key).
				Build()
		}
		entry.Regions = append(entry.Regions, region)
	}

	return entry, nil
}

func decodeRegion(m member) (Region, error) {
	var wire wireRegion
	if err := json.Unmarshal(m.raw, &wire); err != nil {
		return Region{}, err
	}

	region := Region{Key: m.key}

	if raw, ok := wire.RegionAttributes["label"]; ok {
		var label string
		switch {
		case isNull(raw), isScalar(raw):
			region.InvalidLabel = string(bytes.TrimSpace(raw))
			if region.InvalidLabel == "" {
				region.InvalidLabel = "null"
			}
		case json.Unmarshal(raw, &label) == nil:
			region.Label = &label
		default:
			return Region{}, fmt.Errorf("label must be a string, got %s", raw)
		}
	}

	shape := wire.ShapeAttributes
	if shape == nil || shape.AllPointsX == nil || shape.AllPointsY == nil {
		return Region{}, errNoPoints
	}
	if len(shape.AllPointsX) != len(shape.AllPointsY) {
		return Region{}, fmt.Errorf("%w: %d x, %d y", errLengthMismatch, len(shape.AllPointsX), len(shape.AllPointsY))
	}

	var err error
	if region.AllPointsX, err = numbers("all_points_x", shape.AllPointsX); err != nil {
		return Region{}, err
	}
	if region.AllPointsY, err = numbers("all_points_y", shape.AllPointsY); err != nil {
		return Region{}, err
	}

	return region, nil
}

// numbers accepts only JSON number literals that fit a float64.
func numbers(field string, raws []json.RawMessage) ([]json.Number, error) {
	out := make([]json.Number, len(raws))
	for i, raw := range raws {
		lit := string(bytes.TrimSpace(raw))
		if lit == "" || lit[0] == '"' {
			return nil, fmt.Errorf("%s[%d]: not a number: %s", field, i, raw)
		}
		if _, err := strconv.ParseFloat(lit, 64); err != nil {
			return nil, fmt.Errorf("%s[%d]: not a number: %s", field, i, raw)
		}
		out[i] = json.Number(lit)
	}
	return out, nil
}

// readMembers lists the members of a JSON object in document order. A
// repeated key keeps its first position and takes the last value. When
// allowArray is set an array is accepted too, keyed by element index.
func readMembers(data []byte, allowArray bool) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	var members []member
	switch tok {
	case json.Delim('{'):
		index := make(map[string]int)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("value of %q: %w", key, err)
			}

			if i, seen := index[key]; seen {
				members[i].raw = raw
				continue
			}
			index[key] = len(members)
			members = append(members, member{key: key, raw: raw})
		}
	case json.Delim('['):
		if !allowArray {
			return nil, errNotObject
		}
		for i := 0; dec.More(); i++ {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			members = append(members, member{key: strconv.Itoa(i), raw: raw})
		}
	default:
		if allowArray {
			return nil, errNotContainer
		}
		return nil, errNotObject
	}

	// closing delimiter
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}

	return members, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// isScalar reports whether raw is a JSON number or boolean.
func isScalar(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	switch c := trimmed[0]; {
	case c == 't', c == 'f', c == '-', c >= '0' && c <= '9':
		return true
	default:
		return false
	}
}

func parseError(err error) *errors.ErrorBuilder {
	return errors.New(err).
		Component(componentVIA).
		Category(errors.CategoryFileParsing)
}

func entryError(key string, err error) error {
	return parseError(fmt.Errorf("entry %q: %w", key, err)).
		Entry(key).
		Build()
}
