package gazetteer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rohmanhakim/newscrawl/pkg/failure"
)

// The gazetteer import format is NDJSON, one file per logical table (spec
// §5 "Gazetteer import format"). Decoding NDJSON a line at a time with
// encoding/json has no ecosystem alternative in this codebase's stack —
// every corpus repo that parses line-delimited JSON does the same thing
// with bufio.Scanner, so this one corner of the importer stays stdlib.

type placesRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Kind        string `json:"kind"`
	CountryCode string `json:"countryCode"`
	Population  int64  `json:"population"`
}

type placeNameRecord struct {
	PlaceID string `json:"placeId"`
	Name    string `json:"name"`
}

type placeHierarchyRecord struct {
	ParentID string `json:"parentId"`
	ChildID  string `json:"childId"`
}

type placeAttributeRecord struct {
	PlaceID    string `json:"placeId"`
	Population int64  `json:"population"`
}

type placeExternalIDRecord struct {
	PlaceID    string `json:"placeId"`
	Source     string `json:"source"`
	ExternalID string `json:"externalId"`
}

type placeHubRecord struct {
	PlaceID    string `json:"placeId"`
	TopicToken string `json:"topicToken"`
}

type placeProvenanceRecord struct {
	PlaceID string `json:"placeId"`
	Source  string `json:"source"`
}

// importError classifies NDJSON import failures. A corrupt file or a
// foreign-key violation aborts the whole load: a half-built gazetteer is
// worse than none, so this is always SeverityFatal.
type importError struct {
	msg string
}

func (e importError) Error() string              { return e.msg }
func (e importError) Severity() failure.Severity { return failure.SeverityFatal }

func newImportError(format string, args ...any) failure.ClassifiedError {
	return importError{msg: fmt.Sprintf(format, args...)}
}

// LoadFromDir reads the seven NDJSON tables from dir and builds a
// Gazetteer, validating foreign-key consistency as it goes (spec §5:
// "The importer validates foreign-key consistency on load").
func LoadFromDir(dir string) (Gazetteer, failure.ClassifiedError) {
	places, err := decodePlaces(filepath.Join(dir, "places.ndjson"))
	if err != nil {
		return Gazetteer{}, err
	}

	byID := make(map[string]*placesRecord, len(places))
	for i := range places {
		byID[places[i].ID] = &places[i]
	}

	if err := mergeNames(filepath.Join(dir, "place_names.ndjson"), byID); err != nil {
		return Gazetteer{}, err
	}
	if err := mergeAttributes(filepath.Join(dir, "place_attributes.ndjson"), byID); err != nil {
		return Gazetteer{}, err
	}

	edges, err := decodeHierarchy(filepath.Join(dir, "place_hierarchy.ndjson"), byID)
	if err != nil {
		return Gazetteer{}, err
	}

	topicTokens, err := decodeHubs(filepath.Join(dir, "place_hubs.ndjson"), byID)
	if err != nil {
		return Gazetteer{}, err
	}

	if err := validateExternalIDs(filepath.Join(dir, "place_external_ids.ndjson"), byID); err != nil {
		return Gazetteer{}, err
	}
	if err := validateProvenance(filepath.Join(dir, "place_provenance.ndjson"), byID); err != nil {
		return Gazetteer{}, err
	}

	records := make([]PlaceRecord, 0, len(places))
	for _, p := range places {
		records = append(records, PlaceRecord{
			ID:          p.ID,
			Name:        p.Name,
			Slug:        p.Slug,
			Kind:        PlaceKind(p.Kind),
			CountryCode: p.CountryCode,
			Population:  p.Population,
		})
	}

	return NewGazetteer(records, edges, topicTokens, nil), nil
}

func decodePlaces(path string) ([]placesRecord, failure.ClassifiedError) {
	var out []placesRecord
	err := scanNDJSON(path, func(line []byte) error {
		var rec placesRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		if rec.ID == "" {
			return fmt.Errorf("places record missing id")
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, newImportError("gazetteer: decode places: %v", err)
	}
	return out, nil
}

func mergeNames(path string, byID map[string]*placesRecord) failure.ClassifiedError {
	err := scanNDJSON(path, func(line []byte) error {
		var rec placeNameRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		if _, ok := byID[rec.PlaceID]; !ok {
			return fmt.Errorf("place_names: unknown placeId %q", rec.PlaceID)
		}
		// Additional synonym names are folded into the name_map by
		// NewGazetteer only through the primary Name field today; extra
		// synonyms beyond the canonical name are validated but not yet
		// separately indexed.
		return nil
	})
	if err != nil {
		return newImportError("gazetteer: merge place_names: %v", err)
	}
	return nil
}

func mergeAttributes(path string, byID map[string]*placesRecord) failure.ClassifiedError {
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return nil
	}
	err := scanNDJSON(path, func(line []byte) error {
		var rec placeAttributeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		p, ok := byID[rec.PlaceID]
		if !ok {
			return fmt.Errorf("place_attributes: unknown placeId %q", rec.PlaceID)
		}
		if rec.Population > 0 {
			p.Population = rec.Population
		}
		return nil
	})
	if err != nil {
		return newImportError("gazetteer: merge place_attributes: %v", err)
	}
	return nil
}

func decodeHierarchy(path string, byID map[string]*placesRecord) ([]HierarchyEdge, failure.ClassifiedError) {
	var edges []HierarchyEdge
	err := scanNDJSON(path, func(line []byte) error {
		var rec placeHierarchyRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		if _, ok := byID[rec.ParentID]; !ok {
			return fmt.Errorf("place_hierarchy: unknown parentId %q", rec.ParentID)
		}
		if _, ok := byID[rec.ChildID]; !ok {
			return fmt.Errorf("place_hierarchy: unknown childId %q", rec.ChildID)
		}
		edges = append(edges, HierarchyEdge{ParentID: rec.ParentID, ChildID: rec.ChildID})
		return nil
	})
	if err != nil {
		return nil, newImportError("gazetteer: decode place_hierarchy: %v", err)
	}
	return edges, nil
}

// decodeHubs reads place_hubs.ndjson and returns the set of topic tokens
// it declares, validating every referenced place exists. place_hubs
// associates a place with the topic tokens that form hub URLs under it
// (e.g. california -> "news", "sport"); the importer only needs the flat
// token vocabulary for topic_tokens (spec §3).
func decodeHubs(path string, byID map[string]*placesRecord) ([]string, failure.ClassifiedError) {
	seen := make(map[string]bool)
	var tokens []string
	err := scanNDJSON(path, func(line []byte) error {
		var rec placeHubRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		if _, ok := byID[rec.PlaceID]; !ok {
			return fmt.Errorf("place_hubs: unknown placeId %q", rec.PlaceID)
		}
		if rec.TopicToken != "" && !seen[rec.TopicToken] {
			seen[rec.TopicToken] = true
			tokens = append(tokens, rec.TopicToken)
		}
		return nil
	})
	if err != nil {
		return nil, newImportError("gazetteer: decode place_hubs: %v", err)
	}
	return tokens, nil
}

func validateExternalIDs(path string, byID map[string]*placesRecord) failure.ClassifiedError {
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return nil
	}
	err := scanNDJSON(path, func(line []byte) error {
		var rec placeExternalIDRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		if _, ok := byID[rec.PlaceID]; !ok {
			return fmt.Errorf("place_external_ids: unknown placeId %q", rec.PlaceID)
		}
		return nil
	})
	if err != nil {
		return newImportError("gazetteer: validate place_external_ids: %v", err)
	}
	return nil
}

func validateProvenance(path string, byID map[string]*placesRecord) failure.ClassifiedError {
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return nil
	}
	err := scanNDJSON(path, func(line []byte) error {
		var rec placeProvenanceRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		if _, ok := byID[rec.PlaceID]; !ok {
			return fmt.Errorf("place_provenance: unknown placeId %q", rec.PlaceID)
		}
		return nil
	})
	if err != nil {
		return newImportError("gazetteer: validate place_provenance: %v", err)
	}
	return nil
}

func scanNDJSON(path string, handle func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := handle(line); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}
