package detection

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v2"
)

// Vocabulary maps class indices to names.
type Vocabulary []string

// Name returns the class name for id, or "class_<id>" when id is outside the vocabulary.
func (v Vocabulary) Name(id int) string {
	if id >= 0 && id < len(v) && v[id] != "" {
		return v[id]
	}
	return "class_" + strconv.Itoa(id)
}

// COCOClasses contains the 80 COCO class names used by stock YOLOv8 weights.
var COCOClasses = Vocabulary{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// BuiltinCOCO is the source name reported when no names file accompanies the model.
const BuiltinCOCO = "builtin:coco"

// ErrEmptyVocabulary is returned when a names file contains no labels.
var ErrEmptyVocabulary = errors.New("detection: empty label vocabulary")

// LoadLabels reads a names file. These layouts are accepted:
//
//	person                 one name per line, index = line order
//	0: person              explicit index per line
//	{0: 'person', 1: 'bicycle'}   the dict exported with ultralytics models
//
// An ultralytics data.yaml is also accepted: only its names key is read,
// as a list or an index map. Other keys are ignored.
//
// Blank lines and lines starting with '#' are ignored.
func LoadLabels(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	vocab, err := ParseLabels(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return vocab, nil
}

// ParseLabels parses the contents of a names file. See LoadLabels.
func ParseLabels(content string) (Vocabulary, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var byID map[int]string
		if err := yaml.Unmarshal([]byte(trimmed), &byID); err != nil {
			return nil, fmt.Errorf("parse names dict: %w", err)
		}
		return fromIndexMap(byID)
	}

	var raw []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		raw = append(raw, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrEmptyVocabulary
	}

	for _, line := range raw {
		if key, _, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(key) == "names" && !isIndented(line) {
			return parseYAMLNames(content)
		}
	}

	lines := make([]string, len(raw))
	indexed := 0
	for i, line := range raw {
		lines[i] = strings.TrimSpace(line)
		if _, _, ok := splitIndexed(lines[i]); ok {
			indexed++
		}
	}
	switch indexed {
	case 0:
		return Vocabulary(lines), nil
	case len(lines):
		return parseIndexed(lines)
	default:
		return nil, fmt.Errorf("%d of %d entries are indexed; use one layout", indexed, len(lines))
	}
}

// parseYAMLNames reads the names key of a data.yaml document. The value
// is either a list of names or a map from class index to name.
func parseYAMLNames(content string) (Vocabulary, error) {
	var doc struct {
		Names interface{} `yaml:"names"`
	}
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	switch names := doc.Names.(type) {
	case []interface{}:
		vocab := make(Vocabulary, 0, len(names))
		for _, n := range names {
			vocab = append(vocab, fmt.Sprint(n))
		}
		if len(vocab) == 0 {
			return nil, ErrEmptyVocabulary
		}
		return vocab, nil
	case map[interface{}]interface{}:
		byID := make(map[int]string, len(names))
		for k, v := range names {
			id, ok := k.(int)
			if !ok || id < 0 {
				return nil, fmt.Errorf("names key %v is not a class index", k)
			}
			byID[id] = fmt.Sprint(v)
		}
		return fromIndexMap(byID)
	case nil:
		return nil, ErrEmptyVocabulary
	default:
		return nil, fmt.Errorf("unsupported names value of type %T", names)
	}
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

func parseIndexed(entries []string) (Vocabulary, error) {
	byID := make(map[int]string, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, name, ok := splitIndexed(entry)
		if !ok {
			return nil, fmt.Errorf("malformed entry %q", entry)
		}
		byID[id] = name
	}
	return fromIndexMap(byID)
}

// fromIndexMap lays out names by class index. Missing indices stay empty.
func fromIndexMap(byID map[int]string) (Vocabulary, error) {
	maxID := -1
	for id := range byID {
		if id < 0 {
			return nil, fmt.Errorf("negative class index %d", id)
		}
		if id > maxID {
			maxID = id
		}
	}
	if maxID < 0 {
		return nil, ErrEmptyVocabulary
	}

	vocab := make(Vocabulary, maxID+1)
	for id, name := range byID {
		vocab[id] = name
	}
	return vocab, nil
}

// splitIndexed parses "3: 'dog'" into (3, "dog").
func splitIndexed(entry string) (int, string, bool) {
	key, value, found := strings.Cut(entry, ":")
	if !found {
		return 0, "", false
	}
	id, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil || id < 0 {
		return 0, "", false
	}
	name := strings.Trim(strings.TrimSpace(value), `'"`)
	if name == "" {
		return 0, "", false
	}
	return id, name, true
}

// ResolveLabels finds the vocabulary that belongs to a model artifact.
//
// An explicit override path wins. Next come the class names embedded in an
// ONNX model's metadata, then the files <model>.names, <model>.txt,
// names.txt, labels.txt and data.yaml next to the model, in order. When none
// exists the COCO vocabulary is returned. The second result names the source
// that was used.
func ResolveLabels(modelPath, override string) (Vocabulary, string, error) {
	if override != "" {
		vocab, err := LoadLabels(override)
		if err != nil {
			return nil, "", err
		}
		return vocab, override, nil
	}

	if strings.EqualFold(filepath.Ext(modelPath), ".onnx") {
		vocab, err := LabelsFromONNX(modelPath)
		switch {
		case err == nil:
			return vocab, modelPath + "#" + ONNXNamesKey, nil
		case !errors.Is(err, ErrNoEmbeddedLabels) && !errors.Is(err, os.ErrNotExist):
			return nil, "", fmt.Errorf("read model metadata: %w", err)
		}
	}

	base := strings.TrimSuffix(modelPath, filepath.Ext(modelPath))
	dir := filepath.Dir(modelPath)
	candidates := []string{
		base + ".names",
		base + ".txt",
		filepath.Join(dir, "names.txt"),
		filepath.Join(dir, "labels.txt"),
		filepath.Join(dir, "data.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		vocab, err := LoadLabels(path)
		if err != nil {
			return nil, "", err
		}
		return vocab, path, nil
	}

	return COCOClasses, BuiltinCOCO, nil
}
