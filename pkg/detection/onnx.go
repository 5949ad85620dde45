package detection

import (
	"errors"
	"fmt"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// ModelProto and StringStringEntryProto field numbers from onnx.proto.
const (
	onnxMetadataProps = 14
	onnxEntryKey      = 1
	onnxEntryValue    = 2
)

// ONNXNamesKey is the metadata key ultralytics exports write the class
// names under, as a {0: 'name', ...} dict.
const ONNXNamesKey = "names"

// ErrNoEmbeddedLabels is returned when a model carries no class names.
var ErrNoEmbeddedLabels = errors.New("detection: model has no embedded class names")

// ReadONNXMetadata returns the metadata_props of an ONNX model file.
// Only the top level of the ModelProto is walked; the graph is skipped.
func ReadONNXMetadata(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseONNXMetadata(data)
}

func parseONNXMetadata(b []byte) (map[string]string, error) {
	props := make(map[string]string)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("onnx: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if num == onnxMetadataProps && typ == protowire.BytesType {
			entry, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, fmt.Errorf("onnx: bad metadata entry: %w", protowire.ParseError(m))
			}
			key, value, err := parseONNXEntry(entry)
			if err != nil {
				return nil, err
			}
			props[key] = value
			b = b[m:]
			continue
		}

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return nil, fmt.Errorf("onnx: bad field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return props, nil
}

func parseONNXEntry(b []byte) (key, value string, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", "", fmt.Errorf("onnx: bad entry tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if typ == protowire.BytesType && (num == onnxEntryKey || num == onnxEntryValue) {
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return "", "", fmt.Errorf("onnx: bad entry string: %w", protowire.ParseError(m))
			}
			if num == onnxEntryKey {
				key = v
			} else {
				value = v
			}
			b = b[m:]
			continue
		}

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return "", "", fmt.Errorf("onnx: bad entry field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return key, value, nil
}

// LabelsFromONNX reads the class names embedded in an ONNX model.
func LabelsFromONNX(path string) (Vocabulary, error) {
	props, err := ReadONNXMetadata(path)
	if err != nil {
		return nil, err
	}
	names, ok := props[ONNXNamesKey]
	if !ok || names == "" {
		return nil, ErrNoEmbeddedLabels
	}
	vocab, err := ParseLabels(names)
	if err != nil {
		return nil, fmt.Errorf("parse embedded names: %w", err)
	}
	return vocab, nil
}

// ErrVocabularyMismatch is returned when the model's class count and the
// vocabulary size disagree.
var ErrVocabularyMismatch = errors.New("detection: vocabulary does not match model classes")

// CheckVocabulary verifies that v names exactly numClasses classes.
func CheckVocabulary(v Vocabulary, numClasses int) error {
	if len(v) != numClasses {
		return fmt.Errorf("%w: model has %d classes, vocabulary has %d", ErrVocabularyMismatch, numClasses, len(v))
	}
	return nil
}
