package conf

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/via2coco/internal/errors"
)

// categoryFile is the mapping form of a YAML category file.
type categoryFile struct {
	Categories []string `yaml:"categories"`
}

// LoadCategoryNames reads an ordered category list. Files ending in .yaml,
// .yml or .json hold either a sequence of names or a mapping with a
// "categories" sequence. Anything else is read as one name per line, with
// blank lines and lines starting with # skipped.
func LoadCategoryNames(fsys afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("read categories file: %w", err)).
			Component("conf").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}

	var names []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		names, err = parseYAMLCategories(data)
	default:
		names, err = parseTextCategories(data)
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("parse categories file: %w", err)).
			Component("conf").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}

	if len(names) == 0 {
		return nil, errors.Newf("categories file %s lists no categories", filepath.Base(path)).
			Component("conf").
			Category(errors.CategoryValidation).
			FileContext(path).
			Build()
	}

	return names, nil
}

func parseYAMLCategories(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := root.Decode(&names); err != nil {
			return nil, err
		}
		return names, nil
	case yaml.MappingNode:
		var file categoryFile
		if err := root.Decode(&file); err != nil {
			return nil, err
		}
		return file.Categories, nil
	default:
		return nil, fmt.Errorf("expected a list of names or a categories key, line %d", root.Line)
	}
}

func parseTextCategories(data []byte) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, scanner.Err()
}

// CategoryNames returns the configured category list, read from
// Convert.CategoriesFile when one is set. It is empty when neither is set.
func (s *Settings) CategoryNames(fsys afero.Fs) ([]string, error) {
	if s.Convert.CategoriesFile != "" {
		return LoadCategoryNames(fsys, s.Convert.CategoriesFile)
	}
	return s.Convert.Categories, nil
}
