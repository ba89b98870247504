package conf

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/via2coco/internal/errors"
)

func TestLoadCategoryNames(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    []string
	}{
		{"text", "names.txt", "balloon\nkite\n", []string{"balloon", "kite"}},
		{"text comments and blanks", "names", "# classes\n\n  balloon  \n#kite\nbird\n", []string{"balloon", "bird"}},
		{"text keeps duplicates", "names.txt", "a\nb\na\n", []string{"a", "b", "a"}},
		{"yaml sequence", "names.yaml", "- balloon\n- kite\n", []string{"balloon", "kite"}},
		{"yaml mapping", "names.yml", "categories:\n  - balloon\n  - kite\n", []string{"balloon", "kite"}},
		{"json array", "names.json", `["balloon", "kite"]`, []string{"balloon", "kite"}},
		{"json object", "names.json", `{"categories": ["balloon"]}`, []string{"balloon"}},
		{"extension case", "NAMES.YAML", "- balloon\n", []string{"balloon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, tt.file, []byte(tt.content), 0o644))

			got, err := LoadCategoryNames(fs, tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadCategoryNamesErrors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  *string
		category errors.ErrorCategory
	}{
		{"missing", "names.txt", nil, errors.CategoryFileIO},
		{"empty text", "names.txt", ptr("# nothing\n\n"), errors.CategoryValidation},
		{"empty yaml", "names.yaml", ptr(""), errors.CategoryValidation},
		{"yaml scalar", "names.yaml", ptr("balloon"), errors.CategoryFileParsing},
		{"yaml malformed", "names.yaml", ptr("[balloon"), errors.CategoryFileParsing},
		{"yaml nested", "names.yaml", ptr("- [a, b]\n"), errors.CategoryFileParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.content != nil {
				require.NoError(t, afero.WriteFile(fs, tt.file, []byte(*tt.content), 0o644))
			}

			_, err := LoadCategoryNames(fs, tt.file)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
		})
	}
}

func ptr(s string) *string { return &s }

func TestSettingsCategoryNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "names.txt", []byte("kite\nbird\n"), 0o644))

	s := &Settings{}
	names, err := s.CategoryNames(fs)
	require.NoError(t, err)
	assert.Empty(t, names)

	s.Convert.Categories = []string{"balloon"}
	names, err = s.CategoryNames(fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"balloon"}, names)

	s.Convert.Categories = nil
	s.Convert.CategoriesFile = "names.txt"
	names, err = s.CategoryNames(fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"kite", "bird"}, names)
}
