package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	tests := []struct {
		name        string
		ctx         *Context
		wantVersion string
		wantDate    string
		wantRelease string
	}{
		{"nil context", nil, UnknownValue, UnknownValue, "via2coco@unknown"},
		{"empty", NewContext("", ""), UnknownValue, UnknownValue, "via2coco@unknown"},
		{"valid", NewContext("1.2.0", "2026-01-02"), "1.2.0", "2026-01-02", "via2coco@1.2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantVersion, tt.ctx.GetVersion())
			assert.Equal(t, tt.wantDate, tt.ctx.GetBuildDate())
			assert.Equal(t, tt.wantRelease, tt.ctx.Release())
		})
	}
}

func TestContextString(t *testing.T) {
	assert.Equal(t, "1.2.0 (built 2026-01-02)", NewContext("1.2.0", "2026-01-02").String())
	assert.Equal(t, "unknown (built unknown)", Current().String())
}
