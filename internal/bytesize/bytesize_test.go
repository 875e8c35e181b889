package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"plain zero", "0", 0, false},
		{"plain bytes", "1024", 1024, false},
		{"bytes suffix", "1024b", 1024, false},
		{"kibibytes", "1KiB", KiB, false},
		{"mebibytes short", "256Mi", 256 * MiB, false},
		{"gibibytes lowercase", "1gi", GiB, false},
		{"tebibytes", "1Ti", TiB, false},
		{"kilobytes", "1K", KB, false},
		{"megabytes", "10MB", 10 * MB, false},
		{"gigabytes", "1G", GB, false},
		{"whitespace", "  1 Gi  ", GiB, false},
		{"fractional", "1.5Mi", ByteSize(1.5 * float64(MiB)), false},

		{"empty", "", 0, true},
		{"whitespace only", "   ", 0, true},
		{"unknown unit", "1Xi", 0, true},
		{"negative", "-1Gi", 0, true},
		{"no number", "Gi", 0, true},
		{"garbage", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseByteSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarshalTextRoundTrip(t *testing.T) {
	tests := []struct {
		size ByteSize
		text string
	}{
		{0, "0"},
		{512, "512"},
		{256 * MiB, "256Mi"},
		{3 * GiB, "3Gi"},
		{1536, "1536"},
		{2 * TiB, "2Ti"},
		{10 * MB, "10000000"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			text, err := tt.size.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tt.text, string(text))

			var back ByteSize
			require.NoError(t, back.UnmarshalText(text))
			assert.Equal(t, tt.size, back)
		})
	}
}

func TestYAMLField(t *testing.T) {
	type loader struct {
		MaxFileSize ByteSize `yaml:"max_file_size"`
	}

	var l loader
	require.NoError(t, yaml.Unmarshal([]byte("max_file_size: 64Mi\n"), &l))
	assert.Equal(t, 64*MiB, l.MaxFileSize)

	out, err := yaml.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, "max_file_size: 64Mi\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte("max_file_size: lots\n"), &l))
}

func TestString(t *testing.T) {
	assert.Equal(t, "512B", ByteSize(512).String())
	assert.Equal(t, "2.00KiB", (2 * KiB).String())
	assert.Equal(t, "100.00MiB", (100 * MiB).String())
	assert.Equal(t, "1.50GiB", ByteSize(1.5*float64(GiB)).String())
	assert.Equal(t, "2.00TiB", (2 * TiB).String())
}

func TestInt64Saturates(t *testing.T) {
	assert.Equal(t, int64(GiB), GiB.Int64())
	assert.Equal(t, int64(1<<63-1), ByteSize(1<<64-1).Int64())
}
