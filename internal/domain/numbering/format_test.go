package numbering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *NumberingConfig {
	whLabel := "Warehouse"
	catLabel := "Category"
	cfg := NewNumberingConfig("tenant-1", "PO", "Purchase Order", PeriodMonthShort)
	cfg.Prefix1Label = &whLabel
	cfg.Prefix2Label = &catLabel
	cfg.SequenceLength = 4
	return cfg
}

func TestFormatNumber(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name string
		c    Components
		want string
	}{
		{
			"both prefixes",
			Components{DocumentType: "PO", Period: "0125", Prefix1: Some("WH1"), Prefix2: Some("LOCAL"), Sequence: 1},
			"PO-0125-WH1-LOCAL-0001",
		},
		{
			"one prefix",
			Components{DocumentType: "PO", Period: "0125", Prefix1: Some("WH1"), Prefix2: None(), Sequence: 1},
			"PO-0125-WH1-0001",
		},
		{
			"no prefixes",
			Components{DocumentType: "PO", Period: "0125", Prefix1: None(), Prefix2: None(), Sequence: 1},
			"PO-0125-0001",
		},
		{
			"present but empty prefix keeps its segment",
			Components{DocumentType: "PO", Period: "0125", Prefix1: Some(""), Prefix2: None(), Sequence: 7},
			"PO-0125--0007",
		},
		{
			"sequence at pad width",
			Components{DocumentType: "PO", Period: "0125", Prefix1: None(), Prefix2: None(), Sequence: 9999},
			"PO-0125-9999",
		},
		{
			"sequence overflows pad width unpadded",
			Components{DocumentType: "PO", Period: "0125", Prefix1: None(), Prefix2: None(), Sequence: 12345},
			"PO-0125-12345",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(cfg, tt.c))
		})
	}
}

func TestFormatNumber_CustomPadAndSeparator(t *testing.T) {
	cfg := testConfig()
	cfg.Separator = "/"
	cfg.PadChar = "*"
	cfg.SequenceLength = 6

	got := FormatNumber(cfg, Components{
		DocumentType: "PO",
		Period:       "012025",
		Prefix1:      Some("WH1"),
		Sequence:     42,
	})
	assert.Equal(t, "PO/012025/WH1/****42", got)
}

func TestParseNumber_RoundTrip(t *testing.T) {
	cfg := testConfig()

	cases := []Components{
		{DocumentType: "PO", Period: "0125", Prefix1: Some("WH1"), Prefix2: Some("LOCAL"), Sequence: 1},
		{DocumentType: "PO", Period: "0125", Prefix1: Some("WH1"), Prefix2: None(), Sequence: 250},
		{DocumentType: "PO", Period: "1226", Prefix1: None(), Prefix2: None(), Sequence: 99999},
		{DocumentType: "PO", Period: "0125", Prefix1: None(), Prefix2: None(), Sequence: 900},
	}
	for _, c := range cases {
		formatted := FormatNumber(cfg, c)
		parsed, err := ParseNumber(cfg, formatted)
		require.NoError(t, err, formatted)
		assert.Equal(t, c, parsed, formatted)
	}
}

func TestParseNumber_RoundTrip_CustomPad(t *testing.T) {
	cfg := testConfig()
	cfg.PadChar = "*"
	require.NoError(t, cfg.Validate(t.Context()))

	for _, seq := range []int64{9, 900, 9999} {
		c := Components{DocumentType: "PO", Period: "0125", Prefix1: None(), Prefix2: None(), Sequence: seq}
		formatted := FormatNumber(cfg, c)
		parsed, err := ParseNumber(cfg, formatted)
		require.NoError(t, err, formatted)
		assert.Equal(t, c, parsed, formatted)
	}
}

func TestParseNumber_Malformed(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too few segments", "PO-0125"},
		{"too many segments", "PO-0125-A-B-C-0001"},
		{"wrong document type", "INV-0125-0001"},
		{"non numeric sequence", "PO-0125-WH1-ABCD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNumber(cfg, tt.input)
			assert.Error(t, err)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("defaults pass", func(t *testing.T) {
		cfg := NewNumberingConfig("tenant-1", "po", "Purchase Order", PeriodMonthShort)
		assert.Equal(t, "PO", cfg.DocumentType)
		assert.Equal(t, DefaultSequenceLength, cfg.SequenceLength)
		assert.Equal(t, DefaultPadChar, cfg.PadChar)
		assert.Equal(t, DefaultSeparator, cfg.Separator)
		assert.NoError(t, cfg.Validate(t.Context()))
	})

	t.Run("separator inside document type", func(t *testing.T) {
		cfg := NewNumberingConfig("tenant-1", "P-O", "Bad", PeriodMonthShort)
		assert.Error(t, cfg.Validate(t.Context()))
	})

	t.Run("separator inside prefix default", func(t *testing.T) {
		cfg := testConfig()
		bad := "WH-1"
		cfg.Prefix1Default = &bad
		assert.Error(t, cfg.Validate(t.Context()))
	})

	t.Run("multi character separator", func(t *testing.T) {
		cfg := testConfig()
		cfg.Separator = "--"
		assert.Error(t, cfg.Validate(t.Context()))
	})

	t.Run("nonzero digit pad char", func(t *testing.T) {
		// With pad "9" the formatted "9900" for sequence 900 would parse
		// back as 0: leading value digits are eaten along with the padding.
		cfg := testConfig()
		cfg.PadChar = "9"
		assert.Error(t, cfg.Validate(t.Context()))
	})

	t.Run("zero pad char", func(t *testing.T) {
		cfg := testConfig()
		cfg.PadChar = "0"
		assert.NoError(t, cfg.Validate(t.Context()))
	})

	t.Run("non digit pad char", func(t *testing.T) {
		cfg := testConfig()
		cfg.PadChar = "_"
		assert.NoError(t, cfg.Validate(t.Context()))
	})

	t.Run("sequence length out of range", func(t *testing.T) {
		cfg := testConfig()
		cfg.SequenceLength = 13
		assert.Error(t, cfg.Validate(t.Context()))
	})

	t.Run("prefix2 without prefix1", func(t *testing.T) {
		cfg := NewNumberingConfig("tenant-1", "PO", "Purchase Order", PeriodMonthShort)
		label := "Category"
		cfg.Prefix2Label = &label
		assert.Error(t, cfg.Validate(t.Context()))
	})

	t.Run("invalid period format", func(t *testing.T) {
		cfg := NewNumberingConfig("tenant-1", "PO", "Purchase Order", PeriodFormat("YY"))
		assert.Error(t, cfg.Validate(t.Context()))
	})
}
