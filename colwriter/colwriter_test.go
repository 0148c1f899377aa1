package colwriter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriterFuncs_PadsAndTruncatesLeftAligned(t *testing.T) {
	cfg := Cfg{Spacer: "|", Pad: true}
	write := cfg.NewWriterFuncs([]ColCfg{{Title: "Name", Wid: 6}, {Title: "Class", Wid: 4}})

	var buf bytes.Buffer
	_, err := write(&buf, "ab", "classx")
	require.NoError(t, err)
	assert.Equal(t, "ab     | clas\n", buf.String())
}

func TestNewWriterFuncs_RightAligned(t *testing.T) {
	cfg := Cfg{Spacer: "|", Pad: true}
	write := cfg.NewWriterFuncs([]ColCfg{{Title: "Code", Wid: 5, Rt: true}})

	var buf bytes.Buffer
	_, err := write(&buf, "42")
	require.NoError(t, err)
	assert.Equal(t, "   42\n", buf.String())
}

func TestNewWriterFuncs_NoPadIgnoresWidth(t *testing.T) {
	cfg := Cfg{Spacer: ","}
	write := cfg.NewWriterFuncs([]ColCfg{{Title: "A", Wid: 3}, {Title: "B", Wid: 3}})

	var buf bytes.Buffer
	_, err := write(&buf, "hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "hello,world\n", buf.String())
}

func TestTable_HeaderUsesColumnTitles(t *testing.T) {
	cfg := Cfg{Spacer: "|", Pad: true}
	table := cfg.NewTable([]ColCfg{{Title: "NAME", Wid: 6}, {Title: "CODE", Wid: 4, Rt: true}})

	var buf bytes.Buffer
	_, err := table.Header(&buf)
	require.NoError(t, err)
	assert.Equal(t, "NAME   | CODE\n", buf.String())
}

func TestTable_RowUsesSameFormatAsHeader(t *testing.T) {
	cfg := Cfg{Spacer: "|", Pad: true}
	table := cfg.NewTable([]ColCfg{{Title: "NAME", Wid: 6}, {Title: "CODE", Wid: 4, Rt: true}})

	var buf bytes.Buffer
	_, err := table.Row(&buf, "ab", "7")
	require.NoError(t, err)
	assert.Equal(t, "ab     |    7\n", buf.String())
}
