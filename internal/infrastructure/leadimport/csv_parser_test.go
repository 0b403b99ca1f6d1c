package leadimport

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFemail,name\na@example.com,Ada"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"email", "name"}, parser.Headers())
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("whitespace only file", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader(" \n\n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("invalid UTF-8", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("email\n\xff\xfe@example.com"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("rune split at the check window is tolerated", func(t *testing.T) {
		content := "email\n" + strings.Repeat("a", 4096-6-1) + "é"
		_, err := NewCSVParser(strings.NewReader(content))
		assert.NoError(t, err)
	})

	t.Run("stray quote is tolerated", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("email,name\na@example.com,Ada \"The\" Count\n"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, `Ada "The" Count`, row.Get("name"))
	})
}

func TestParseHeader(t *testing.T) {
	t.Run("names are normalized", func(t *testing.T) {
		parser, err := ParseFromBytes([]byte(" Email , First Name\n"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		assert.Equal(t, []string{"email", "first name"}, parser.Headers())
		assert.True(t, parser.HasHeader("EMAIL"))
		assert.Empty(t, parser.ValidateHeaders([]string{"email"}))
		assert.Equal(t, []string{"company"}, parser.ValidateHeaders([]string{"email", "company"}))
		assert.Equal(t, 1, parser.CurrentRow())
	})

	t.Run("blank header row", func(t *testing.T) {
		parser, err := ParseFromBytes([]byte(",,\nx,y,z"))
		require.NoError(t, err)
		assert.ErrorIs(t, parser.ParseHeader(), ErrMissingHeader)
	})
}

func TestReadRow(t *testing.T) {
	parser, err := ParseFromBytes([]byte("email,name,company\n a@example.com ,Ada\nb@example.com,Bob,Acme,extra\n,,\n"))
	require.NoError(t, err)
	require.NoError(t, parser.ParseHeader())

	row, err := parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 2, row.LineNumber)
	assert.Equal(t, "a@example.com", row.Get("email"))
	assert.Equal(t, "Ada", row.Get("Name"))
	assert.Equal(t, "", row.Get("company"))
	assert.False(t, row.IsEmpty())

	row, err = parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "Acme", row.Get("company"))
	assert.Len(t, row.Data, 3)

	row, err = parser.ReadRow()
	require.NoError(t, err)
	assert.True(t, row.IsEmpty())

	_, err = parser.ReadRow()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 3, parser.TotalRows())
}
