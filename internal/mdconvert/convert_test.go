package mdconvert_test

import (
	"testing"

	"github.com/rohmanhakim/booth-archiver/internal/mdconvert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMarkdown_PlainTextKeptAsWritten(t *testing.T) {
	c := mdconvert.NewConverter(nil)

	md, err := c.ToMarkdown("1", "こんにちは\r\n\r\n利用規約: https://example.com/terms_of_use\r\n")
	require.Nil(t, err)
	assert.Equal(t, "こんにちは\n\n利用規約: https://example.com/terms_of_use", md)
}

func TestToMarkdown_HTMLIsConverted(t *testing.T) {
	c := mdconvert.NewConverter(nil)

	md, err := c.ToMarkdown("1", `<h2>内容</h2><p>Hello <strong>world</strong></p><p><a href="https://example.com">link</a></p>`)
	require.Nil(t, err)
	assert.Contains(t, md, "## 内容")
	assert.Contains(t, md, "Hello **world**")
	assert.Contains(t, md, "[link](https://example.com)")
}

func TestIsHTML(t *testing.T) {
	assert.True(t, mdconvert.IsHTML("<p>x</p>"))
	assert.True(t, mdconvert.IsHTML("line<br/>line"))
	assert.False(t, mdconvert.IsHTML("price < 1000 > 10"))
	assert.False(t, mdconvert.IsHTML("plain text"))
}

func TestBlocks(t *testing.T) {
	md := "# Title\n\nfirst line\nsecond line\n\n```\ncode <tab> here\n```\n\nsee https://booth.pm/en/items/1"

	blocks := mdconvert.Blocks(md)
	require.Len(t, blocks, 4)

	assert.Equal(t, mdconvert.Block{Text: "Title"}, blocks[0])
	assert.Equal(t, []string{"first line", "second line"}, blocks[1].Lines())
	assert.True(t, blocks[2].Verbatim)
	assert.Equal(t, "code <tab> here", blocks[2].Text)
	assert.Equal(t, "see https://booth.pm/en/items/1", blocks[3].Text)
}

func TestJoinBlocks(t *testing.T) {
	out := mdconvert.JoinBlocks([]mdconvert.Block{
		{Text: "Title"},
		{Text: "x := 1", Verbatim: true},
		{Text: "a\nb"},
	})
	assert.Equal(t, "Title\n\n```\nx := 1\n```\n\na\nb", out)
}

func TestBlocks_Empty(t *testing.T) {
	assert.Empty(t, mdconvert.Blocks(""))
	assert.Empty(t, mdconvert.Block{}.Lines())
}
