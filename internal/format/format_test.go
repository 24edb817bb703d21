package format

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTelegramHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"bold and italic", "**Bold** and *Italic*", "<b>Bold</b> and <i>Italic</i>"},
		{"reserved characters", "5 < 10 & done", "5 &lt; 10 &amp; done"},
		{"foreign tags stay escaped", "<script>alert(1)</script> **ok**", "&lt;script&gt;alert(1)&lt;/script&gt; <b>ok</b>"},
		{"markdown link", "Read [the paper](https://example.com/a?x=1&y=2) now", `Read <a href="https://example.com/a?x=1&amp;y=2">the paper</a> now`},
		{"lone asterisks untouched", "2 * 3 * 4", "2 * 3 * 4"},
		{"multiline emphasis does not leak", "**first\nsecond**", "**first\nsecond**"},
		{"ampersand inside bold", "**R&D** budget", "<b>R&amp;D</b> budget"},
		{"literal b and i tags stay escaped", "Use the <b> tag & <i>x", "Use the &lt;b&gt; tag &amp; &lt;i&gt;x"},
		{"literal closing tags stay escaped", "**ok**</b></a>", "<b>ok</b>&lt;/b&gt;&lt;/a&gt;"},
		{"private-use runes in input are dropped", "\uE000b\uE001x", "bx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TelegramHTML(tt.in))
		})
	}
}

func TestTelegramHTML_OnlyWhitelistedTags(t *testing.T) {
	out := TelegramHTML("<u>x</u> <a href=\"javascript:1\">y</a> **z** <i>w</i>")

	for _, m := range tagRe.FindAllString(out, -1) {
		assert.Contains(t, []string{"<b>", "</b>", "<i>", "</i>", "</a>"}, m)
	}
	assert.NotContains(t, out, "<u>")
	assert.Contains(t, out, "&lt;u&gt;")
	assert.Contains(t, out, `&lt;a href="javascript:1"&gt;`)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "Tom &amp; &quot;Jerry&quot; &lt;3", Escape(`Tom & "Jerry" <3`))
}

func TestSanitizeAIText_RemovesInlineParenthesizedDisclaimer(t *testing.T) {
	in := "Toyota показала новую батарею\n(Note: This translation is a machine translation and may contain errors.) Производство начнется в 2027 году."
	out := SanitizeAIText(in)

	assert.NotEmpty(t, out)
	assert.NotContains(t, strings.ToLower(out), "note:")
	assert.Contains(t, out, "Производство начнется")
}

func TestSanitizeAIText_RemovesFullLineNote(t *testing.T) {
	in := "Note: This text was generated automatically.\nQuantumScape начала поставки образцов."
	out := SanitizeAIText(in)

	assert.NotContains(t, strings.ToLower(out), "note:")
	assert.Equal(t, "QuantumScape начала поставки образцов.", out)
}

func TestSanitizeAIText_RemovesBracketedDisclaimer(t *testing.T) {
	out := SanitizeAIText("[Note: Machine translation] Это тестовая строка.")

	assert.NotContains(t, strings.ToLower(out), "note")
	assert.Equal(t, "Это тестовая строка.", out)
}

func TestSanitizeAIText_CollapsesBlankLines(t *testing.T) {
	assert.Equal(t, "a\n\nb", SanitizeAIText("a\r\n\r\n\r\n\r\nb  "))
}

func TestTruncateHTML(t *testing.T) {
	t.Run("short input untouched", func(t *testing.T) {
		assert.Equal(t, "<b>hi</b>", TruncateHTML("<b>hi</b>", 20, "..."))
	})

	t.Run("plain text", func(t *testing.T) {
		out := TruncateHTML(strings.Repeat("a", 1100), 944, "...")
		assert.Equal(t, 944, utf8.RuneCountInString(out))
		assert.True(t, strings.HasSuffix(out, "..."))
	})

	t.Run("closes open tags", func(t *testing.T) {
		out := TruncateHTML("<b>"+strings.Repeat("x", 50)+"</b>", 20, "...")
		assert.LessOrEqual(t, utf8.RuneCountInString(out), 20)
		assert.True(t, strings.HasPrefix(out, "<b>"))
		assert.True(t, strings.HasSuffix(out, "...</b>"))
	})

	t.Run("never cuts inside a tag", func(t *testing.T) {
		in := "intro " + `<a href="https://example.com/very/long/path">link</a>` + strings.Repeat(" tail", 20)
		out := TruncateHTML(in, 25, "...")
		assert.LessOrEqual(t, utf8.RuneCountInString(out), 25)
		assert.NotContains(t, out, "<a href")
		assert.Equal(t, "intro...", out)
	})

	t.Run("never cuts inside an entity", func(t *testing.T) {
		out := TruncateHTML("abc &amp; def ghi", 9, "...")
		assert.Equal(t, "abc...", out)
	})

	t.Run("multibyte runes", func(t *testing.T) {
		out := TruncateHTML(strings.Repeat("я", 30), 10, "…")
		assert.Equal(t, 10, utf8.RuneCountInString(out))
		assert.True(t, utf8.ValidString(out))
	})
}
