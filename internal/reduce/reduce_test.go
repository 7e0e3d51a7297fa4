package reduce

import (
	"html"
	"strings"
	"testing"
)

func TestReduceToBody_StripsScriptsAndStyles(t *testing.T) {
	in := `<!doctype html>
    <html>
      <head><title>T</title><style>body{color:red}</style><script>var head=1</script></head>
      <body>
        <div><section><div><p>Visible text</p><script>alert("deep")</script></div></section></div>
        <style>.x{display:none}</style>
        <noscript><script>var inNoscript=1</script>fallback</noscript>
      </body>
    </html>`

	out := ReduceToBody(in)
	for _, bad := range []string{"<script", "<style", "alert(", "color:red", "display:none", "inNoscript", "var head"} {
		if strings.Contains(out, bad) {
			t.Fatalf("did not expect %q in output: %s", bad, out)
		}
	}
	if !strings.HasPrefix(out, "<body>") {
		t.Fatalf("expected serialized body, got %q", out)
	}
	if !strings.Contains(out, "Visible text") {
		t.Fatalf("expected visible text kept: %s", out)
	}
}

func TestReduceToBody_MalformedMarkup(t *testing.T) {
	in := `<div><p>unclosed <b>bold <i>mixed</b></i><script>x()</p></div><<>>`
	out := ReduceToBody(in)
	if !strings.Contains(out, "unclosed") || !strings.Contains(out, "mixed") {
		t.Fatalf("expected best-effort text, got %q", out)
	}
	if strings.Contains(out, "x()") {
		t.Fatalf("script content leaked: %q", out)
	}
}

func TestClean_JoinsTrimmedTextNodes(t *testing.T) {
	in := `<body><h1>  Title  </h1><p>First paragraph.</p>

	<ul><li>One</li><li>  Two </li></ul><!-- hidden comment --></body>`
	got := Clean(in)
	want := "Title\nFirst paragraph.\nOne\nTwo"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestClean_CollapsesBlankRuns(t *testing.T) {
	in := "<body><pre>a\n\n\n\n\nb</pre><p>c</p></body>"
	got := Clean(in)
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("found 3+ newlines in %q", got)
	}
	if got != "a\n\nb\nc" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"<body><p>Hello &amp; welcome</p><p>Price: 20 &lt;USD&gt;</p></body>",
		"<body><pre>x\n\n\n\n y </pre>  <div>z</div></body>",
		"<p>plain</p>",
		"",
	}
	for _, in := range inputs {
		once := Clean(in)
		twice := Clean("<p>" + html.EscapeString(once) + "</p>")
		if once != twice {
			t.Fatalf("not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestClean_NeverEmitsScriptText(t *testing.T) {
	got := Clean(`<body><p>a</p><script>secret()</script><style>p{}</style><template><p>tpl</p></template></body>`)
	if got != "a" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestBodyReducer_Pipeline(t *testing.T) {
	in := `<html><head><title>Shop</title></head><body><script>track()</script><p>The price: 20 dollars. Shipping is free.</p></body></html>`
	got := BodyReducer{}.Reduce(in, "https://shop.example/")
	if got != "The price: 20 dollars. Shipping is free." {
		t.Fatalf("unexpected %q", got)
	}
}

func TestReadabilityReducer_FallsBackToBody(t *testing.T) {
	in := `<html><body><p>tiny</p></body></html>`
	got := ReadabilityReducer{}.Reduce(in, "https://example.com/")
	if !strings.Contains(got, "tiny") {
		t.Fatalf("expected fallback text, got %q", got)
	}
}

func TestReadabilityReducer_DropsNavigation(t *testing.T) {
	para := strings.Repeat("This article paragraph talks about headings and prices in some detail, with commas, and more words. ", 8)
	in := `<html><head><title>Article</title></head><body>
	<nav><a href="/a">Home</a> <a href="/b">About</a></nav>
	<article><h1>Main story</h1><p>` + para + `</p><p>` + para + `</p><p>` + para + `</p></article>
	<script>track()</script>
	</body></html>`
	got := ReadabilityReducer{}.Reduce(in, "https://example.com/story")
	if !strings.Contains(got, "This article paragraph") {
		t.Fatalf("expected article text, got %q", got)
	}
	if strings.Contains(got, "track()") {
		t.Fatalf("script leaked: %q", got)
	}
}

func TestForMode(t *testing.T) {
	if r, err := ForMode(""); err != nil || r == nil {
		t.Fatalf("empty mode: %v", err)
	}
	if _, ok := mustMode(t, "Readability").(ReadabilityReducer); !ok {
		t.Fatalf("expected readability reducer")
	}
	if _, err := ForMode("dom"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func mustMode(t *testing.T, mode string) Reducer {
	t.Helper()
	r, err := ForMode(mode)
	if err != nil {
		t.Fatalf("mode %q: %v", mode, err)
	}
	return r
}
