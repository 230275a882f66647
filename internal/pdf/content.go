package pdf

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ImageRef is one image paint operation on a page.
type ImageRef struct {
	// Name is the XObject resource name without the leading slash.
	Name string
	// Index is the zero-based position among the page's image paints.
	Index int
}

// wordGapKern is the TJ adjustment, in thousandths of an em, at or below
// which the displacement is read as a space between words.
const wordGapKern = -200

// pageContent is what a single pass over a page's content stream yields.
type pageContent struct {
	Fragments []string
	Images    []ImageRef
}

// NativeText joins the page's text fragments with single spaces.
func (c pageContent) NativeText() string {
	return strings.Join(c.Fragments, " ")
}

// readPageContent walks the page's content stream once, collecting shown text
// and the image XObjects painted with Do, both in stream order. The parser
// panics on malformed input; that is reported as an error.
func readPageContent(r *pdf.Reader, pageNum int) (content pageContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = pageContent{}
			err = fmt.Errorf("content stream: %v", r)
		}
	}()

	p := r.Page(pageNum)
	if p.V.IsNull() {
		return pageContent{}, nil
	}

	xobjects := p.Resources().Key("XObject")
	fonts := make(map[string]pdf.TextEncoding)
	var enc pdf.TextEncoding

	decode := func(raw string) string {
		if enc == nil {
			return raw
		}
		return enc.Decode(raw)
	}
	show := func(s string) {
		if strings.TrimSpace(s) != "" {
			content.Fragments = append(content.Fragments, s)
		}
	}

	handle := func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "Tf":
			if len(args) != 2 {
				return
			}
			name := args[0].Name()
			if _, ok := fonts[name]; !ok {
				fonts[name] = p.Font(name).Encoder()
			}
			enc = fonts[name]

		case "Tj", "'":
			if len(args) < 1 {
				return
			}
			show(decode(args[len(args)-1].RawString()))

		case "\"":
			if len(args) != 3 {
				return
			}
			show(decode(args[2].RawString()))

		case "TJ":
			if len(args) != 1 {
				return
			}
			var b strings.Builder
			arr := args[0]
			for i := 0; i < arr.Len(); i++ {
				x := arr.Index(i)
				switch x.Kind() {
				case pdf.String:
					b.WriteString(decode(x.RawString()))
				case pdf.Integer, pdf.Real:
					if x.Float64() <= wordGapKern && b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
						b.WriteByte(' ')
					}
				}
			}
			show(b.String())

		case "Do":
			if len(args) != 1 {
				return
			}
			name := args[0].Name()
			if xobjects.Key(name).Key("Subtype").Name() != "Image" {
				// Form XObjects are not followed.
				return
			}
			content.Images = append(content.Images, ImageRef{Name: name, Index: len(content.Images)})
		}
	}

	streams := p.V.Key("Contents")
	if streams.Kind() == pdf.Array {
		for i := 0; i < streams.Len(); i++ {
			pdf.Interpret(streams.Index(i), handle)
		}
	} else {
		pdf.Interpret(streams, handle)
	}

	return content, nil
}
