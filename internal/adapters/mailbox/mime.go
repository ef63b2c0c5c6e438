package mailbox

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/mikey/llm-task-extractor/internal/core"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/htmlindex"
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// charsetReader decodes r from the named charset into UTF-8
func charsetReader(charset string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8", "us-ascii":
		return r, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(r), nil
}

// ParseMessage reads an RFC 5322 message and returns its sender, decoded
// subject and best plain-text body
func ParseMessage(r io.Reader) (core.RawEmail, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return core.RawEmail{}, fmt.Errorf("failed to parse message: %w", err)
	}

	subject := msg.Header.Get("Subject")
	if decoded, err := wordDecoder.DecodeHeader(subject); err == nil {
		subject = decoded
	}

	from := msg.Header.Get("From")
	if addr, err := mail.ParseAddress(from); err == nil {
		from = addr.Address
	}

	plain, htmlBody, err := extractText(
		msg.Header.Get("Content-Type"),
		msg.Header.Get("Content-Transfer-Encoding"),
		msg.Body,
	)
	if err != nil {
		return core.RawEmail{}, err
	}

	body := plain
	if strings.TrimSpace(body) == "" && htmlBody != "" {
		body = HTMLToText(htmlBody)
	}

	return core.RawEmail{
		ID:      strings.Trim(msg.Header.Get("Message-Id"), "<>"),
		From:    from,
		Subject: subject,
		Body:    strings.TrimSpace(body),
	}, nil
}

// extractText walks a (possibly nested multipart) entity and collects its
// text/plain parts. The first text/html part is returned separately so the
// caller can fall back to it.
func extractText(contentType, transferEncoding string, body io.Reader) (plain, htmlBody string, err error) {
	mediaType, params, perr := mime.ParseMediaType(contentType)
	if perr != nil || contentType == "" {
		mediaType = "text/plain"
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		content := decodeTransfer(transferEncoding, body)
		// an unknown charset keeps the raw bytes; they are sanitized before prompting
		if decoded, err := charsetReader(params["charset"], content); err == nil {
			content = decoded
		}
		data, err := io.ReadAll(content)
		if err != nil {
			return "", "", fmt.Errorf("failed to read body: %w", err)
		}
		switch mediaType {
		case "text/html":
			return "", string(data), nil
		case "text/plain":
			return string(data), "", nil
		default:
			// attachments and other media carry no task text
			return "", "", nil
		}
	}

	boundary, ok := params["boundary"]
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", "", fmt.Errorf("failed to read body: %w", err)
		}
		return string(data), "", nil
	}

	var textContent bytes.Buffer
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// keep what was collected from a truncated message
			break
		}

		if strings.EqualFold(dispositionOf(part), "attachment") {
			continue
		}

		p, h, err := extractText(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			continue
		}
		if p != "" {
			textContent.WriteString(p)
			textContent.WriteString("\n")
		}
		if htmlBody == "" {
			htmlBody = h
		}
	}

	return textContent.String(), htmlBody, nil
}

func dispositionOf(part *multipart.Part) string {
	disposition, _, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return disposition
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, &newlineStripper{r: r})
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// newlineStripper drops CR and LF so wrapped base64 lines decode as one stream
type newlineStripper struct {
	r io.Reader
}

func (n *newlineStripper) Read(p []byte) (int, error) {
	for {
		count, err := n.r.Read(p)
		kept := 0
		for _, b := range p[:count] {
			if b != '\r' && b != '\n' {
				p[kept] = b
				kept++
			}
		}
		if kept > 0 || err != nil {
			return kept, err
		}
	}
}

// HTMLToText renders the visible text of an HTML document, one line per block element
func HTMLToText(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "style", "script", "noscript", "head", "meta", "link", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
					sb.WriteString(" ")
				}
				sb.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
					sb.WriteString("\n")
				}
			}
		}
	}
	walk(doc)

	return strings.TrimSpace(sb.String())
}
