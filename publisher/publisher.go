package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"

	"outreach_sequence_generator/generator"
)

// SecretHeader carries the shared secret on outbound webhook calls.
const SecretHeader = "X-Outreach-Secret"

// Config holds the webhook destination for finished sequences.
type Config struct {
	WebhookURL string
	Secret     string
	Timeout    time.Duration
}

// Step is one send-ready item of an exported sequence.
type Step struct {
	ItemID      string            `json:"item_id"`
	Day         int               `json:"day"`
	Channel     generator.Channel `json:"channel"`
	Subject     string            `json:"subject,omitempty"`
	Preheader   string            `json:"preheader,omitempty"`
	HTML        string            `json:"html"`
	Text        string            `json:"text"`
	NeedsReview bool              `json:"needs_review,omitempty"`
}

// Export is the payload sent to the webhook.
type Export struct {
	SequenceID string    `json:"sequence_id"`
	PersonaID  string    `json:"persona_id"`
	Signal     string    `json:"signal"`
	Steps      []Step    `json:"steps"`
	ExportedAt time.Time `json:"exported_at"`
}

type publishResp struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// Publisher converts sequences to email-safe HTML and pushes them to a webhook.
type Publisher struct {
	cfg    Config
	client *http.Client
	logger *log.Logger
}

// New creates a Publisher. The webhook URL is required.
func New(cfg Config, client *http.Client, logger *log.Logger) (*Publisher, error) {
	if cfg.WebhookURL == "" {
		return nil, errors.New("publish config must include webhook_url")
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{cfg: cfg, client: client, logger: logger}, nil
}

// Publish renders seq and posts it to the webhook. It returns the id the
// receiving system assigned.
func (p *Publisher) Publish(ctx context.Context, seq *generator.Sequence) (string, error) {
	export, err := Render(seq)
	if err != nil {
		return "", err
	}
	p.logger.Debug("rendered sequence", "sequence", seq.ID, "steps", len(export.Steps))

	body, err := json.Marshal(export)
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Secret != "" {
		req.Header.Set(SecretHeader, p.cfg.Secret)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var data publishResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if data.ID == "" {
		return "", fmt.Errorf("webhook accepted the sequence without an id: %s", data.Error)
	}
	p.logger.Info("sequence published", "sequence", seq.ID, "remote_id", data.ID)
	return data.ID, nil
}

// Render converts every item of seq into send-ready HTML and plain text.
func Render(seq *generator.Sequence) (Export, error) {
	export := Export{
		SequenceID: seq.ID,
		PersonaID:  seq.Request.PersonaID,
		Signal:     seq.Request.Signal,
		ExportedAt: time.Now().UTC(),
	}
	for _, it := range seq.Items {
		step, err := renderItem(it)
		if err != nil {
			return Export{}, fmt.Errorf("render item %s: %w", it.ID, err)
		}
		export.Steps = append(export.Steps, step)
	}
	return export, nil
}

func renderItem(it generator.GeneratedItem) (Step, error) {
	subject, body := "", it.Content
	if it.Channel == generator.ChannelEmail {
		subject, body = generator.SplitSubject(it.Content)
	}

	html, err := mdToHTML(body)
	if err != nil {
		return Step{}, err
	}
	html = normalizeForEmail(html)

	step := Step{
		ItemID:      it.ID,
		Day:         it.DayOffset,
		Channel:     it.Channel,
		Subject:     subject,
		HTML:        html,
		Text:        plainText(body),
		NeedsReview: it.NeedsReview(),
	}
	if it.Channel == generator.ChannelEmail {
		step.Preheader = defaultPreheader(step.Text, 90)
	}
	return step, nil
}

// WriteHTML writes one HTML file per step into dir and returns the paths.
func WriteHTML(dir string, export Export) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for i, st := range export.Steps {
		name := fmt.Sprintf("%02d-day%02d-%s.html", i+1, st.Day, st.Channel)
		path := filepath.Join(dir, name)
		page := st.HTML
		if st.Subject != "" {
			page = fmt.Sprintf("<!-- subject: %s -->\n%s", st.Subject, page)
		}
		if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

var (
	olRe          = regexp.MustCompile(`(?s)<ol[^>]*>(.*?)</ol>`)
	ulRe          = regexp.MustCompile(`(?s)<ul[^>]*>(.*?)</ul>`)
	liRe          = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)
	hRe           = regexp.MustCompile(`(?s)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	pRe           = regexp.MustCompile(`<p>`)
	escapedMerge  = regexp.MustCompile(`%7B%7B\s*([A-Za-z0-9_]+)\s*%7D%7D`)
	mdLinkRe      = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	mdEmphasisRe  = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	headingSizes  = map[string]string{"1": "22px", "2": "20px", "3": "18px", "4": "16px", "5": "15px", "6": "14px"}
	paragraphCSS  = `<p style="margin:0 0 1em;">`
	containerOpen = `<div style="font-family:Arial,Helvetica,sans-serif;font-size:14px;line-height:1.5;color:#222;">`
)

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Many email clients drop list and heading styles, so lists become numbered
// or bulleted paragraphs and headings become sized bold paragraphs.
func flattenListsForEmail(html string) string {
	html = olRe.ReplaceAllStringFunc(html, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for i, item := range items {
			fmt.Fprintf(&b, "<p>%d. %s</p>", i+1, strings.TrimSpace(item[1]))
		}
		return b.String()
	})

	return ulRe.ReplaceAllStringFunc(html, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for _, item := range items {
			b.WriteString("<p>• ")
			b.WriteString(strings.TrimSpace(item[1]))
			b.WriteString("</p>")
		}
		return b.String()
	})
}

func convertHeadingsForEmail(html string) string {
	return hRe.ReplaceAllStringFunc(html, func(block string) string {
		parts := hRe.FindStringSubmatch(block)
		if len(parts) != 3 {
			return block
		}
		size := headingSizes[parts[1]]
		return fmt.Sprintf(`<p style="font-size:%s;font-weight:700;margin:1em 0 0.6em;">%s</p>`, size, strings.TrimSpace(parts[2]))
	})
}

// restoreMergeFields undoes goldmark's URL escaping of {{field}} placeholders
// so the sending platform can still substitute them.
func restoreMergeFields(html string) string {
	return escapedMerge.ReplaceAllString(html, "{{$1}}")
}

func normalizeForEmail(html string) string {
	html = convertHeadingsForEmail(html)
	html = flattenListsForEmail(html)
	html = pRe.ReplaceAllString(html, paragraphCSS)
	html = restoreMergeFields(html)
	return containerOpen + strings.TrimSpace(html) + "</div>"
}

// plainText turns markdown links into "text (url)" and drops bold markers.
func plainText(md string) string {
	text := mdLinkRe.ReplaceAllString(md, "$1 ($2)")
	text = mdEmphasisRe.ReplaceAllString(text, "$1$2")
	return strings.TrimSpace(text)
}

func defaultPreheader(text string, limit int) string {
	// skip the greeting line
	if i := strings.Index(text, "\n"); i >= 0 {
		text = text[i+1:]
	}
	return generator.Preview(text, limit)
}
